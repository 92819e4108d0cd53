package postgres

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
)

const upsertSQL = `
INSERT INTO proxies (host, port, protocol, country, anonymity, source, response_time, last_checked, success_count, fail_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (host, port) DO UPDATE SET
	protocol = EXCLUDED.protocol,
	country = EXCLUDED.country,
	anonymity = EXCLUDED.anonymity,
	source = EXCLUDED.source,
	response_time = EXCLUDED.response_time,
	last_checked = EXCLUDED.last_checked,
	success_count = GREATEST(proxies.success_count, EXCLUDED.success_count),
	fail_count = GREATEST(proxies.fail_count, EXCLUDED.fail_count)`

const recordOutcomesSQL = `
UPDATE proxies SET
	success_count = success_count + ?,
	fail_count = fail_count + ?
WHERE host = ? AND port = ?`

const uptimeSQL = `CASE WHEN success_count + fail_count = 0 THEN 0
	ELSE success_count::float8 / (success_count + fail_count) END >= ?`

type proxyRecord struct {
	Host         string     `gorm:"primary_key;type:varchar(255)"`
	Port         int        `gorm:"primary_key;auto_increment:false"`
	Protocol     string     `gorm:"type:varchar(16);not null"`
	Country      string     `gorm:"type:varchar(64)"`
	Anonymity    string     `gorm:"type:varchar(16)"`
	Source       string     `gorm:"type:varchar(255)"`
	ResponseTime *int64     // nanoseconds
	LastChecked  *time.Time `gorm:"index"`
	SuccessCount int64      `gorm:"not null;default:0"`
	FailCount    int64      `gorm:"not null;default:0"`
}

func (proxyRecord) TableName() string { return "proxies" }

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&proxyRecord{}).Error; err != nil {
		return fmt.Errorf("migrate proxies: %w", err)
	}
	return nil
}

func (r *Repository) UpsertMany(ctx context.Context, proxies []*proxy.Proxy) error {
	if len(proxies) == 0 {
		return nil
	}

	tx := r.db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return fmt.Errorf("begin: %w", tx.Error)
	}

	for _, p := range proxies {
		rec := toRecord(p)
		err := tx.Exec(upsertSQL,
			rec.Host, rec.Port, rec.Protocol, rec.Country, rec.Anonymity, rec.Source,
			rec.ResponseTime, rec.LastChecked, rec.SuccessCount, rec.FailCount,
		).Error
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s: %w", p.Address(), err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context, minUptime float64, maxAge time.Duration) ([]*proxy.Proxy, error) {
	now := r.now()

	q := r.db.Model(&proxyRecord{}).Where(uptimeSQL, minUptime)
	if maxAge > 0 {
		q = q.Where("last_checked >= ?", now.Add(-maxAge))
	}

	var records []proxyRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load proxies: %w", err)
	}

	out := make([]*proxy.Proxy, 0, len(records))
	for _, rec := range records {
		p := rec.toProxy()
		if proxy.Eligible(p, minUptime, maxAge, now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Repository) RecordOutcome(ctx context.Context, address string, success bool) error {
	host, port, err := splitAddress(address)
	if err != nil {
		return fmt.Errorf("%w: %s", proxy.ErrNotFound, address)
	}

	column := "fail_count"
	if success {
		column = "success_count"
	}

	res := r.db.Model(&proxyRecord{}).
		Where("host = ? AND port = ?", host, port).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return fmt.Errorf("record outcome: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", proxy.ErrNotFound, address)
	}
	return nil
}

func (r *Repository) RecordOutcomes(ctx context.Context, outcomes []proxy.Outcome) error {
	tx := r.db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return fmt.Errorf("begin: %w", tx.Error)
	}

	for _, o := range outcomes {
		if o.Empty() {
			continue
		}
		host, port, err := splitAddress(o.Address)
		if err != nil {
			continue
		}
		if err := tx.Exec(recordOutcomesSQL, o.Successes, o.Failures, host, port).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("record outcomes %s: %w", o.Address, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, addresses []string) (map[string]*proxy.Proxy, error) {
	out := make(map[string]*proxy.Proxy, len(addresses))

	wanted := make(map[string]struct{}, len(addresses))
	hosts := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		host, _, err := splitAddress(addr)
		if err != nil {
			continue
		}
		wanted[addr] = struct{}{}
		hosts = append(hosts, host)
	}
	if len(hosts) == 0 {
		return out, nil
	}

	var records []proxyRecord
	if err := r.db.Where("host IN (?)", hosts).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("get proxies: %w", err)
	}

	for _, rec := range records {
		p := rec.toProxy()
		if _, ok := wanted[p.Address()]; ok {
			out[p.Address()] = p
		}
	}
	return out, nil
}

func toRecord(p *proxy.Proxy) proxyRecord {
	rec := proxyRecord{
		Host:         p.Host,
		Port:         p.Port,
		Protocol:     string(p.Protocol),
		Country:      p.Country,
		Anonymity:    string(p.Anonymity),
		Source:       p.Source,
		SuccessCount: p.SuccessCount,
		FailCount:    p.FailCount,
	}
	if p.ResponseTime != nil {
		ns := int64(*p.ResponseTime)
		rec.ResponseTime = &ns
	}
	if !p.LastChecked.IsZero() {
		t := p.LastChecked.UTC().Truncate(time.Microsecond)
		rec.LastChecked = &t
	}
	return rec
}

func (rec proxyRecord) toProxy() *proxy.Proxy {
	p := proxy.NewProxy(rec.Host, rec.Port, proxy.Protocol(rec.Protocol), rec.Source)
	p.Country = rec.Country
	if rec.Anonymity != "" {
		p.Anonymity = proxy.AnonymityLevel(rec.Anonymity)
	}
	if rec.ResponseTime != nil {
		d := time.Duration(*rec.ResponseTime)
		p.ResponseTime = &d
	}
	if rec.LastChecked != nil {
		p.LastChecked = *rec.LastChecked
	}
	p.SuccessCount = rec.SuccessCount
	p.FailCount = rec.FailCount
	return p
}

func splitAddress(address string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

var _ proxy.Store = (*Repository)(nil)
