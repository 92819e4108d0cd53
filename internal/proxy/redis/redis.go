package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/redis/go-redis/v9"
)

// Counters keep the larger of the stored and incoming values.
var upsertScript = redis.NewScript(`
local s = tonumber(redis.call('HGET', KEYS[1], 'success_count') or '0')
local f = tonumber(redis.call('HGET', KEYS[1], 'fail_count') or '0')
local ns = math.max(s, tonumber(ARGV[9]))
local nf = math.max(f, tonumber(ARGV[10]))
redis.call('HSET', KEYS[1],
  'host', ARGV[1], 'port', ARGV[2], 'protocol', ARGV[3],
  'country', ARGV[4], 'anonymity', ARGV[5], 'source', ARGV[6],
  'last_checked', ARGV[8],
  'success_count', string.format('%d', ns), 'fail_count', string.format('%d', nf))
if ARGV[7] == '' then
  redis.call('HDEL', KEYS[1], 'response_time')
else
  redis.call('HSET', KEYS[1], 'response_time', ARGV[7])
end
redis.call('ZADD', KEYS[2], ARGV[11], ARGV[12])
return 1
`)

var recordOutcomeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
return 1
`)

var recordOutcomesScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'success_count', ARGV[1])
redis.call('HINCRBY', KEYS[1], 'fail_count', ARGV[2])
return 1
`)

type Repository struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

func NewRepository(client *redis.Client, keyPrefix string) *Repository {
	if keyPrefix == "" {
		keyPrefix = "proxies"
	}
	return &Repository{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (r *Repository) proxyKey(address string) string {
	return fmt.Sprintf("%s:data:%s", r.keyPrefix, address)
}

// checkedSetKey indexes addresses by last_checked in unix seconds.
func (r *Repository) checkedSetKey() string {
	return fmt.Sprintf("%s:checked", r.keyPrefix)
}

func (r *Repository) UpsertMany(ctx context.Context, proxies []*proxy.Proxy) error {
	if len(proxies) == 0 {
		return nil
	}

	if err := upsertScript.Load(ctx, r.client).Err(); err != nil {
		return fmt.Errorf("load upsert script: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, p := range proxies {
		responseTime := ""
		if p.ResponseTime != nil {
			responseTime = strconv.FormatInt(int64(*p.ResponseTime), 10)
		}
		var checked int64
		if !p.LastChecked.IsZero() {
			checked = p.LastChecked.UnixNano()
		}

		upsertScript.EvalSha(ctx, pipe,
			[]string{r.proxyKey(p.Address()), r.checkedSetKey()},
			p.Host,
			p.Port,
			string(p.Protocol),
			p.Country,
			string(p.Anonymity),
			p.Source,
			responseTime,
			checked,
			p.SuccessCount,
			p.FailCount,
			float64(checked)/1e9,
			p.Address(),
		)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert proxies: %w", err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context, minUptime float64, maxAge time.Duration) ([]*proxy.Proxy, error) {
	now := r.now()

	lower := "-inf"
	if maxAge > 0 {
		lower = strconv.FormatFloat(float64(now.Add(-maxAge).UnixNano())/1e9, 'f', -1, 64)
	}

	addresses, err := r.client.ZRangeByScore(ctx, r.checkedSetKey(), &redis.ZRangeBy{
		Min: lower,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore: %w", err)
	}

	records, err := r.fetch(ctx, addresses)
	if err != nil {
		return nil, err
	}

	out := make([]*proxy.Proxy, 0, len(records))
	for _, addr := range addresses {
		p, ok := records[addr]
		if ok && proxy.Eligible(p, minUptime, maxAge, now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Repository) RecordOutcome(ctx context.Context, address string, success bool) error {
	field := "fail_count"
	if success {
		field = "success_count"
	}

	n, err := recordOutcomeScript.Run(ctx, r.client, []string{r.proxyKey(address)}, field).Int()
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", proxy.ErrNotFound, address)
	}
	return nil
}

func (r *Repository) RecordOutcomes(ctx context.Context, outcomes []proxy.Outcome) error {
	pipe := r.client.Pipeline()
	queued := 0
	for _, o := range outcomes {
		if o.Empty() {
			continue
		}
		if queued == 0 {
			if err := recordOutcomesScript.Load(ctx, r.client).Err(); err != nil {
				return fmt.Errorf("load outcomes script: %w", err)
			}
		}
		recordOutcomesScript.EvalSha(ctx, pipe, []string{r.proxyKey(o.Address)}, o.Successes, o.Failures)
		queued++
	}
	if queued == 0 {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record outcomes: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, addresses []string) (map[string]*proxy.Proxy, error) {
	return r.fetch(ctx, addresses)
}

func (r *Repository) fetch(ctx context.Context, addresses []string) (map[string]*proxy.Proxy, error) {
	out := make(map[string]*proxy.Proxy, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(addresses))
	for i, addr := range addresses {
		cmds[i] = pipe.HGetAll(ctx, r.proxyKey(addr))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("hgetall proxies: %w", err)
	}

	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		p, err := decode(fields)
		if err != nil {
			continue
		}
		out[addresses[i]] = p
	}
	return out, nil
}

func decode(fields map[string]string) (*proxy.Proxy, error) {
	port, err := strconv.Atoi(fields["port"])
	if err != nil {
		return nil, fmt.Errorf("decode port: %w", err)
	}

	p := proxy.NewProxy(fields["host"], port, proxy.Protocol(fields["protocol"]), fields["source"])
	p.Country = fields["country"]
	if a := fields["anonymity"]; a != "" {
		p.Anonymity = proxy.AnonymityLevel(a)
	}

	if v, ok := fields["response_time"]; ok && v != "" {
		ns, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode response_time: %w", err)
		}
		d := time.Duration(ns)
		p.ResponseTime = &d
	}
	if v := fields["last_checked"]; v != "" {
		ns, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode last_checked: %w", err)
		}
		if ns > 0 {
			p.LastChecked = time.Unix(0, ns)
		}
	}

	p.SuccessCount, _ = strconv.ParseInt(fields["success_count"], 10, 64)
	p.FailCount, _ = strconv.ParseInt(fields["fail_count"], 10, 64)
	return p, nil
}

var _ proxy.Store = (*Repository)(nil)
