package proxy

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Protocol string

const (
	HTTP  Protocol = "http"
	HTTPS Protocol = "https"
)

func (p Protocol) Valid() bool {
	return p == HTTP || p == HTTPS
}

// ProtocolFromString normalizes a source-provided protocol. Empty means http.
func ProtocolFromString(s string) Protocol {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return HTTP
	}
	return Protocol(s)
}

type AnonymityLevel string

const (
	Transparent AnonymityLevel = "transparent"
	Anonymous   AnonymityLevel = "anonymous"
	Elite       AnonymityLevel = "elite"
	Unknown     AnonymityLevel = "unknown"
)

// AnonymityLevelFromString accepts the labels public lists use
// ("elite proxy", "high anonymous", "anonymous", "transparent", ...).
func AnonymityLevelFromString(s string) AnonymityLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "elite"), strings.Contains(s, "high"):
		return Elite
	case strings.Contains(s, "anonymous"):
		return Anonymous
	case strings.Contains(s, "transparent"), s == "noa":
		return Transparent
	default:
		return Unknown
	}
}

type Proxy struct {
	Host         string         `json:"host"`
	Port         int            `json:"port"`
	Protocol     Protocol       `json:"protocol"`
	Country      string         `json:"country"`
	Anonymity    AnonymityLevel `json:"anonymity"`
	Source       string         `json:"source"`
	ResponseTime *time.Duration `json:"response_time,omitempty"`
	LastChecked  time.Time      `json:"last_checked"`
	SuccessCount int64          `json:"success_count"`
	FailCount    int64          `json:"fail_count"`
}

func NewProxy(host string, port int, protocol Protocol, source string) *Proxy {
	return &Proxy{
		Host:      host,
		Port:      port,
		Protocol:  protocol,
		Source:    source,
		Anonymity: Unknown,
	}
}

func (p *Proxy) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

func (p *Proxy) URL() *url.URL {
	return &url.URL{
		Scheme: string(p.Protocol),
		Host:   p.Address(),
	}
}

func (p *Proxy) Validate() error {
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidProxy)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidProxy, p.Port)
	}
	if !p.Protocol.Valid() {
		return fmt.Errorf("%w: unsupported protocol %q", ErrInvalidProxy, p.Protocol)
	}
	return nil
}

// Uptime is success/(success+fail), or 0 for a proxy that was never probed.
func (p *Proxy) Uptime() float64 {
	total := p.SuccessCount + p.FailCount
	if total == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(total)
}

func (p *Proxy) Latency() (time.Duration, bool) {
	if p.ResponseTime == nil {
		return 0, false
	}
	return *p.ResponseTime, true
}

func (p *Proxy) MarkSuccess(latency time.Duration, anonymity AnonymityLevel) {
	p.SuccessCount++
	p.LastChecked = checkedNow()
	p.ResponseTime = &latency
	if anonymity != "" && anonymity != Unknown {
		p.Anonymity = anonymity
	}
}

// MarkFailure keeps the last successful response time.
func (p *Proxy) MarkFailure() {
	p.FailCount++
	p.LastChecked = checkedNow()
}

// checkedNow is the current time at the microsecond precision every store
// can round-trip.
func checkedNow() time.Time {
	return time.Now().Truncate(time.Microsecond)
}

// MergeHistory carries lifetime statistics from a persisted record into a
// freshly scraped candidate. Metadata from the candidate wins when present.
func (p *Proxy) MergeHistory(h *Proxy) {
	if h == nil {
		return
	}
	p.SuccessCount = max(p.SuccessCount, h.SuccessCount)
	p.FailCount = max(p.FailCount, h.FailCount)
	if p.ResponseTime == nil && h.ResponseTime != nil {
		rt := *h.ResponseTime
		p.ResponseTime = &rt
	}
	if p.LastChecked.IsZero() {
		p.LastChecked = h.LastChecked
	}
	if p.Country == "" {
		p.Country = h.Country
	}
	if p.Anonymity == "" || p.Anonymity == Unknown {
		p.Anonymity = h.Anonymity
	}
}

func (p *Proxy) Clone() *Proxy {
	c := *p
	if p.ResponseTime != nil {
		rt := *p.ResponseTime
		c.ResponseTime = &rt
	}
	return &c
}
