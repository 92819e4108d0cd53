package httpverifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/verifier"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultEchoURL = "https://httpbin.org/get"
	maxPayloadSize = 2048

	// ownIPRetry is how long a failed real-IP lookup is remembered.
	ownIPRetry = 30 * time.Second
)

var (
	errPayloadTooLarge = errors.New("echo payload too large")
	errUnexpectedField = errors.New("echo payload has unexpected field")
)

var expectedFields = map[string]bool{
	"args":    true,
	"headers": true,
	"origin":  true,
	"url":     true,
}

// Headers a proxy adds when it announces itself to the origin.
var proxyHeaders = []string{
	"Via",
	"X-Forwarded-For",
	"Forwarded",
	"X-Real-Ip",
	"Proxy-Connection",
}

type echoPayload struct {
	Headers map[string]string `json:"headers"`
	Origin  string            `json:"origin"`
}

type anonymityProbe struct {
	echoURL   string
	timeout   time.Duration
	userAgent string
	direct    *http.Client
	now       func() time.Time

	lookup   singleflight.Group
	mu       sync.Mutex
	realIP   string
	failedAt time.Time
	failure  error
}

func newAnonymityProbe(echoURL string, timeout time.Duration, userAgent string) *anonymityProbe {
	if echoURL == "" {
		echoURL = DefaultEchoURL
	}
	return &anonymityProbe{
		echoURL:   echoURL,
		timeout:   timeout,
		userAgent: userAgent,
		direct:    &http.Client{Transport: &http.Transport{}},
		now:       time.Now,
	}
}

func (a *anonymityProbe) classify(ctx context.Context, client *http.Client) string {
	realIP, err := a.ownIP(ctx)
	if err != nil {
		return verifier.Unknown
	}

	payload, err := a.fetch(ctx, client)
	if err != nil {
		return verifier.Unknown
	}
	return classifyPayload(realIP, payload)
}

// ownIP resolves the address the echo service sees without a proxy. Concurrent
// callers share one lookup and a failure is served from cache for ownIPRetry.
func (a *anonymityProbe) ownIP(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.realIP != "" {
		ip := a.realIP
		a.mu.Unlock()
		return ip, nil
	}
	if a.failure != nil && a.now().Sub(a.failedAt) < ownIPRetry {
		err := a.failure
		a.mu.Unlock()
		return "", err
	}
	a.mu.Unlock()

	v, err, _ := a.lookup.Do("own-ip", func() (any, error) {
		ip, err := a.resolveOwnIP(context.WithoutCancel(ctx))

		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.failure, a.failedAt = err, a.now()
			return "", err
		}
		a.realIP, a.failure = ip, nil
		return ip, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (a *anonymityProbe) resolveOwnIP(ctx context.Context) (string, error) {
	payload, err := a.fetch(ctx, a.direct)
	if err != nil {
		return "", err
	}
	ip := firstOrigin(payload.Origin)
	if ip == "" {
		return "", fmt.Errorf("echo returned empty origin")
	}
	return ip, nil
}

func (a *anonymityProbe) fetch(ctx context.Context, client *http.Client) (echoPayload, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, a.echoURL, nil)
	if err != nil {
		return echoPayload{}, err
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return echoPayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return echoPayload{}, fmt.Errorf("%w: %d", verifier.ErrProbeBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize+1))
	if err != nil {
		return echoPayload{}, err
	}
	return parseEcho(body)
}

func parseEcho(body []byte) (echoPayload, error) {
	if len(body) > maxPayloadSize {
		return echoPayload{}, errPayloadTooLarge
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return echoPayload{}, fmt.Errorf("decode echo payload: %w", err)
	}
	for name := range fields {
		if !expectedFields[name] {
			return echoPayload{}, fmt.Errorf("%w: %s", errUnexpectedField, name)
		}
	}

	var payload echoPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echoPayload{}, fmt.Errorf("decode echo payload: %w", err)
	}
	return payload, nil
}

func classifyPayload(realIP string, payload echoPayload) string {
	if mentionsIP(payload.Origin, realIP) {
		return verifier.Transparent
	}

	revealed := false
	for name, value := range payload.Headers {
		if mentionsIP(value, realIP) {
			return verifier.Transparent
		}
		for _, h := range proxyHeaders {
			if strings.EqualFold(name, h) {
				revealed = true
			}
		}
	}

	if revealed {
		return verifier.Anonymous
	}
	return verifier.Elite
}

// mentionsIP reports whether ip is one of the addresses listed in an origin or
// forwarding header value such as "a, b" or "for=a;proto=http".
func mentionsIP(value, ip string) bool {
	tokens := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
	for _, tok := range tokens {
		if len(tok) > 4 && strings.EqualFold(tok[:4], "for=") {
			tok = tok[4:]
		}
		tok = strings.Trim(tok, `"`)
		if host, _, err := net.SplitHostPort(tok); err == nil {
			tok = host
		}
		tok = strings.Trim(tok, "[]")
		if tok == ip {
			return true
		}
	}
	return false
}

func firstOrigin(origin string) string {
	first, _, _ := strings.Cut(origin, ",")
	return strings.TrimSpace(first)
}
