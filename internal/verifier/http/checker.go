package httpverifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/common/logs"
	"github.com/JulianoL13/proxy-rotator/internal/verifier"
)

const (
	DefaultTimeout   = 5 * time.Second
	defaultUserAgent = "ProxyRotator/1.0"
	maxDrainSize     = 64 << 10
)

var DefaultTargetURLs = []string{
	"http://www.google.com",
	"https://www.amazon.com",
	"https://www.github.com",
}

// Checker probes a proxy by fetching every target URL through it. The proxy
// passes only when every probe answers 2xx within Timeout.
type Checker struct {
	TargetURLs []string
	Timeout    time.Duration
	UserAgent  string
	logger     logs.Logger

	anonymity *anonymityProbe
}

func NewChecker(targets []string, timeout time.Duration, logger logs.Logger) *Checker {
	if len(targets) == 0 {
		targets = DefaultTargetURLs
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		TargetURLs: targets,
		Timeout:    timeout,
		UserAgent:  defaultUserAgent,
		logger:     logger,
	}
}

// WithAnonymityCheck classifies passing proxies against the echo endpoint.
// The check never turns a pass into a failure.
func (c *Checker) WithAnonymityCheck(echoURL string) *Checker {
	c.anonymity = newAnonymityProbe(echoURL, c.Timeout, c.UserAgent)
	return c
}

func (c *Checker) Verify(ctx context.Context, p verifier.Verifiable) verifier.Result {
	proxyURL, err := candidateURL(p)
	if err != nil {
		return verifier.Result{Error: err}
	}

	client := c.clientFor(proxyURL)

	start := time.Now()
	for _, target := range c.TargetURLs {
		if err := c.probe(ctx, client, target); err != nil {
			c.logger.Debug("probe failed", "address", p.Address(), "target", target, "error", err)
			return verifier.Result{Latency: time.Since(start), Error: err}
		}
	}
	latency := time.Since(start)

	anonymity := verifier.Unknown
	if c.anonymity != nil {
		anonymity = c.anonymity.classify(ctx, client)
	}

	return verifier.Result{
		Success:   true,
		Latency:   latency,
		Anonymity: anonymity,
	}
}

func (c *Checker) clientFor(proxyURL *url.URL) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyURL(proxyURL),
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: c.Timeout,
	}
	return &http.Client{Transport: transport}
}

func (c *Checker) probe(ctx context.Context, client *http.Client, target string) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", verifier.ErrProbeConnectionFailed, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", verifier.ErrProbeBadStatus, resp.StatusCode)
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))
	return nil
}

func classifyError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", verifier.ErrProbeTimeout, err)
	}
	return fmt.Errorf("%w: %w", verifier.ErrProbeConnectionFailed, err)
}

func candidateURL(p verifier.Verifiable) (*url.URL, error) {
	u := p.URL()
	if u == nil {
		return nil, fmt.Errorf("%w: missing url", verifier.ErrInvalidCandidate)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", verifier.ErrInvalidCandidate, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: empty host", verifier.ErrInvalidCandidate)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: bad port %q", verifier.ErrInvalidCandidate, u.Port())
	}
	return u, nil
}
