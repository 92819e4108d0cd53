package verifier

import (
	"net/url"
	"time"
)

const (
	Transparent = "transparent"
	Anonymous   = "anonymous"
	Elite       = "elite"
	Unknown     = "unknown"
)

type Verifiable interface {
	Address() string
	URL() *url.URL
	MarkSuccess(latency time.Duration, anonymity string)
	MarkFailure()
}

type Result struct {
	Success   bool
	Latency   time.Duration
	Anonymity string
	Error     error
}
