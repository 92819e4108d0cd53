package adapters

import (
	"context"
	"net/url"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/JulianoL13/proxy-rotator/internal/verifier"
)

type BatchRunner interface {
	Execute(ctx context.Context, proxies []verifier.Verifiable) []verifier.Verifiable
}

type VerifierAdapter struct {
	usecase BatchRunner
}

func NewVerifierAdapter(uc BatchRunner) *VerifierAdapter {
	return &VerifierAdapter{usecase: uc}
}

func (a *VerifierAdapter) ValidateBatch(ctx context.Context, proxies []*proxy.Proxy) []*proxy.Proxy {
	verifiables := make([]verifier.Verifiable, len(proxies))
	for i, p := range proxies {
		verifiables[i] = verifiableProxy{p: p}
	}

	passed := a.usecase.Execute(ctx, verifiables)

	alive := make([]*proxy.Proxy, 0, len(passed))
	for _, v := range passed {
		if vp, ok := v.(verifiableProxy); ok {
			alive = append(alive, vp.p)
		}
	}
	return alive
}

// verifiableProxy maps the checker's string verdicts onto the domain type.
type verifiableProxy struct {
	p *proxy.Proxy
}

func (v verifiableProxy) Address() string { return v.p.Address() }
func (v verifiableProxy) URL() *url.URL   { return v.p.URL() }

func (v verifiableProxy) MarkSuccess(latency time.Duration, anonymity string) {
	v.p.MarkSuccess(latency, proxy.AnonymityLevelFromString(anonymity))
}

func (v verifiableProxy) MarkFailure() { v.p.MarkFailure() }

var _ proxy.BatchValidator = (*VerifierAdapter)(nil)
