package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/provider"
	"github.com/use-agent/pricewatch/session"
)

// Attempt records one step of a resolution: a navigation failure, or one
// probed locator.
type Attempt struct {
	Provider string
	URL      string
	Locator  string // empty for a navigation failure
	Outcome  Outcome
}

// Code is the error code for a failed attempt, or "" when it found a price.
func (a Attempt) Code() string {
	switch a.Outcome.Kind() {
	case KindNavigationError:
		return models.ErrCodeNavigation
	case KindNotFound:
		return models.ErrCodeNotFound
	}
	return ""
}

// Resolver walks the provider chain for one symbol at a time.
//
// Providers are tried in table order. A navigation error forfeits the
// provider without probing its locators. Within a provider, locators are
// probed in order and the first Found ends the whole resolution. When every
// provider is exhausted the quote carries models.ErrorPrice.
type Resolver struct {
	providers []provider.Provider
	timing    Timing

	Sleep  SleepFunc
	Now    func() time.Time
	Logger *slog.Logger
}

// NewResolver creates a Resolver over providers, which must already be valid.
func NewResolver(providers []provider.Provider, timing Timing) *Resolver {
	return &Resolver{
		providers: providers,
		timing:    timing,
		Sleep:     Sleep,
		Now:       time.Now,
		Logger:    slog.Default(),
	}
}

// Timing returns the waits the resolver was built with.
func (r *Resolver) Timing() Timing { return r.timing }

// Resolve returns exactly one quote for symbol. It never fails: every error
// is absorbed into the sentinel price.
func (r *Resolver) Resolve(ctx context.Context, s session.Session, symbol string) models.Quote {
	q, _ := r.ResolveTrace(ctx, s, symbol)
	return q
}

// ResolveTrace is Resolve plus the ordered list of attempts made.
func (r *Resolver) ResolveTrace(ctx context.Context, s session.Session, symbol string) (q models.Quote, trace []Attempt) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("resolver panic", "symbol", symbol, "code", models.ErrCodeInternal, "panic", rec)
			q = models.ErrorQuote(symbol, r.Now())
		}
	}()

	for _, p := range r.providers {
		out, attempts := r.tryProvider(ctx, s, p, symbol)
		trace = append(trace, attempts...)
		if out.Kind() == KindFound {
			r.Logger.Info("price found", "symbol", symbol, "provider", p.Name, "price", out.Text())
			return models.NewQuote(symbol, out.Text(), p.Name, r.Now()), trace
		}
	}

	r.Logger.Warn("all providers exhausted", "symbol", symbol,
		"code", models.ErrCodeExhausted, "attempts", len(trace))
	return models.ErrorQuote(symbol, r.Now()), trace
}

func (r *Resolver) tryProvider(ctx context.Context, s session.Session, p provider.Provider, symbol string) (Outcome, []Attempt) {
	url := p.URL(symbol)
	r.Logger.Info("fetching", "symbol", symbol, "provider", p.Name, "url", url)

	if err := s.Navigate(ctx, url); err != nil {
		out := NavigationError(err)
		a := Attempt{Provider: p.Name, URL: url, Outcome: out}
		r.Logger.Warn("provider navigation failed", "symbol", symbol, "provider", p.Name,
			"code", a.Code(), "error", err)
		return out, []Attempt{a}
	}

	// Client-side rendering needs time before the first probe.
	_ = r.Sleep(ctx, r.timing.Settle)

	attempts := make([]Attempt, 0, len(p.Locators))
	for _, loc := range p.Locators {
		out := Probe(ctx, s, loc, r.timing.Probe)
		attempts = append(attempts, Attempt{Provider: p.Name, URL: url, Locator: loc, Outcome: out})
		if out.Kind() == KindFound {
			r.Logger.Debug("selector worked", "provider", p.Name, "locator", loc)
			return out, attempts
		}
		r.Logger.Debug("selector failed", "provider", p.Name, "locator", loc, "code", models.ErrCodeNotFound)
	}
	return NotFound(), attempts
}
