package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/session"
)

// Runner resolves a list of symbols sequentially over a single session.
type Runner struct {
	acquire  session.Factory
	resolver *Resolver

	Sleep  SleepFunc
	Now    func() time.Time
	Logger *slog.Logger

	// OnQuote, if set, is called after each symbol with its input index.
	OnQuote func(i int, q models.Quote)
}

// NewRunner creates a Runner that acquires sessions from acquire.
func NewRunner(acquire session.Factory, resolver *Resolver) *Runner {
	return &Runner{
		acquire:  acquire,
		resolver: resolver,
		Sleep:    Sleep,
		Now:      time.Now,
		Logger:   slog.Default(),
	}
}

// Run returns one quote per symbol, in input order. An empty list returns
// immediately without acquiring a session. The only error is a failure to
// acquire the session; per-symbol failures become sentinel quotes.
//
// The session is released on every exit path.
func (r *Runner) Run(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	sess, err := r.acquire(ctx)
	if err != nil {
		return nil, models.NewPriceError(models.ErrCodeBrowserCrash, "failed to acquire browser session", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.Logger.Warn("session close failed", "error", cerr)
		}
	}()

	politeness := r.resolver.Timing().Politeness
	quotes := make([]models.Quote, 0, len(symbols))
	for i, symbol := range symbols {
		q := r.resolveOne(ctx, sess, symbol)
		quotes = append(quotes, q)
		r.Logger.Info("fetched", "symbol", symbol, "price", q.Price, "source", q.Source,
			"progress", i+1, "total", len(symbols))

		if r.OnQuote != nil {
			r.OnQuote(i, q)
		}
		if i < len(symbols)-1 {
			_ = r.Sleep(ctx, politeness)
		}
	}
	return quotes, nil
}

func (r *Runner) resolveOne(ctx context.Context, sess session.Session, symbol string) (q models.Quote) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("error fetching symbol", "symbol", symbol, "code", models.ErrCodeInternal, "panic", rec)
			q = models.ErrorQuote(symbol, r.Now())
		}
	}()
	return r.resolver.Resolve(ctx, sess, symbol)
}
