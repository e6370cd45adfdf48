package engine

import (
	"context"
	"strings"
	"time"

	"github.com/use-agent/pricewatch/session"
)

// Probe asks the session for the text of locator within timeout. Any error,
// panic, or whitespace-only text becomes NotFound; Probe never fails.
func Probe(ctx context.Context, s session.Session, locator string, timeout time.Duration) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = NotFound()
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, err := s.Text(ctx, locator, timeout)
	if err != nil {
		return NotFound()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return NotFound()
	}
	return Found(text)
}
