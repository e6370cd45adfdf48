package engine

import (
	"context"
	"time"
)

// Timing holds the fixed waits of the pipeline.
type Timing struct {
	Settle     time.Duration // after each navigation, before probing
	Probe      time.Duration // upper bound for one locator
	Politeness time.Duration // between two symbols
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
