// Package session defines the browser handle the resolver drives. The
// implementations live in package scraper.
package session

//go:generate mockgen -source=session.go -destination=sessionmock/mock_session.go -package=sessionmock

import (
	"context"
	"errors"
	"time"
)

// ErrNoElement is returned by Text when no element matches the locator
// before the timeout.
var ErrNoElement = errors.New("session: no element matches locator")

// Session is a stateful, navigable document handle. It is not safe for
// concurrent use; one owner drives it at a time.
type Session interface {
	// Navigate loads url, replacing the current document.
	Navigate(ctx context.Context, url string) error

	// Text waits up to timeout for an element matching the CSS locator in
	// the current document and returns its displayed text. A non-positive
	// timeout checks the document once without waiting.
	Text(ctx context.Context, locator string, timeout time.Duration) (string, error)

	// Close releases the session. Calling it more than once is harmless.
	Close() error
}

// Factory acquires a new Session.
type Factory func(ctx context.Context) (Session, error)
