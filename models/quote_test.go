package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewQuote_TimestampLayout(t *testing.T) {
	at := time.Date(2025, 3, 7, 9, 5, 1, 0, time.UTC)

	q := NewQuote("TCS", "3,450.10", "nse", at)

	assert.Equal(t, "2025-03-07 09:05:01", q.Timestamp)
	assert.False(t, q.Failed())
}

func TestErrorQuote(t *testing.T) {
	q := ErrorQuote("BADSYM", time.Now())

	assert.Equal(t, "Error", q.Price)
	assert.Empty(t, q.Source)
	assert.True(t, q.Failed())
}

func TestPriceError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPriceError(ErrCodeNavigation, "navigation failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NAVIGATION_FAILED: navigation failed: connection refused", err.Error())
	assert.Equal(t, &ErrorDetail{Code: ErrCodeNavigation, Message: "navigation failed"}, err.ToDetail())
}
