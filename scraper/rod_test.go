package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/session"
)

const latePage = `<!doctype html>
<html><body><div id="root"></div>
<script>
setTimeout(function () {
  var s = document.createElement("span");
  s.className = "curr-price";
  s.textContent = "2,001.35";
  document.getElementById("root").appendChild(s);
}, 300);
</script>
</body></html>`

func newTestRodSession(t *testing.T) *RodSession {
	t.Helper()
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chromium binary found")
	}
	cfg := config.Default().Browser
	cfg.BrowserBin = bin
	cfg.NavigationTimeout = 10 * time.Second

	s, err := NewRodSession(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRodSession_Text(t *testing.T) {
	srv := newQuoteServer(t)
	s := newTestRodSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL+"/quote"))

	text, err := s.Text(ctx, "#quoteLtp", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "3,456.70", strings.TrimSpace(text))

	text, err = s.Text(ctx, ".trading_price", 5*time.Second)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(text))
}

func TestRodSession_TextMissingTimesOut(t *testing.T) {
	srv := newQuoteServer(t)
	s := newTestRodSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL+"/quote"))

	start := time.Now()
	_, err := s.Text(ctx, ".equity-ltp", 500*time.Millisecond)
	assert.ErrorIs(t, err, session.ErrNoElement)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRodSession_TextZeroTimeoutChecksOnce(t *testing.T) {
	srv := newQuoteServer(t)
	s := newTestRodSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL+"/quote"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Text(ctx, ".equity-ltp", 0)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, session.ErrNoElement)
	case <-time.After(5 * time.Second):
		t.Fatal("Text with zero timeout did not return")
	}

	text, err := s.Text(ctx, "#quoteLtp", 0)
	require.NoError(t, err)
	assert.Equal(t, "3,456.70", strings.TrimSpace(text))
}

func TestRodSession_TextWaitsForRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(latePage))
	}))
	t.Cleanup(srv.Close)

	s := newTestRodSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL+"/late"))

	text, err := s.Text(ctx, ".curr-price", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "2,001.35", text)
}

func TestRodSession_NavigateUnreachable(t *testing.T) {
	s := newTestRodSession(t)

	err := s.Navigate(context.Background(), "http://127.0.0.1:1/quote")
	assert.Error(t, err)
}

func TestRodSession_CloseTwice(t *testing.T) {
	s := newTestRodSession(t)

	first := s.Close()
	assert.Equal(t, first, s.Close())
}
