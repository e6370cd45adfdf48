package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/provider"
	"github.com/use-agent/pricewatch/session"
	"github.com/use-agent/pricewatch/session/sessionmock"
)

func newTestResolver() *Resolver {
	r := NewResolver(provider.Defaults(), Timing{Probe: 15 * time.Second})
	r.Sleep = noSleep
	r.Now = func() time.Time { return fixedNow }
	return r
}

func TestResolve_PrimaryFirstLocator(t *testing.T) {
	s := newFakeSession().page(nseTCS, map[string]string{"#quoteLtp": "3,450.10"})

	q, trace := newTestResolver().ResolveTrace(context.Background(), s, "TCS")

	assert.Equal(t, models.Quote{Symbol: "TCS", Price: "3,450.10", Timestamp: "2025-06-02 10:30:00", Source: "nse"}, q)
	assert.Equal(t, []string{nseTCS}, s.navigations)
	assert.Equal(t, []string{"#quoteLtp"}, s.probes)
	require.Len(t, trace, 1)
	assert.Equal(t, KindFound, trace[0].Outcome.Kind())
}

func TestResolve_LocatorOrderShortCircuits(t *testing.T) {
	s := newFakeSession().page(nseTCS, map[string]string{
		".trading_price":  "  ",
		"span[id*='ltp']": "3,451.00",
		".equity-ltp":     "should not be read",
	})

	q := newTestResolver().Resolve(context.Background(), s, "TCS")

	assert.Equal(t, "3,451.00", q.Price)
	assert.Equal(t, []string{
		"#quoteLtp",
		".trading_price",
		".overview-eq .equity-price",
		"span[id*='ltp']",
	}, s.probes)
}

func TestResolve_ProviderOrder_OnlyTertiaryMatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := sessionmock.NewMockSession(ctrl)
	ps := provider.Defaults()

	gomock.InOrder(
		s.EXPECT().Navigate(gomock.Any(), ps[0].URL("BADSYM")).Return(nil),
		s.EXPECT().Text(gomock.Any(), gomock.Any(), gomock.Any()).Return("", session.ErrNoElement).Times(len(ps[0].Locators)),
		s.EXPECT().Navigate(gomock.Any(), ps[1].URL("BADSYM")).Return(nil),
		s.EXPECT().Text(gomock.Any(), gomock.Any(), gomock.Any()).Return("", session.ErrNoElement).Times(len(ps[1].Locators)),
		s.EXPECT().Navigate(gomock.Any(), ps[2].URL("BADSYM")).Return(nil),
		s.EXPECT().Text(gomock.Any(), ".curr-price", 15*time.Second).Return("2,001.35", nil),
	)

	q := newTestResolver().Resolve(context.Background(), s, "BADSYM")

	assert.Equal(t, "2,001.35", q.Price)
	assert.Equal(t, "bse", q.Source)
}

func TestResolve_NavigationErrorForfeitsProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := sessionmock.NewMockSession(ctrl)
	ps := provider.Defaults()

	gomock.InOrder(
		s.EXPECT().Navigate(gomock.Any(), ps[0].URL("INFY")).Return(errors.New("net::ERR_CONNECTION_RESET")),
		s.EXPECT().Navigate(gomock.Any(), ps[1].URL("INFY")).Return(nil),
		s.EXPECT().Text(gomock.Any(), "#Bse_Prc_tick .span_price_wrap", gomock.Any()).Return("1,650.00", nil),
	)

	q, trace := newTestResolver().ResolveTrace(context.Background(), s, "INFY")

	assert.Equal(t, "1,650.00", q.Price)
	require.Len(t, trace, 2)
	assert.Equal(t, KindNavigationError, trace[0].Outcome.Kind())
	assert.Empty(t, trace[0].Locator)
	assert.EqualError(t, trace[0].Outcome.Err(), "net::ERR_CONNECTION_RESET")
}

func TestResolve_AllExhausted(t *testing.T) {
	s := newFakeSession()

	q, trace := newTestResolver().ResolveTrace(context.Background(), s, "BADSYM")

	assert.Equal(t, models.Quote{Symbol: "BADSYM", Price: "Error", Timestamp: "2025-06-02 10:30:00"}, q)
	assert.Equal(t, []string{nseBAD, mcBAD, bseBAD}, s.navigations)

	total := 0
	for _, p := range provider.Defaults() {
		total += len(p.Locators)
	}
	assert.Len(t, trace, total)
}

func TestResolve_ExhaustionCodes(t *testing.T) {
	s := newFakeSession()
	s.navErrs[mcBAD] = errors.New("net::ERR_NAME_NOT_RESOLVED")

	var logs bytes.Buffer
	r := newTestResolver()
	r.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	_, trace := r.ResolveTrace(context.Background(), s, "BADSYM")

	codes := make(map[string]int)
	for _, a := range trace {
		codes[a.Code()]++
	}
	assert.Equal(t, 1, codes[models.ErrCodeNavigation])
	assert.Equal(t, len(trace)-1, codes[models.ErrCodeNotFound])
	assert.Contains(t, logs.String(), "code="+models.ErrCodeExhausted)
	assert.Contains(t, logs.String(), "code="+models.ErrCodeNavigation)
}

func TestAttempt_CodeEmptyWhenFound(t *testing.T) {
	assert.Empty(t, Attempt{Outcome: Found("3,450.10")}.Code())
}

func TestResolve_SettleDelayAfterEachNavigation(t *testing.T) {
	s := newFakeSession()
	s.navErrs[mcBAD] = errors.New("timeout")

	r := newTestResolver()
	r.timing.Settle = 5 * time.Second
	var slept []time.Duration
	r.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	r.Resolve(context.Background(), s, "BADSYM")

	// moneycontrol failed to navigate, so only nse and bse settle.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, slept)
}

func TestResolve_PanicBecomesSentinel(t *testing.T) {
	s := newFakeSession()
	s.panicOnNav = true

	var logs bytes.Buffer
	r := newTestResolver()
	r.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	q := r.Resolve(context.Background(), s, "TCS")

	assert.True(t, q.Failed())
	assert.Equal(t, "TCS", q.Symbol)
	assert.Contains(t, logs.String(), "code="+models.ErrCodeInternal)
}

func TestResolve_Idempotent(t *testing.T) {
	s := newFakeSession().
		page(nseTCS, map[string]string{".equity-ltp": "3,450.10"}).
		page(mcINFY, map[string]string{".stockprc": "1,650.00"})
	r := newTestResolver()

	for i := 0; i < 3; i++ {
		assert.Equal(t, "3,450.10", r.Resolve(context.Background(), s, "TCS").Price)
		assert.Equal(t, "1,650.00", r.Resolve(context.Background(), s, "INFY").Price)
	}
}
