package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/session"
	"github.com/ysmood/gson"
)

// RodSession drives one tab of a headless Chromium launched for the session.
// It is not safe for concurrent use.
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	navTO    time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewRodSession launches the browser and prepares a single page:
//
//  1. Launch        – headless Chromium with fixed window size and user agent
//  2. Connect       – CDP connection to the launched process
//  3. Page          – one tab reused for every navigation
//  4. Emulation     – viewport, user agent, Accept-Language header
//  5. Stealth       – navigator.webdriver masking (before any navigation!)
//  6. Hijack        – drop images/fonts/media and ad hosts (before any navigation!)
func NewRodSession(cfg config.BrowserConfig) (*RodSession, error) {
	// ── 1. Launch ────────────────────────────────────────────────────
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	if cfg.UserAgent != "" {
		l.Set(flags.Flag("user-agent"), cfg.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewPriceError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	// ── 2. Connect ───────────────────────────────────────────────────
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, models.NewPriceError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	navTO := cfg.NavigationTimeout
	if navTO <= 0 {
		navTO = defaultNavigationTimeout
	}
	s := &RodSession{launcher: l, browser: browser, navTO: navTO}

	// ── 3. Page ──────────────────────────────────────────────────────
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, models.NewPriceError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}
	s.page = page

	// ── 4. Emulation ─────────────────────────────────────────────────
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.WindowWidth,
		Height:            cfg.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("viewport emulation failed", "error", err)
	}
	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: acceptLanguage,
		}); err != nil {
			slog.Warn("user agent override failed", "error", err)
		}
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": acceptLanguage}),
	}.Call(page)

	// ── 5. Stealth ───────────────────────────────────────────────────
	if cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 6. Hijack ────────────────────────────────────────────────────
	s.router = setupHijack(page, cfg.BlockedResourceTypes, cfg.BlockAds)

	return s, nil
}

// Navigate loads url and waits for the load event, bounded by the
// configured navigation timeout.
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, s.navTO)
	defer cancel()
	p := s.page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return categorizeError(err, "navigation to "+url+" failed")
	}
	if err := p.WaitLoad(); err != nil {
		slog.Debug("load event not observed, proceeding with current DOM", "url", url, "error", err)
	}
	return nil
}

// Text waits for the first element matching locator and returns its
// rendered text. rod retries the query until the context expires. A
// non-positive timeout queries once.
func (s *RodSession) Text(ctx context.Context, locator string, timeout time.Duration) (string, error) {
	p := s.page.Context(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		p = s.page.Context(ctx)
	} else {
		p = p.Sleeper(rod.NotFoundSleeper)
	}

	el, err := p.Element(locator)
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &notFound) {
			return "", session.ErrNoElement
		}
		return "", err
	}
	return el.Text()
}

// Close stops request interception and kills the browser process.
// Call this on every exit path to prevent zombie Chrome processes.
func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if s.page != nil {
			_ = s.page.Close()
		}
		s.closeErr = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
		slog.Info("browser closed")
	})
	return s.closeErr
}

const (
	acceptLanguage           = "en-US,en;q=0.9"
	defaultNavigationTimeout = 30 * time.Second
)

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed PriceErrors.
func categorizeError(err error, msg string) *models.PriceError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewPriceError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewPriceError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewPriceError(models.ErrCodeNavigation, msg, err)
	}
}

// NewFactory returns the session.Factory for cfg.Engine.
func NewFactory(cfg config.BrowserConfig) session.Factory {
	if cfg.Engine == "http" {
		return func(context.Context) (session.Session, error) {
			return NewHTTPSession(cfg), nil
		}
	}
	return func(context.Context) (session.Session, error) {
		s, err := NewRodSession(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
