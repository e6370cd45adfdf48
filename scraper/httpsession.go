package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/session"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const maxBody = 10 << 20

var (
	chromeH1Once sync.Once
	chromeH1Spec *tls.ClientHelloSpec
)

// chromeH1 returns a Chrome ClientHello whose ALPN offers only http/1.1,
// since http.Transport cannot speak h2 over a utls connection. It is nil
// when utls cannot build the preset.
func chromeH1() *tls.ClientHelloSpec {
	chromeH1Once.Do(func() {
		spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
		if err != nil {
			return
		}
		for i, ext := range spec.Extensions {
			if alpn, ok := ext.(*tls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
				spec.Extensions[i] = alpn
				break
			}
		}
		chromeH1Spec = &spec
	})
	return chromeH1Spec
}

func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)

	var tlsConn *tls.UConn
	if spec := chromeH1(); spec != nil {
		tlsConn = tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
		if err := tlsConn.ApplyPreset(spec); err != nil {
			conn.Close()
			return nil, fmt.Errorf("scraper: apply tls spec: %w", err)
		}
	} else {
		tlsConn = tls.UClient(conn, &tls.Config{ServerName: host, NextProtos: []string{"http/1.1"}}, tls.HelloGolang)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// HTTPSession resolves locators against the server-rendered HTML of a
// page, without running scripts. Navigations are paced by a token bucket.
// It is not safe for concurrent use.
type HTTPSession struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	doc       *goquery.Document
}

// NewHTTPSession creates a session with a Chrome TLS fingerprint.
func NewHTTPSession(cfg config.BrowserConfig) *HTTPSession {
	limit := rate.Inf
	if cfg.HTTPRatePerSecond > 0 {
		limit = rate.Limit(cfg.HTTPRatePerSecond)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	}
	timeout := cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialTLSContext:    dialChromeTLS,
		ForceAttemptHTTP2: false,
	}
	return &HTTPSession{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: ua,
	}
}

// Navigate fetches url and parses it as the current document. On failure
// the previous document is dropped so later probes see nothing.
func (s *HTTPSession) Navigate(ctx context.Context, url string) error {
	s.doc = nil

	if err := s.limiter.Wait(ctx); err != nil {
		return categorizeError(err, "navigation to "+url+" failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.NewPriceError(models.ErrCodeNavigation, "invalid url "+url, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := s.client.Do(req)
	if err != nil {
		return categorizeError(err, "navigation to "+url+" failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return models.NewPriceError(models.ErrCodeNavigation,
			fmt.Sprintf("HTTP %d for %s", resp.StatusCode, url), nil)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		return models.NewPriceError(models.ErrCodeNavigation,
			fmt.Sprintf("non-html content-type %q for %s", ct, url), nil)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return models.NewPriceError(models.ErrCodeNavigation, "parse "+url, err)
	}
	s.doc = goquery.NewDocumentFromNode(root)
	return nil
}

// Text returns the text of the first element matching locator. The
// document is static, so the timeout is never waited on.
func (s *HTTPSession) Text(_ context.Context, locator string, _ time.Duration) (string, error) {
	sel, err := cascadia.Compile(locator)
	if err != nil {
		return "", fmt.Errorf("scraper: invalid locator %q: %w", locator, err)
	}
	if s.doc == nil {
		return "", session.ErrNoElement
	}
	match := s.doc.FindMatcher(sel).First()
	if match.Length() == 0 {
		return "", session.ErrNoElement
	}
	return match.Text(), nil
}

// Close drops the document and idle connections.
func (s *HTTPSession) Close() error {
	s.doc = nil
	s.client.CloseIdleConnections()
	return nil
}
