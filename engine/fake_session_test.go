package engine

import (
	"context"
	"time"

	"github.com/use-agent/pricewatch/session"
)

// fakeSession serves canned element text per URL. Locators absent from a
// page yield session.ErrNoElement.
type fakeSession struct {
	pages       map[string]map[string]string
	navErrs     map[string]error
	panicOnNav  bool
	current     string
	navigations []string
	probes      []string
	closed      int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:   make(map[string]map[string]string),
		navErrs: make(map[string]error),
	}
}

func (f *fakeSession) page(url string, locators map[string]string) *fakeSession {
	f.pages[url] = locators
	return f
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	if f.panicOnNav {
		panic("renderer crashed")
	}
	f.navigations = append(f.navigations, url)
	if err := f.navErrs[url]; err != nil {
		f.current = ""
		return err
	}
	f.current = url
	return nil
}

func (f *fakeSession) Text(_ context.Context, locator string, _ time.Duration) (string, error) {
	f.probes = append(f.probes, locator)
	if text, ok := f.pages[f.current][locator]; ok {
		return text, nil
	}
	return "", session.ErrNoElement
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

const (
	nseTCS  = "https://www.nseindia.com/get-quotes/equity?symbol=TCS"
	nseINFY = "https://www.nseindia.com/get-quotes/equity?symbol=INFY"
	mcINFY  = "https://www.moneycontrol.com/india/stockpricequote/infy"
	nseBAD  = "https://www.nseindia.com/get-quotes/equity?symbol=BADSYM"
	mcBAD   = "https://www.moneycontrol.com/india/stockpricequote/badsym"
	bseBAD  = "https://www.bseindia.com/stock-share-price/badsym/"
)

var fixedNow = time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)

func noSleep(context.Context, time.Duration) error { return nil }
