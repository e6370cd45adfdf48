// Package provider holds the static table of quote sources. Markup churn on
// the source sites is confined to the locator lists below.
package provider

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Case is the transform applied to a symbol before it enters a URL.
type Case int

const (
	Upper Case = iota
	Lower
)

// Provider describes one quote source: where to navigate for a symbol and
// which locators may hold the price, in the order they are tried.
type Provider struct {
	Name     string
	Template string // contains a single %s for the symbol
	Case     Case
	Locators []string
}

// URL builds the page address for symbol.
func (p Provider) URL(symbol string) string {
	s := strings.TrimSpace(symbol)
	if p.Case == Upper {
		s = strings.ToUpper(s)
	} else {
		s = strings.ToLower(s)
	}
	return fmt.Sprintf(p.Template, s)
}

// Defaults returns the three sources in priority order. Each call returns
// fresh slices, so callers may not affect one another.
func Defaults() []Provider {
	return []Provider{
		{
			Name:     "nse",
			Template: "https://www.nseindia.com/get-quotes/equity?symbol=%s",
			Case:     Upper,
			Locators: []string{
				"#quoteLtp",
				".trading_price",
				".overview-eq .equity-price",
				"span[id*='ltp']",
				".equity-ltp",
				"#priceInfoData span[id*='ltp']",
			},
		},
		{
			Name:     "moneycontrol",
			Template: "https://www.moneycontrol.com/india/stockpricequote/%s",
			Case:     Lower,
			Locators: []string{
				"#Bse_Prc_tick .span_price_wrap",
				"#nsecp",
				".inprice1",
				".price_overview .span_price_wrap",
				"div[id*='price'] .span_price_wrap",
				".overview .inprice",
				".stockprc",
			},
		},
		{
			Name:     "bse",
			Template: "https://www.bseindia.com/stock-share-price/%s/",
			Case:     Lower,
			Locators: []string{
				".curr-price",
				".stock-price",
				".price-current",
				"span[id*='price']",
			},
		},
	}
}

// Names lists provider names in order.
func Names(providers []Provider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	return names
}

// Validate checks that the table is usable: at least one provider, each
// with a name, a template with one %s, and locators that compile as CSS.
func Validate(providers []Provider) error {
	if len(providers) == 0 {
		return fmt.Errorf("provider: empty provider table")
	}
	seen := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		if p.Name == "" {
			return fmt.Errorf("provider: unnamed provider with template %q", p.Template)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("provider: duplicate name %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		if strings.Count(p.Template, "%s") != 1 {
			return fmt.Errorf("provider %s: template must contain exactly one %%s", p.Name)
		}
		if len(p.Locators) == 0 {
			return fmt.Errorf("provider %s: no locators", p.Name)
		}
		for _, loc := range p.Locators {
			if _, err := cascadia.Compile(loc); err != nil {
				return fmt.Errorf("provider %s: locator %q: %w", p.Name, loc, err)
			}
		}
	}
	return nil
}
