package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders numbers for display in one locale and currency.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter returns a formatter for a BCP 47 locale (e.g. "en-IN") and an
// ISO 4217 currency code (e.g. "INR").
func NewFormatter(locale, currency string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return nil, fmt.Errorf("unknown currency %q", currency)
	}
	return &Formatter{
		printer: message.NewPrinter(tag),
		symbol:  cur.Grapheme,
	}, nil
}

// Money formats an amount with the currency glyph and grouped digits, e.g.
// "₹1,00,000" in en-IN.
func (f *Formatter) Money(v float64) string {
	return f.symbol + f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// MoneyDecimal is Money for exact totals.
func (f *Formatter) MoneyDecimal(d decimal.Decimal) string {
	return f.Money(d.Round(2).InexactFloat64())
}

// Percent formats a bare number with a "%" suffix.
func (f *Formatter) Percent(v float64) string {
	return Number(v) + "%"
}

// Number formats a value with as many digits as it needs and no grouping.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AssetClass turns an asset-class id such as "debt_arbitrage" into
// "Debt Arbitrage".
func (f *Formatter) AssetClass(id string) string {
	// a Caser keeps state, so each call gets its own
	return cases.Title(language.English, cases.NoLower).String(strings.ReplaceAll(id, "_", " "))
}
