// Package format renders money and calendar dates for display.
package format

import (
	"strings"
	"unicode"

	"bizdash/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	DefaultLocale   = "pt-BR"
	DefaultCurrency = "BRL"
)

// dateLayouts maps a language (or full tag) to its short date layout.
var dateLayouts = map[string]string{
	"pt":    "02/01/2006",
	"es":    "02/01/2006",
	"fr":    "02/01/2006",
	"it":    "02/01/2006",
	"en-GB": "02/01/2006",
	"de":    "02.01.2006",
	"en":    "01/02/2006",
}

// Formatter formats values for one locale and default currency.
type Formatter struct {
	tag      language.Tag
	printer  *message.Printer
	currency string
	group    string
	point    string
}

// New builds a formatter. An unparsable locale falls back to pt-BR and an
// empty currency to BRL.
func New(locale, currencyCode string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	if currencyCode == "" {
		currencyCode = DefaultCurrency
	}
	f := &Formatter{
		tag:      tag,
		printer:  message.NewPrinter(tag),
		currency: strings.ToUpper(currencyCode),
	}
	f.group, f.point = separators(f.printer)
	return f
}

// separators reads the locale's grouping and decimal marks off a sample
// number, which the printer renders as 1<group>234<group>567<point>50.
func separators(p *message.Printer) (group, point string) {
	var marks []string
	for _, r := range p.Sprint(number.Decimal(1234567.5, number.Scale(2))) {
		if !unicode.IsDigit(r) {
			marks = append(marks, string(r))
		}
	}
	switch len(marks) {
	case 0:
		return "", "."
	case 1:
		return "", marks[0]
	}
	return marks[0], marks[len(marks)-1]
}

var std = New(DefaultLocale, DefaultCurrency)

// Currency formats amount in the pt-BR locale, in BRL unless code says
// otherwise.
func Currency(amount decimal.Decimal, code string) string {
	return std.Currency(amount, code)
}

// Date formats an ISO date (YYYY-MM-DD or RFC 3339) as dd/mm/yyyy.
// Malformed input is returned unchanged.
func Date(iso string) string {
	return std.Date(iso)
}

// Currency renders amount with the currency symbol and the locale's digit
// grouping, always with two decimals. An empty code uses the formatter's
// currency; an unknown one is printed as is in place of a symbol.
func (f *Formatter) Currency(amount decimal.Decimal, code string) string {
	if code == "" {
		code = f.currency
	}
	symbol := strings.ToUpper(code)
	if unit, err := currency.ParseISO(code); err == nil {
		symbol = f.printer.Sprint(currency.Symbol(unit))
	}

	rounded := amount.Round(2)
	digits := f.digits(rounded.Abs())
	if rounded.IsNegative() {
		return "-" + symbol + " " + digits
	}
	return symbol + " " + digits
}

// digits groups the integer part of a non-negative amount in threes. It
// works on the decimal's text so large amounts keep every digit.
func (f *Formatter) digits(amount decimal.Decimal) string {
	whole, frac, _ := strings.Cut(amount.StringFixed(2), ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(f.group)
		}
		b.WriteRune(r)
	}
	b.WriteString(f.point)
	b.WriteString(frac)
	return b.String()
}

// Date renders an ISO date in the locale's short numeric layout.
func (f *Formatter) Date(iso string) string {
	d, err := core.ParseDate(iso)
	if err != nil {
		return iso
	}
	return d.Format(f.dateLayout())
}

func (f *Formatter) dateLayout() string {
	if l, ok := dateLayouts[f.tag.String()]; ok {
		return l
	}
	base, _ := f.tag.Base()
	if l, ok := dateLayouts[base.String()]; ok {
		return l
	}
	return core.DateLayout
}
