// Package money formats integer amounts in a currency's smallest unit for
// display in a given locale.
package money

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var symbols = map[string]string{
	"VND": "₫",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Formatter renders amounts like "800.000 ₫" (vi) or "$1,234.56" (en).
type Formatter struct {
	lang    language.Tag
	unit    currency.Unit
	printer *message.Printer
	scale   int
}

// New builds a formatter from a BCP 47 locale and an ISO 4217 code.
func New(locale, code string) (*Formatter, error) {
	lang, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("money: locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("money: currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return &Formatter{lang: lang, unit: unit, printer: message.NewPrinter(lang), scale: scale}, nil
}

// MustNew is New that panics; for tests and package-level defaults.
func MustNew(locale, code string) *Formatter {
	f, err := New(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Formatter) Currency() string { return f.unit.String() }

// Format renders amount (in the smallest unit of the currency).
func (f *Formatter) Format(amount int64) string {
	var n string
	if f.scale == 0 {
		n = f.printer.Sprint(number.Decimal(amount))
	} else {
		major := float64(amount) / math.Pow10(f.scale)
		n = f.printer.Sprint(number.Decimal(major, number.Scale(f.scale)))
	}
	sym, ok := symbols[f.unit.String()]
	if !ok {
		return n + " " + f.unit.String()
	}
	base, _ := f.lang.Base()
	switch base.String() {
	case "vi", "fr", "de", "es", "it":
		return n + " " + sym
	}
	return sym + n
}

// Percent renders a discount badge such as "-20%".
func (f *Formatter) Percent(p int) string {
	if p <= 0 {
		return ""
	}
	return fmt.Sprintf("-%d%%", p)
}
