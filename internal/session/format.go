package session

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// locales maps a UI language code to the concrete locale used for number
// and currency rendering.
var locales = map[string]language.Tag{
	"en": language.AmericanEnglish,
	"es": language.EuropeanSpanish,
	"fr": language.French,
	"de": language.German,
	"it": language.Italian,
	"pt": language.BrazilianPortuguese,
	"ru": language.Russian,
	"zh": language.SimplifiedChinese,
	"ja": language.Japanese,
	"ko": language.Korean,
	"ar": language.Arabic,
	"hi": language.Hindi,
	"bn": language.Bengali,
	"ne": language.MustParse("ne"),
}

// FormatCurrency renders cents as a localized amount with the currency
// symbol. Unknown codes fall back to a plain "CODE 12.34" rendering.
func FormatCurrency(cents int64, code, lang string) string {
	amount := float64(cents) / 100

	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", code, amount)
	}

	tag, ok := locales[lang]
	if !ok {
		tag = language.AmericanEnglish
	}

	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(unit.Amount(amount)))
}
