package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no locale is configured or it cannot be parsed.
const DefaultLocale = "en-US"

var timestampLayouts = map[string]string{
	"en-US": "1/2/2006, 3:04:05 PM",
	"en-GB": "02/01/2006, 15:04:05",
	"pt-BR": "02/01/2006 15:04:05",
	"de-DE": "02.01.2006, 15:04:05",
	"fr-FR": "02/01/2006 15:04:05",
	"es-ES": "2/1/2006, 15:04:05",
}

const fallbackTimestampLayout = "2006-01-02 15:04:05"

// Formatter renders numbers and timestamps using one locale.
type Formatter struct {
	locale  string
	printer *message.Printer
}

// NewFormatter returns a Formatter for a BCP 47 locale such as "pt-BR".
// Unparseable locales fall back to DefaultLocale.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		locale = DefaultLocale
		tag = language.AmericanEnglish
	}
	return &Formatter{locale: locale, printer: message.NewPrinter(tag)}
}

// Locale returns the locale the formatter was built for.
func (f *Formatter) Locale() string {
	return f.locale
}

// Number formats v with locale thousands separators and at most two
// fraction digits.
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// Value formats a measure value: numbers via Number, strings as-is, nil as N/A.
func (f *Formatter) Value(v any) string {
	switch val := v.(type) {
	case nil:
		return NotAvailable
	case float64:
		return f.Number(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// Timestamp formats t in the locale's date-time convention.
func (f *Formatter) Timestamp(t time.Time) string {
	layout, ok := timestampLayouts[f.locale]
	if !ok {
		layout = fallbackTimestampLayout
	}
	return t.Format(layout)
}

// scalar normalizes a cell value into a string, float64 or nil.
func scalar(v any) any {
	switch val := v.(type) {
	case nil, string, float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
