package report

import (
	"slices"
	"strings"
	"time"
)

const dateRangeLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// dateRange formats "earliest – latest" for the first date-typed category.
// Later date columns are ignored.
func dateRange(categories []CategoryColumn) string {
	for _, cat := range categories {
		if cat.Source.isDateTyped() {
			return formatRange(cat.Values)
		}
	}
	return ""
}

func formatRange(values []any) string {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		if d, ok := parseDate(v); ok {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return ""
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates[0].Format(dateRangeLayout) + " – " + dates[len(dates)-1].Format(dateRangeLayout)
}

// parseDate accepts date strings in common layouts and numbers as epoch
// milliseconds.
func parseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true
			}
		}
	case float64:
		return time.UnixMilli(int64(val)).UTC(), true
	case int64:
		return time.UnixMilli(val).UTC(), true
	case time.Time:
		return val, true
	}
	return time.Time{}, false
}
