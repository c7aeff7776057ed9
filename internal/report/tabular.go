package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

func (n *Normalizer) normalizeTable(t *TableData, rc *ReportContext) {
	rc.ColumnNames = extract(n, "table.columns", []string{}, func() []string {
		names := make([]string, 0, len(t.Columns))
		for i, c := range t.Columns {
			names = append(names, columnName(c, i))
		}
		return names
	})

	rc.DataRowCount = len(t.Rows)

	rc.TableData = extract(n, "table.rows", []map[string]any{}, func() []map[string]any {
		limit := min(len(t.Rows), MaxRows)
		rows := make([]map[string]any, 0, limit)
		for _, src := range t.Rows[:limit] {
			row := make(map[string]any, len(rc.ColumnNames))
			for i, name := range rc.ColumnNames {
				var v any
				if i < len(src) {
					v = scalar(src[i])
				}
				row[name] = v
			}
			rows = append(rows, row)
		}
		return rows
	})

	measures := extract(n, "table.measures", []Measure{}, func() []Measure {
		var out []Measure
		for i, c := range t.Columns {
			if !c.IsMeasure {
				continue
			}
			// The first row is used as a representative sample, not an aggregate.
			var v any
			if len(t.Rows) > 0 && i < len(t.Rows[0]) {
				v = scalar(t.Rows[0][i])
			}
			out = append(out, Measure{
				Name:           columnName(c, i),
				Value:          v,
				FormattedValue: n.format.Value(v),
			})
		}
		return out
	})
	for _, m := range measures {
		rc.addMeasure(m)
	}

	rc.Filters = extract(n, "table.filters", []Filter{}, func() []Filter {
		out := []Filter{}
		for i, c := range t.Columns {
			if c.IsMeasure || !c.hasFilter() {
				continue
			}
			out = append(out, Filter{
				Table:      tableOf(c.QueryName),
				Column:     columnName(c, i),
				Values:     []string{FilterPlaceholder},
				FilterType: n.filterType(c.Filter),
			})
		}
		return out
	})
}

// tableOf returns the table part of a "Table.Column" query name.
func tableOf(queryName string) string {
	table, _, ok := strings.Cut(queryName, ".")
	if !ok {
		return ""
	}
	return table
}

// filterType reads the filterType field of a filter expression, defaulting to
// "expression" when absent or unreadable.
func (n *Normalizer) filterType(raw json.RawMessage) string {
	var expr struct {
		FilterType any `json:"filterType"`
	}
	if err := json.Unmarshal(raw, &expr); err != nil {
		n.log.WithError(err).Debug("filter expression is not a JSON object")
		return "expression"
	}
	switch v := expr.FilterType.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%g", v)
	}
	return "expression"
}
