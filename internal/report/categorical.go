package report

func (n *Normalizer) normalizeCategorical(c *CategoricalData, rc *ReportContext) {
	rc.ColumnNames = extract(n, "categorical.columns", []string{}, func() []string {
		names := make([]string, 0, len(c.Categories)+len(c.Values))
		for i, cat := range c.Categories {
			names = append(names, columnName(cat.Source, i))
		}
		for i, val := range c.Values {
			names = append(names, columnName(val.Source, len(c.Categories)+i))
		}
		return names
	})

	rc.DataRowCount = extract(n, "categorical.count", 0, func() int {
		if len(c.Categories) == 0 {
			return 0
		}
		return len(c.Categories[0].Values)
	})

	rc.TableData = extract(n, "categorical.rows", []map[string]any{}, func() []map[string]any {
		limit := min(rc.DataRowCount, MaxRows)
		rows := make([]map[string]any, 0, limit)
		for i := 0; i < limit; i++ {
			row := make(map[string]any, len(c.Categories)+len(c.Values))
			for j, cat := range c.Categories {
				row[columnName(cat.Source, j)] = at(cat.Values, i)
			}
			for j, val := range c.Values {
				row[columnName(val.Source, len(c.Categories)+j)] = at(val.Values, i)
			}
			rows = append(rows, row)
		}
		return rows
	})

	measures := extract(n, "categorical.measures", []Measure{}, func() []Measure {
		out := make([]Measure, 0, len(c.Values))
		for j, val := range c.Values {
			total, ok := sumNumeric(val.Values)
			var v any
			if ok {
				v = total
			}
			out = append(out, Measure{
				Name:           columnName(val.Source, len(c.Categories)+j),
				Value:          v,
				FormattedValue: n.format.Value(v),
			})
		}
		return out
	})
	for _, m := range measures {
		rc.addMeasure(m)
	}

	rc.DateRange = extract(n, "categorical.dateRange", "", func() string {
		return dateRange(c.Categories)
	})
}

func at(values []any, i int) any {
	if i < len(values) {
		return scalar(values[i])
	}
	return nil
}

// sumNumeric adds up the numeric entries of values. ok is false when no
// entry is numeric.
func sumNumeric(values []any) (total float64, ok bool) {
	for _, v := range values {
		f, isNum := scalar(v).(float64)
		if !isNum {
			continue
		}
		total += f
		ok = true
	}
	return total, ok
}
