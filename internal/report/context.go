package report

// MaxRows is the number of rows materialized into ReportContext.TableData.
const MaxRows = 50

// FilterPlaceholder stands in for filter values the host does not expose.
const FilterPlaceholder = "(filter applied)"

// NotAvailable is the formatted value of a measure without a value.
const NotAvailable = "N/A"

// ReportContext is the normalized view of one snapshot. It is rebuilt on
// every update and must not be mutated once returned.
type ReportContext struct {
	PageName     string           `json:"pageName"`
	Filters      []Filter         `json:"filters"`
	Measures     []Measure        `json:"measures"`
	TableData    []map[string]any `json:"tableData"`
	ColumnNames  []string         `json:"columnNames"`
	DataRowCount int              `json:"dataRowCount"`
	LastUpdated  string           `json:"lastUpdated"`
	DateRange    string           `json:"dateRange,omitempty"`
}

// Filter is one active filter. Values is never empty.
type Filter struct {
	Table      string   `json:"table"`
	Column     string   `json:"column"`
	Values     []string `json:"values"`
	FilterType string   `json:"filterType"`
}

// Measure is a numeric field with a representative value. Value is a
// float64, a string or nil.
type Measure struct {
	Name           string `json:"name"`
	Value          any    `json:"value"`
	FormattedValue string `json:"formattedValue"`
}

// Empty returns a context with no bound data that keeps pageName.
func Empty(pageName string) ReportContext {
	return ReportContext{
		PageName:    pageName,
		Filters:     []Filter{},
		Measures:    []Measure{},
		TableData:   []map[string]any{},
		ColumnNames: []string{},
	}
}

// HasData reports whether any rows were bound.
func (rc ReportContext) HasData() bool {
	return len(rc.TableData) > 0
}

// addMeasure appends m unless a measure with the same name already exists.
func (rc *ReportContext) addMeasure(m Measure) {
	for _, existing := range rc.Measures {
		if existing.Name == m.Name {
			return
		}
	}
	rc.Measures = append(rc.Measures, m)
}
