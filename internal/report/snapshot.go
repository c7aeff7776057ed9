package report

import "encoding/json"

// Snapshot is the host-supplied description of the data bound to the active
// report page. Exactly one of Table or Categorical is normally set; when both
// are present the tabular shape is used.
type Snapshot struct {
	PageName    string           `json:"pageName,omitempty"`
	Table       *TableData       `json:"table,omitempty"`
	Categorical *CategoricalData `json:"categorical,omitempty"`
}

// Column describes one bound field.
type Column struct {
	DisplayName string          `json:"displayName,omitempty"`
	QueryName   string          `json:"queryName,omitempty"`
	IsMeasure   bool            `json:"isMeasure,omitempty"`
	Filter      json.RawMessage `json:"filter,omitempty"`
	Type        *ColumnType     `json:"type,omitempty"`
}

// ColumnType is the host's type descriptor for a column.
type ColumnType struct {
	DateTime bool   `json:"dateTime,omitempty"`
	Name     string `json:"name,omitempty"`
}

// TableData is the tabular shape: rows are aligned to Columns by index.
type TableData struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// CategoricalData is the categorical shape: parallel dimension and measure
// columns, each holding one value per category combination.
type CategoricalData struct {
	Categories []CategoryColumn `json:"categories"`
	Values     []ValueColumn    `json:"values"`
}

// CategoryColumn is a dimension column with its values.
type CategoryColumn struct {
	Source Column `json:"source"`
	Values []any  `json:"values"`
}

// ValueColumn is a measure column with its values.
type ValueColumn struct {
	Source Column `json:"source"`
	Values []any  `json:"values"`
}

func (c Column) hasFilter() bool {
	trimmed := string(c.Filter)
	return len(c.Filter) > 0 && trimmed != "null"
}

func (c Column) isDateTyped() bool {
	if c.Type == nil {
		return false
	}
	if c.Type.DateTime {
		return true
	}
	return containsFold(c.Type.Name, "date") || containsFold(c.Type.Name, "time")
}
