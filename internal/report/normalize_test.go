package report

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(nil, NewFormatter("en-US"), fixedClock)
}

func TestNormalize_NilSnapshot(t *testing.T) {
	n := newTestNormalizer()
	rc := n.Normalize(nil, ReportContext{PageName: "Sales"})

	assert.Equal(t, "Sales", rc.PageName)
	assert.Empty(t, rc.Filters)
	assert.Empty(t, rc.Measures)
	assert.Empty(t, rc.ColumnNames)
	assert.Empty(t, rc.TableData)
	assert.Zero(t, rc.DataRowCount)
	assert.Equal(t, "3/5/2024, 2:07:09 PM", rc.LastUpdated)
}

func TestNormalize_ZeroBoundFields(t *testing.T) {
	n := newTestNormalizer()
	for name, snap := range map[string]*Snapshot{
		"empty":       {},
		"table":       {Table: &TableData{}},
		"categorical": {Categorical: &CategoricalData{}},
	} {
		t.Run(name, func(t *testing.T) {
			rc := n.Normalize(snap, ReportContext{})
			assert.Empty(t, rc.Filters)
			assert.Empty(t, rc.Measures)
			assert.Empty(t, rc.ColumnNames)
			assert.Empty(t, rc.TableData)
			assert.Zero(t, rc.DataRowCount)
		})
	}
}

func TestNormalize_PageNameCarriesOver(t *testing.T) {
	n := newTestNormalizer()
	first := n.Normalize(&Snapshot{PageName: "Overview"}, ReportContext{})
	second := n.Normalize(&Snapshot{}, first)
	third := n.Normalize(&Snapshot{PageName: "Detail"}, second)

	assert.Equal(t, "Overview", second.PageName)
	assert.Equal(t, "Detail", third.PageName)
}

func tableWithRows(rows int) *TableData {
	t := &TableData{
		Columns: []Column{
			{DisplayName: "Region", QueryName: "Sales.Region"},
			{DisplayName: "Revenue", QueryName: "Sum(Sales.Revenue)", IsMeasure: true},
		},
	}
	for i := 0; i < rows; i++ {
		t.Rows = append(t.Rows, []any{fmt.Sprintf("R%d", i), float64(i * 10)})
	}
	return t
}

func TestNormalize_TabularRowCap(t *testing.T) {
	n := newTestNormalizer()
	for _, rows := range []int{0, 1, 49, 50, 51, 500} {
		t.Run(fmt.Sprint(rows), func(t *testing.T) {
			rc := n.Normalize(&Snapshot{Table: tableWithRows(rows)}, ReportContext{})
			assert.Len(t, rc.TableData, min(rows, MaxRows))
			assert.Equal(t, rows, rc.DataRowCount)
		})
	}
}

func TestNormalize_TabularColumnsAndMeasures(t *testing.T) {
	n := newTestNormalizer()
	snap := &Snapshot{Table: &TableData{
		Columns: []Column{
			{DisplayName: "Region"},
			{QueryName: "Sales.Product"},
			{},
			{DisplayName: "Revenue", IsMeasure: true},
			{DisplayName: "Revenue", IsMeasure: true},
		},
		Rows: [][]any{
			{"North", "Widget", true, 1234567.891, 5.0},
			{"South", "Gadget", false, 10.0},
		},
	}}

	rc := n.Normalize(snap, ReportContext{})

	assert.Equal(t, []string{"Region", "Sales.Product", "Column 3", "Revenue", "Revenue"}, rc.ColumnNames)
	require.Len(t, rc.Measures, 1, "duplicate measure names collapse to the first")
	assert.Equal(t, "Revenue", rc.Measures[0].Name)
	assert.InDelta(t, 1234567.891, rc.Measures[0].Value, 1e-9)
	assert.Equal(t, "1,234,567.89", rc.Measures[0].FormattedValue)

	require.Len(t, rc.TableData, 2)
	assert.Equal(t, "North", rc.TableData[0]["Region"])
	assert.Equal(t, "true", rc.TableData[0]["Column 3"])
	assert.Nil(t, rc.TableData[1]["Revenue"], "missing cells are nil")
}

func TestNormalize_TabularMeasureWithoutRows(t *testing.T) {
	n := newTestNormalizer()
	rc := n.Normalize(&Snapshot{Table: tableWithRows(0)}, ReportContext{})

	require.Len(t, rc.Measures, 1)
	assert.Nil(t, rc.Measures[0].Value)
	assert.Equal(t, NotAvailable, rc.Measures[0].FormattedValue)
}

func TestNormalize_TabularFilters(t *testing.T) {
	n := newTestNormalizer()
	snap := &Snapshot{Table: &TableData{
		Columns: []Column{
			{DisplayName: "Region", QueryName: "Sales.Region", Filter: json.RawMessage(`{"filterType":"Basic"}`)},
			{DisplayName: "Year", QueryName: "Calendar.Year", Filter: json.RawMessage(`"year > 2020"`)},
			{DisplayName: "Store", Filter: json.RawMessage(`null`)},
			{DisplayName: "Revenue", IsMeasure: true, Filter: json.RawMessage(`{"filterType":"Advanced"}`)},
		},
		Rows: [][]any{{"North", 2024.0, "S1", 1.0}},
	}}

	rc := n.Normalize(snap, ReportContext{})

	require.Len(t, rc.Filters, 2)
	assert.Equal(t, Filter{Table: "Sales", Column: "Region", Values: []string{FilterPlaceholder}, FilterType: "Basic"}, rc.Filters[0])
	assert.Equal(t, "Calendar", rc.Filters[1].Table)
	assert.Equal(t, "expression", rc.Filters[1].FilterType)
	assert.NotEmpty(t, rc.Filters[1].Values)
}

func TestNormalize_CategoricalAggregation(t *testing.T) {
	n := newTestNormalizer()
	snap := &Snapshot{Categorical: &CategoricalData{
		Categories: []CategoryColumn{
			{Source: Column{DisplayName: "Region"}, Values: []any{"N", "S", "E", "W"}},
		},
		Values: []ValueColumn{
			{Source: Column{DisplayName: "Revenue", IsMeasure: true}, Values: []any{10.0, nil, 20.0, "x"}},
			{Source: Column{DisplayName: "Notes"}, Values: []any{nil, "a", nil, "b"}},
		},
	}}

	rc := n.Normalize(snap, ReportContext{})

	assert.Equal(t, []string{"Region", "Revenue", "Notes"}, rc.ColumnNames)
	assert.Equal(t, 4, rc.DataRowCount)
	require.Len(t, rc.Measures, 2)
	assert.Equal(t, 30.0, rc.Measures[0].Value)
	assert.Equal(t, "30", rc.Measures[0].FormattedValue)
	assert.Nil(t, rc.Measures[1].Value, "no numeric entries means absent, not zero")
	assert.Equal(t, NotAvailable, rc.Measures[1].FormattedValue)

	require.Len(t, rc.TableData, 4)
	assert.Equal(t, map[string]any{"Region": "E", "Revenue": 20.0, "Notes": nil}, rc.TableData[2])
}

func TestNormalize_CategoricalWithoutCategories(t *testing.T) {
	n := newTestNormalizer()
	snap := &Snapshot{Categorical: &CategoricalData{
		Values: []ValueColumn{{Source: Column{DisplayName: "Total"}, Values: []any{1.0, 2.0}}},
	}}

	rc := n.Normalize(snap, ReportContext{})

	assert.Zero(t, rc.DataRowCount)
	assert.Empty(t, rc.TableData)
	assert.Equal(t, []string{"Total"}, rc.ColumnNames)
	require.Len(t, rc.Measures, 1)
	assert.Equal(t, 3.0, rc.Measures[0].Value)
}

func TestNormalize_CategoricalRowCap(t *testing.T) {
	n := newTestNormalizer()
	values := make([]any, 120)
	for i := range values {
		values[i] = fmt.Sprint(i)
	}
	snap := &Snapshot{Categorical: &CategoricalData{
		Categories: []CategoryColumn{{Source: Column{DisplayName: "ID"}, Values: values}},
	}}

	rc := n.Normalize(snap, ReportContext{})

	assert.Equal(t, 120, rc.DataRowCount)
	assert.Len(t, rc.TableData, MaxRows)
}

func TestNormalize_DateRange(t *testing.T) {
	n := newTestNormalizer()
	snap := &Snapshot{Categorical: &CategoricalData{
		Categories: []CategoryColumn{
			{Source: Column{DisplayName: "Region"}, Values: []any{"a", "b", "c"}},
			{
				Source: Column{DisplayName: "Order Date", Type: &ColumnType{DateTime: true}},
				Values: []any{"2024-03-05", "2024-01-10", "2024-02-20"},
			},
			{
				Source: Column{DisplayName: "Ship Date", Type: &ColumnType{Name: "Date"}},
				Values: []any{"2020-01-01", "2030-01-01", nil},
			},
		},
	}}

	rc := n.Normalize(snap, ReportContext{})

	assert.Equal(t, "2024-01-10 – 2024-03-05", rc.DateRange)
}

func TestNormalize_DateRangeByTypeName(t *testing.T) {
	n := newTestNormalizer()
	snap := &Snapshot{Categorical: &CategoricalData{
		Categories: []CategoryColumn{{
			Source: Column{DisplayName: "When", Type: &ColumnType{Name: "DateTime"}},
			Values: []any{"garbage", nil, "2023-12-31T10:00:00Z", float64(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli())},
		}},
	}}

	rc := n.Normalize(snap, ReportContext{})

	assert.Equal(t, "2023-06-01 – 2023-12-31", rc.DateRange)
}

func TestNormalize_TableShapeHasNoDateRange(t *testing.T) {
	n := newTestNormalizer()
	snap := &Snapshot{Table: &TableData{
		Columns: []Column{
			{DisplayName: "Region"},
			{DisplayName: "Day", Type: &ColumnType{DateTime: true}},
		},
		Rows: [][]any{
			{"North", "2024-05-02"},
			{"East", "2024-04-30"},
		},
	}}

	rc := n.Normalize(snap, ReportContext{})

	assert.Empty(t, rc.DateRange)
	assert.Equal(t, 2, rc.DataRowCount)
}

func TestNormalize_DateRangeAllUnparseable(t *testing.T) {
	n := newTestNormalizer()
	snap := &Snapshot{Categorical: &CategoricalData{
		Categories: []CategoryColumn{{
			Source: Column{DisplayName: "When", Type: &ColumnType{DateTime: true}},
			Values: []any{"soon", nil},
		}},
	}}

	rc := n.Normalize(snap, ReportContext{})

	assert.Empty(t, rc.DateRange)
}

func TestFormatter_Locales(t *testing.T) {
	assert.Equal(t, "1.234.567,5", NewFormatter("pt-BR").Number(1234567.5))
	assert.Equal(t, "1,234,567.5", NewFormatter("en-US").Number(1234567.5))
	assert.Equal(t, DefaultLocale, NewFormatter("!!").Locale())
	assert.Equal(t, "2024-03-05 14:07:09", NewFormatter("nl-NL").Timestamp(fixedClock()))
}
