package context

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stupiduntilnot/reportchat/internal/report"
)

// DefaultMaxTableBytes bounds the rendered data sample.
const DefaultMaxTableBytes = 16 * 1024

const preamble = "You are an expert data analyst embedded in a business intelligence report. " +
	"You answer questions about the data currently displayed on the report page, " +
	"using the context below as your primary source."

const reasoning = "Think step by step before answering: identify the fields, filters and measures " +
	"relevant to the question, work out the values you need from the context, and only then write " +
	"the final answer."

const noFilters = "No filters applied - the context covers the full dataset."

const bindDataNotice = "No data fields are bound to this visual. Tell the user to bind data fields " +
	"(columns or measures) to the visual so the data can be analysed."

// PromptBuilder serializes a ReportContext into a system prompt.
type PromptBuilder struct {
	// Language the model must answer in.
	Language string
	// MaxTableBytes bounds the tab-separated data sample.
	MaxTableBytes int
}

// BuildPrompt renders rc with the default builder settings.
func BuildPrompt(rc report.ReportContext) string {
	return (PromptBuilder{}).Build(rc)
}

// Build renders rc. The output depends only on rc and the builder fields.
func (b PromptBuilder) Build(rc report.ReportContext) string {
	language := b.Language
	if strings.TrimSpace(language) == "" {
		language = "English"
	}
	maxTable := b.MaxTableBytes
	if maxTable <= 0 {
		maxTable = DefaultMaxTableBytes
	}

	var sb strings.Builder
	sb.WriteString(preamble)
	sb.WriteString("\n\n")
	sb.WriteString(reasoning)
	sb.WriteString("\n\n")

	sb.WriteString("## REPORT CONTEXT\n")
	fmt.Fprintf(&sb, "Page: %s\n", orDefault(rc.PageName, "(unnamed page)"))
	fmt.Fprintf(&sb, "Last updated: %s\n", orDefault(rc.LastUpdated, "(unknown)"))
	fmt.Fprintf(&sb, "Total rows: %d\n", rc.DataRowCount)
	if rc.DateRange != "" {
		fmt.Fprintf(&sb, "Date range: %s\n", rc.DateRange)
	}
	sb.WriteString("\n")

	sb.WriteString("## ACTIVE FILTERS\n")
	if len(rc.Filters) == 0 {
		sb.WriteString(noFilters + "\n")
	}
	for _, f := range rc.Filters {
		field := f.Column
		if f.Table != "" {
			field = f.Table + "." + f.Column
		}
		fmt.Fprintf(&sb, "- %s: %s (%s)\n", field, strings.Join(f.Values, ", "), f.FilterType)
	}
	sb.WriteString("\n")

	if len(rc.Measures) > 0 {
		sb.WriteString("## MEASURES\n")
		for _, m := range rc.Measures {
			fmt.Fprintf(&sb, "- %s: %s\n", m.Name, m.FormattedValue)
		}
		sb.WriteString("\n")
	}

	if len(rc.ColumnNames) > 0 {
		sb.WriteString("## COLUMNS\n")
		sb.WriteString(strings.Join(rc.ColumnNames, ", "))
		sb.WriteString("\n\n")
	}

	if rc.HasData() {
		writeTable(&sb, rc, maxTable)
	} else {
		sb.WriteString("## DATA\n")
		sb.WriteString(bindDataNotice + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## INSTRUCTIONS\n")
	sb.WriteString("1. Prioritize the report context above over general knowledge.\n")
	sb.WriteString("2. If the context does not contain enough data to answer, say so explicitly.\n")
	sb.WriteString("3. Be concise and quantitative: cite the figures you rely on.\n")
	fmt.Fprintf(&sb, "4. Respond in %s.\n", language)

	return sb.String()
}

func writeTable(sb *strings.Builder, rc report.ReportContext, maxBytes int) {
	header := make([]string, len(rc.ColumnNames))
	for i, name := range rc.ColumnNames {
		header[i] = cell(name)
	}

	lines := make([]string, 0, len(rc.TableData)+1)
	lines = append(lines, strings.Join(header, "\t"))
	size := len(lines[0]) + 1
	for _, row := range rc.TableData {
		values := make([]string, len(rc.ColumnNames))
		for i, name := range rc.ColumnNames {
			values[i] = cell(row[name])
		}
		line := strings.Join(values, "\t")
		if size+len(line)+1 > maxBytes {
			break
		}
		size += len(line) + 1
		lines = append(lines, line)
	}
	shown := len(lines) - 1

	fmt.Fprintf(sb, "## DATA SAMPLE (%d of %d rows)\n", shown, rc.DataRowCount)
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if omitted := len(rc.TableData) - shown; omitted > 0 {
		fmt.Fprintf(sb, "(%d sampled rows omitted to fit the size limit)\n", omitted)
	}
}

// cell renders one value for the tab-separated table.
func cell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		s = fmt.Sprint(val)
	}
	return strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
