package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"camroll/internal/organize"
)

// errorMessageWidth wraps long Dropbox error summaries.
const errorMessageWidth = 72

// metric is one labelled row of a summary table.
type metric struct {
	label string
	value string
}

func countMetric(label string, n int) metric {
	return metric{label: label, value: strconv.Itoa(n)}
}

// renderMetrics draws label/value rows with the values right-aligned. A
// non-empty title is printed on its own line above the table.
func renderMetrics(title, header string, metrics []metric) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{header, "Value"})
	for _, m := range metrics {
		tw.AppendRow(table.Row{m.label, m.value})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	if title == "" {
		return tw.Render()
	}
	return title + "\n" + tw.Render()
}

func renderRunErrors(errs []organize.RunError) string {
	if len(errs) == 0 {
		return ""
	}
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Scope", "Kind", "Error"})
	for _, e := range errs {
		tw.AppendRow(table.Row{e.Scope, e.Kind, e.Message})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: errorMessageWidth, WidthMaxEnforcer: text.WrapSoft},
	})
	return tw.Render()
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}
