package report

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"StockLens/internal/calculator"
	"StockLens/internal/collector"
	"StockLens/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

// PreviewRows is the number of rows shown in the data preview.
const PreviewRows = 5

var (
	ruleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

func rule() string {
	return ruleStyle.Render(strings.Repeat("=", 50))
}

// FormatBanner formats the download announcement.
func FormatBanner(name, symbol string, start, end time.Time) string {
	var b strings.Builder
	b.WriteString("\n" + rule() + "\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s(%s) download started...", name, symbol)) + "\n")
	b.WriteString(fmt.Sprintf("Period: %s ~ %s\n", start.Format(model.DateLayout), end.Format(model.DateLayout)))
	b.WriteString(rule() + "\n")
	return b.String()
}

// FormatSuccess formats the download result.
func FormatSuccess(res *collector.Result) string {
	var b strings.Builder
	b.WriteString(okStyle.Render("✓ Download succeeded!") + "\n")
	b.WriteString(okStyle.Render(fmt.Sprintf("✓ Rows: %d", res.Table.Len())) + "\n")
	b.WriteString(okStyle.Render(fmt.Sprintf("✓ Saved file: %s", res.Path)) + "\n")
	return b.String()
}

func formatPrice(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatPreview formats the first rows of the raw table. Hierarchical tables
// show "Field/Ticker" column headers.
func FormatPreview(t *model.Table) string {
	head := t.Head(PreviewRows)
	fields := head.Schema.Fields()

	headers := make([]string, 0, len(fields)+1)
	headers = append(headers, "Date")
	if hs, ok := head.Schema.(model.HierarchicalSchema); ok {
		for _, c := range hs.Columns {
			headers = append(headers, c.Field+"/"+c.Ticker)
		}
	} else {
		headers = append(headers, fields...)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(ruleStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, values := range head.Rows {
		cells := make([]string, 0, len(values)+1)
		cells = append(cells, head.Index[i].Format(model.DateLayout))
		for j, v := range values {
			if fields[j] == model.FieldVolume && !math.IsNaN(v) {
				cells = append(cells, humanize.Comma(int64(v)))
				continue
			}
			cells = append(cells, formatPrice(v))
		}
		tbl.Row(cells...)
	}

	return "\nData preview:\n" + tbl.String() + "\n"
}

func commaf(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return humanize.CommafWithDigits(v, 2)
}

// FormatDescribe formats descriptive statistics of the close column.
func FormatDescribe(s calculator.Summary) string {
	var b strings.Builder
	b.WriteString("\nClose statistics:\n")
	rows := []struct {
		label string
		value string
	}{
		{"count", humanize.Comma(int64(s.Count))},
		{"mean", commaf(s.Mean)},
		{"std", commaf(s.Std)},
		{"min", commaf(s.Min)},
		{"25%", commaf(s.Q25)},
		{"50%", commaf(s.Median)},
		{"75%", commaf(s.Q75)},
		{"max", commaf(s.Max)},
	}
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %-6s %14s\n", r.label, r.value))
	}
	b.WriteString(rule() + "\n")
	return b.String()
}

// FormatFailure formats a fetch failure for the user.
func FormatFailure(err error) string {
	if errors.Is(err, collector.ErrEmptyResult) {
		return failStyle.Render("✗ No data returned. Check the symbol code.") + "\n"
	}
	var b strings.Builder
	b.WriteString(failStyle.Render(fmt.Sprintf("✗ Error: %v", err)) + "\n")
	b.WriteString(hintStyle.Render("Check the symbol code format (e.g. 035420.KS, 304100.KQ)") + "\n")
	return b.String()
}
