// internal/report/table.go
package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette colors used by CLI output.
var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")
	Muted   = lipgloss.Color("#6C7280")
	Text    = lipgloss.Color("#ECEFF4")
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(Magenta).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(Text).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted)
	okStyle     = lipgloss.NewStyle().Foreground(Green).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(Muted)
)

// Column is a table column. Width 0 sizes the column to its widest cell.
type Column struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// Table renders rows of strings inside a rounded border.
type Table struct {
	title   string
	columns []Column
	rows    [][]string
}

func NewTable(title string) *Table {
	return &Table{title: title}
}

// AddColumn adds a column to the table
func (t *Table) AddColumn(header string, align lipgloss.Position) *Table {
	t.columns = append(t.columns, Column{Header: header, Align: align})
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) widths() []int {
	w := make([]int, len(t.columns))
	for i, col := range t.columns {
		w[i] = col.Width
		if w[i] > 0 {
			continue
		}
		w[i] = lipgloss.Width(col.Header)
		for _, row := range t.rows {
			if i < len(row) && lipgloss.Width(row[i]) > w[i] {
				w[i] = lipgloss.Width(row[i])
			}
		}
	}
	return w
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return ""
	}
	widths := t.widths()

	var b strings.Builder
	for i, col := range t.columns {
		b.WriteString(renderCell(col.Header, widths[i], col.Align, headerStyle))
		if i < len(t.columns)-1 {
			b.WriteString("│")
		}
	}
	b.WriteString("\n")
	for i := range t.columns {
		b.WriteString(strings.Repeat("─", widths[i]+2))
		if i < len(t.columns)-1 {
			b.WriteString("┼")
		}
	}

	if len(t.rows) == 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(" no rows"))
	}
	for _, row := range t.rows {
		b.WriteString("\n")
		for i, col := range t.columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(renderCell(cell, widths[i], col.Align, cellStyle))
			if i < len(t.columns)-1 {
				b.WriteString("│")
			}
		}
	}

	body := borderStyle.Render(b.String())
	if t.title == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(t.title), body)
}

func renderCell(content string, width int, align lipgloss.Position, style lipgloss.Style) string {
	if len(content) > width {
		if width > 3 {
			content = content[:width-3] + "..."
		} else {
			content = content[:width]
		}
	}
	// Padding adds two columns on top of the content width.
	return style.Width(width + 2).Align(align).Render(content)
}

// Status renders a pass or fail badge.
func Status(ok bool, pass, fail string) string {
	if ok {
		return okStyle.Render(pass)
	}
	return failStyle.Render(fail)
}
