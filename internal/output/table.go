package output

import (
	"io"
	"strings"
	"unicode/utf8"
)

// Table lays out rows of cells in padded columns under a header and a
// dashed rule. Columns are left aligned unless marked with AlignRight.
type Table struct {
	headers []string
	rows    [][]string
	right   map[int]bool
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, right: map[int]bool{}}
}

// AlignRight right-aligns the columns at the given positions.
func (t *Table) AlignRight(columns ...int) *Table {
	for _, c := range columns {
		t.right[c] = true
	}
	return t
}

// AddRow adds a row. Missing cells render empty; extra cells widen the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table to w. An empty table writes nothing.
func (t *Table) Render(w io.Writer) error {
	_, err := io.WriteString(w, t.String())
	return err
}

// String returns the rendered table.
func (t *Table) String() string {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return ""
	}

	widths := t.widths()
	var sb strings.Builder
	if len(t.headers) > 0 {
		t.line(&sb, t.headers, widths)
		rule := make([]string, len(widths))
		for i, width := range widths {
			rule[i] = strings.Repeat("-", width)
		}
		t.line(&sb, rule, widths)
	}
	for _, row := range t.rows {
		t.line(&sb, row, widths)
	}
	return sb.String()
}

func (t *Table) widths() []int {
	n := len(t.headers)
	for _, row := range t.rows {
		n = max(n, len(row))
	}
	widths := make([]int, n)
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	return widths
}

func (t *Table) line(sb *strings.Builder, cells []string, widths []int) {
	var row strings.Builder
	for i, width := range widths {
		if i > 0 {
			row.WriteString("  ")
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(cell))
		if t.right[i] {
			row.WriteString(pad + cell)
		} else {
			row.WriteString(cell + pad)
		}
	}
	sb.WriteString(strings.TrimRight(row.String(), " "))
	sb.WriteByte('\n')
}
