package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/olekukonko/tablewriter"
	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
)

// Numeric reports whether values of this kind parse as numbers.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Table is an in-memory dataset with named columns in header order.
// Rows hold the raw cell text, padded to the header width.
type Table struct {
	name    string
	columns []string
	kinds   []Kind
	rows    [][]string
	df      *dataframe.DataFrame
}

// NewTable builds a Table from a header and rows. Column kinds are inferred.
func NewTable(name string, header []string, rows [][]string) (*Table, error) {
	cols, err := normalizeHeader(header)
	if err != nil {
		return nil, err
	}
	norm := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) > len(cols) {
			if !isBlank(r[len(cols):]) {
				return nil, fmt.Errorf("row %d has %d fields, header has %d", i+2, len(r), len(cols))
			}
			r = r[:len(cols)]
		}
		row := make([]string, len(cols))
		copy(row, r)
		norm[i] = row
	}
	kinds := make([]Kind, len(cols))
	for j := range cols {
		kinds[j] = inferKind(norm, j)
	}
	return build(name, cols, kinds, norm), nil
}

func build(name string, cols []string, kinds []Kind, rows [][]string) *Table {
	series := make([]dataframe.Series, len(cols))
	for j, c := range cols {
		series[j] = newSeries(c, kinds[j], rows, j)
	}
	return &Table{
		name:    name,
		columns: cols,
		kinds:   kinds,
		rows:    rows,
		df:      dataframe.NewDataFrame(series...),
	}
}

func newSeries(name string, kind Kind, rows [][]string, col int) dataframe.Series {
	vals := make([]interface{}, len(rows))
	for i, r := range rows {
		v := strings.TrimSpace(r[col])
		if IsMissing(v) {
			continue
		}
		switch kind {
		case KindInt:
			n, _ := parseInt(v)
			vals[i] = n
		case KindFloat:
			f, _ := ParseNumeric(v)
			vals[i] = f
		default:
			vals[i] = r[col]
		}
	}
	si := &dataframe.SeriesInit{Capacity: len(rows)}
	switch kind {
	case KindInt:
		return dataframe.NewSeriesInt64(name, si, vals...)
	case KindFloat:
		return dataframe.NewSeriesFloat64(name, si, vals...)
	default:
		return dataframe.NewSeriesString(name, si, vals...)
	}
}

// normalizeHeader names blank columns "Unnamed: i" and suffixes duplicates
// with ".1", ".2" so every column is addressable.
func normalizeHeader(header []string) ([]string, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("empty header row")
	}
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", base, n)
		}
		used[name] = true
		out[i] = name
	}
	return out, nil
}

// Name is the source file name.
func (t *Table) Name() string { return t.name }

// Columns returns the column names in header order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Kinds returns the inferred kind of each column, aligned with Columns.
func (t *Table) Kinds() []Kind {
	out := make([]Kind, len(t.kinds))
	copy(out, t.kinds)
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	for i, c := range t.columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether col is a column of the table.
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Missing returns the names in cols that are not columns of the table.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Head returns a table limited to the first n rows, keeping column kinds.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n >= len(t.rows) {
		return t
	}
	return build(t.name, t.columns, t.kinds, t.rows[:n])
}

// Text renders every row as an aligned text table. Column names and cell
// values appear exactly as loaded: no header reformatting, no wrapping.
func (t *Table) Text() string {
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeader(t.df.Names())
	tw.AppendBulk(t.rows)
	tw.Render()
	return b.String()
}

// number returns cell (i, j) as a float. Numeric columns read the typed
// dataframe series; string columns fall back to parsing the raw text.
func (t *Table) number(i, j int) (float64, bool) {
	if !t.kinds[j].Numeric() {
		return ParseNumeric(t.rows[i][j])
	}
	switch v := t.df.Series[j].Value(i).(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, !math.IsNaN(v)
	}
	return 0, false
}

// Numeric returns the parseable numeric values of col. Missing and
// non-numeric cells are skipped and counted.
func (t *Table) Numeric(col string) (vals []float64, skipped int, err error) {
	j := t.Index(col)
	if j < 0 {
		return nil, 0, fmt.Errorf("unknown column %q", col)
	}
	for i := range t.rows {
		if f, ok := t.number(i, j); ok {
			vals = append(vals, f)
		} else {
			skipped++
		}
	}
	return vals, skipped, nil
}

// Pairs returns aligned (x, y) values for rows where both cells are numeric.
func (t *Table) Pairs(x, y string) (xs, ys []float64, skipped int, err error) {
	if missing := t.Missing(x, y); len(missing) > 0 {
		return nil, nil, 0, fmt.Errorf("unknown columns: %s", strings.Join(missing, ", "))
	}
	xi, yi := t.Index(x), t.Index(y)
	for i := range t.rows {
		xv, okx := t.number(i, xi)
		yv, oky := t.number(i, yi)
		if !okx || !oky {
			skipped++
			continue
		}
		xs = append(xs, xv)
		ys = append(ys, yv)
	}
	return xs, ys, skipped, nil
}
