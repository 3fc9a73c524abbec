package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Profile summarizes a table column by column.
type Profile struct {
	Name    string          `json:"name"`
	Rows    int             `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
}

// ColumnProfile holds per-column statistics. Numeric fields are set only
// for numeric columns, TopValues only for categorical ones.
type ColumnProfile struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // numeric|categorical|text|empty
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique,omitempty"`

	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`

	TopValues []ValueCount `json:"top_values,omitempty"`
	Examples  []string     `json:"examples,omitempty"`
}

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

const (
	maxCategoryLen = 64
	maxTopValues   = 8
)

// Profile computes statistics over every row of the table.
func (t *Table) Profile() *Profile {
	p := &Profile{Name: t.name, Rows: len(t.rows), Columns: make([]ColumnProfile, len(t.columns))}
	for j, name := range t.columns {
		c := ColumnProfile{Name: name}
		var (
			n        int
			mean, m2 float64
			min      = math.Inf(1)
			max      = math.Inf(-1)
		)
		cats := map[string]int{}
		longText := false
		for _, r := range t.rows {
			v := strings.TrimSpace(r[j])
			if IsMissing(v) {
				c.Missing++
				continue
			}
			c.NonNull++
			if t.kinds[j].Numeric() {
				x, ok := ParseNumeric(v)
				if !ok {
					continue
				}
				// Welford update
				n++
				if x < min {
					min = x
				}
				if x > max {
					max = x
				}
				delta := x - mean
				mean += delta / float64(n)
				m2 += delta * (x - mean)
				continue
			}
			if len(v) > maxCategoryLen {
				longText = true
			}
			cats[v]++
			if len(c.Examples) < 3 {
				c.Examples = append(c.Examples, v)
			}
		}
		switch {
		case c.NonNull == 0:
			c.Kind = "empty"
		case t.kinds[j].Numeric() && n > 0:
			c.Kind = "numeric"
			c.Min, c.Max, c.Mean = min, max, mean
			if n > 1 {
				c.Std = math.Sqrt(m2 / float64(n-1))
			}
		case !longText:
			c.Kind = "categorical"
			c.Unique = len(cats)
			c.TopValues = topValues(cats, maxTopValues)
		default:
			c.Kind = "text"
			c.Unique = len(cats)
		}
		p.Columns[j] = c
	}
	return p
}

func topValues(cats map[string]int, limit int) []ValueCount {
	tops := make([]ValueCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, ValueCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// Column returns the profile of the named column.
func (p *Profile) Column(name string) (ColumnProfile, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// Markdown renders a compact report suitable for prompts or the terminal.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(p.Columns)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Columns {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeVal(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf("; min %.6g, max %.6g, mean %.6g, std %.6g", c.Min, c.Max, c.Mean, c.Std))
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case "text":
			if len(c.Examples) > 0 {
				b.WriteString("; e.g., ")
				for i, ex := range c.Examples {
					if i > 0 {
						b.WriteString(" | ")
					}
					if len(ex) > 80 {
						ex = ex[:77] + "..."
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
