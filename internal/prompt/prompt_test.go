package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabletalk/internal/apperr"
	"github.com/KaramelBytes/tabletalk/internal/dataset"
)

func housing(t *testing.T, rows int) *dataset.Table {
	t.Helper()
	recs := make([][]string, rows)
	for i := range recs {
		recs[i] = []string{fmt.Sprint(1000 + i), fmt.Sprint(50 + i), "city" + fmt.Sprint(i)}
	}
	tbl, err := dataset.NewTable("Housing.csv", []string{"price", "area", "city"}, recs)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestBuildContainsQueryAndFullTable(t *testing.T) {
	tbl := housing(t, 3)
	q := "What is the average price?"
	p, err := NewBuilder(Policy{MaxRows: DefaultMaxRows}).Build(tbl, q)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p.System, q) {
		t.Fatal("system prompt missing literal query")
	}
	if !strings.Contains(p.System, tbl.Text()) {
		t.Fatal("system prompt missing full table text")
	}
	if p.User != q {
		t.Fatalf("user = %q", p.User)
	}
	if p.Truncated || p.RowsIncluded != 3 || p.RowsTotal != 3 {
		t.Fatalf("unexpected size report: %+v", p)
	}
	if p.EstimatedTokens <= 0 || p.Sections["table"] <= 0 {
		t.Fatalf("expected token estimates, got %d %v", p.EstimatedTokens, p.Sections)
	}
	msgs := p.Messages()
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" || msgs[1].Content != q {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestBuildEmbedsNamesAndCellsVerbatim(t *testing.T) {
	note := "renovated kitchen in 2019, new roof, close to the river and two schools"
	tbl, err := dataset.NewTable("h.csv", []string{"sale_price", "lot.area", "notes"}, [][]string{
		{"13300000", "7420", note},
		{"12250000", "8960", "corner lot"},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	p, err := NewBuilder(Policy{MaxRows: DefaultMaxRows}).Build(tbl, "Which lot is largest?")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, want := range []string{"sale_price", "lot.area", "notes", note, "corner lot", "13300000"} {
		if !strings.Contains(p.System, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, p.System)
		}
	}
	for _, bad := range []string{"SALE PRICE", "INT64", "STRING"} {
		if strings.Contains(p.System, bad) {
			t.Fatalf("system prompt contains reformatted text %q:\n%s", bad, p.System)
		}
	}
}

func TestBuildEmptyQueryPassesThrough(t *testing.T) {
	p, err := NewBuilder(Policy{}).Build(housing(t, 2), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.User != "" || !strings.Contains(p.System, "[QUESTION]\n\n") {
		t.Fatalf("empty query should be embedded as-is: %q", p.User)
	}
}

func TestBuildTruncatesLargeTables(t *testing.T) {
	tbl := housing(t, 40)
	p, err := NewBuilder(Policy{MaxRows: 10}).Build(tbl, "max price?")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !p.Truncated || p.RowsIncluded != 10 || p.RowsTotal != 40 {
		t.Fatalf("unexpected size report: %+v", p)
	}
	if !strings.Contains(p.System, tbl.Head(10).Text()) {
		t.Fatal("missing head rows")
	}
	if strings.Contains(p.System, "city39") {
		t.Fatal("omitted rows should not be embedded")
	}
	if !strings.Contains(p.System, "30 rows were omitted") {
		t.Fatalf("missing omission note:\n%s", p.System)
	}
	if !strings.Contains(p.System, "Rows: 40") {
		t.Fatal("summary should cover the full table")
	}
}

func TestBuildRejectsOversizedPrompt(t *testing.T) {
	_, err := NewBuilder(Policy{MaxTokens: 10}).Build(housing(t, 20), "q")
	if !apperr.Is(err, apperr.KindPromptTooLarge) {
		t.Fatalf("expected prompt_too_large, got %v", err)
	}
}

func TestBuildNilTable(t *testing.T) {
	if _, err := NewBuilder(Policy{}).Build(nil, "q"); !apperr.Is(err, apperr.KindDatasetLoad) {
		t.Fatalf("expected dataset_load, got %v", err)
	}
}
