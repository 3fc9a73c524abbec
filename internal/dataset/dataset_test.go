package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/tabletalk/internal/apperr"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

const housing = "price,area,bedrooms,furnishing\n" +
	"13300000,7420,4,furnished\n" +
	"12250000,8960,4,furnished\n" +
	"9870000,6000,3,semi-furnished\n"

func TestLoadCSVPreservesHeaderOrder(t *testing.T) {
	p := writeFile(t, "Housing.csv", housing)
	tbl, err := NewLoader(p, "", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"price", "area", "bedrooms", "furnishing"}
	if got := tbl.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	if tbl.Len() != 3 {
		t.Fatalf("rows = %d", tbl.Len())
	}
	wantKinds := []Kind{KindInt, KindInt, KindInt, KindString}
	if got := tbl.Kinds(); !reflect.DeepEqual(got, wantKinds) {
		t.Fatalf("kinds = %v", got)
	}
	if tbl.Name() != "Housing.csv" {
		t.Fatalf("name = %q", tbl.Name())
	}
}

func TestLoadMissingFile(t *testing.T) {
	var tbl *Table
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Load panicked: %v", r)
			}
		}()
		tbl, err = NewLoader(filepath.Join(t.TempDir(), "nope.csv"), "", nil).Load(context.Background())
	}()
	if tbl != nil {
		t.Fatal("expected no table")
	}
	if !apperr.Is(err, apperr.KindDatasetLoad) {
		t.Fatalf("expected dataset_load, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("cause should be preserved: %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]string{
		"empty.csv":     "",
		"quote.csv":     "a,b\n\"x,1\n",
		"toowide.csv":   "a,b\n1,2,3\n",
		"directory.csv": "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := writeFile(t, name, body)
			if name == "directory.csv" {
				p = filepath.Dir(p)
			}
			tbl, err := NewLoader(p, "", nil).Load(context.Background())
			if tbl != nil || !apperr.Is(err, apperr.KindDatasetLoad) {
				t.Fatalf("expected dataset_load error, got table=%v err=%v", tbl != nil, err)
			}
		})
	}
}

func TestLoadCanceled(t *testing.T) {
	p := writeFile(t, "a.csv", housing)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader(p, "", nil).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadTSVAndShortRows(t *testing.T) {
	p := writeFile(t, "data.tsv", "x\ty\tnote\n1\t2.5\thello\n3\n")
	tbl, err := NewLoader(p, "", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tbl.rows[1]; !reflect.DeepEqual(got, []string{"3", "", ""}) {
		t.Fatalf("short row not padded: %q", got)
	}
	if got := tbl.Kinds(); !reflect.DeepEqual(got, []Kind{KindInt, KindFloat, KindString}) {
		t.Fatalf("kinds = %v", got)
	}
}

func TestUnknownExtensionReadsAsCSV(t *testing.T) {
	p := writeFile(t, "data.txt", "a,b\n1,2\n")
	tbl, err := NewLoader(p, "", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(tbl.Columns(), []string{"a", "b"}) {
		t.Fatalf("columns = %v", tbl.Columns())
	}
	if FormatFor(p).Name() != "csv" || FormatFor("x.TSV").Name() != "tsv" || FormatFor("x.xlsx").Name() != "xlsx" {
		t.Fatal("unexpected format selection")
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Sheet1", "A1", "ignored")
	f.SetCellValue("Data", "A1", "price")
	f.SetCellValue("Data", "B1", "area")
	f.SetCellValue("Data", "A2", 100)
	f.SetCellValue("Data", "B2", 50)
	f.SetCellValue("Data", "A3", 200)
	f.SetCellValue("Data", "B3", 75)
	p := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	tbl, err := NewLoader(p, "Data", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(tbl.Columns(), []string{"price", "area"}) || tbl.Len() != 2 {
		t.Fatalf("unexpected table: %v rows=%d", tbl.Columns(), tbl.Len())
	}
	first, err := NewLoader(p, "", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load first sheet: %v", err)
	}
	if !reflect.DeepEqual(first.Columns(), []string{"ignored"}) {
		t.Fatalf("first sheet columns = %v", first.Columns())
	}
	if _, err := NewLoader(p, "Nope", nil).Load(context.Background()); !apperr.Is(err, apperr.KindDatasetLoad) {
		t.Fatalf("expected dataset_load for unknown sheet, got %v", err)
	}
}

func TestNormalizeHeader(t *testing.T) {
	tbl, err := NewTable("t", []string{"a", "a", ""}, [][]string{{"1", "2", "3"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "a.1", "Unnamed: 2"}
	if !reflect.DeepEqual(tbl.Columns(), want) {
		t.Fatalf("columns = %v", tbl.Columns())
	}
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"1.234,5", 1234.5, true},
		{"1,234.5", 1234.5, true},
		{"12%", 12, true},
		{"1 000", 1000, true},
		{"-3.5e2", -350, true},
		{"1,234", 1234, true},
		{"-12,500", -12500, true},
		{"1,234,567", 1234567, true},
		{"1.234.567", 1234567, true},
		{"1,5", 1.5, true},
		{"0,123", 0.123, true},
		{"3,14159", 3.14159, true},
		{"1 234,567", 1234.567, true},
		{"1.234", 1.234, true},
		{"", 0, false},
		{"NaN", 0, false},
		{"n/a", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumeric(c.in)
		if ok != c.ok || (ok && math.Abs(got-c.want) > 1e-9) {
			t.Errorf("ParseNumeric(%q) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestNumericAndPairs(t *testing.T) {
	tbl, err := NewTable("t", []string{"x", "y", "s"}, [][]string{
		{"1", "10", "a"},
		{"2", "", "b"},
		{"3", "30", "c"},
	})
	if err != nil {
		t.Fatal(err)
	}
	xs, ys, skipped, err := tbl.Pairs("x", "y")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(xs, []float64{1, 3}) || !reflect.DeepEqual(ys, []float64{10, 30}) || skipped != 1 {
		t.Fatalf("pairs = %v %v skipped=%d", xs, ys, skipped)
	}
	vals, skipped, err := tbl.Numeric("s")
	if err != nil || len(vals) != 0 || skipped != 3 {
		t.Fatalf("string column numeric = %v %d %v", vals, skipped, err)
	}
	if _, _, _, err := tbl.Pairs("x", "nope"); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected error naming missing column, got %v", err)
	}
	if got := tbl.Missing("x", "foo", "bar"); !reflect.DeepEqual(got, []string{"foo", "bar"}) {
		t.Fatalf("Missing = %v", got)
	}
}

func TestHeadAndText(t *testing.T) {
	tbl, err := NewTable("t", []string{"city", "n"}, [][]string{
		{"Lisbon", "1"},
		{"Porto", "2"},
		{"Braga", "3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	full := tbl.Text()
	for _, v := range []string{"Lisbon", "Porto", "Braga"} {
		if !strings.Contains(full, v) {
			t.Fatalf("text missing %q:\n%s", v, full)
		}
	}
	head := tbl.Head(2)
	if head.Len() != 2 || !reflect.DeepEqual(head.Columns(), tbl.Columns()) {
		t.Fatalf("head = %d rows %v", head.Len(), head.Columns())
	}
	if strings.Contains(head.Text(), "Braga") {
		t.Fatal("head should not render omitted rows")
	}
	if tbl.Head(10) != tbl {
		t.Fatal("head beyond length should return the table itself")
	}
}

func TestTextKeepsNamesAndCellsVerbatim(t *testing.T) {
	long := "a very long free-text cell that would normally be wrapped at thirty columns"
	tbl, err := NewTable("t", []string{"sale_price", "lot.area", "notes"}, [][]string{
		{"100", "1.5", long},
		{"200", "", "short"},
	})
	if err != nil {
		t.Fatal(err)
	}
	text := tbl.Text()
	for _, want := range []string{"sale_price", "lot.area", "notes", long, "short", "1.5"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q:\n%s", want, text)
		}
	}
	for _, bad := range []string{"SALE PRICE", "LOT AREA", "INT64", "2X3", "NaN"} {
		if strings.Contains(text, bad) {
			t.Fatalf("text contains %q:\n%s", bad, text)
		}
	}
	// header, separator lines and one line per row
	if lines := strings.Count(strings.TrimSpace(text), "\n") + 1; lines != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", lines, text)
	}
}

func TestProfile(t *testing.T) {
	p := writeFile(t, "Housing.csv", housing+"\n")
	tbl, err := NewLoader(p, "", nil).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	prof := tbl.Profile()
	if prof.Rows != 3 || len(prof.Columns) != 4 {
		t.Fatalf("profile shape: %+v", prof)
	}
	bed, ok := prof.Column("bedrooms")
	if !ok || bed.Kind != "numeric" || bed.Min != 3 || bed.Max != 4 {
		t.Fatalf("bedrooms profile: %+v", bed)
	}
	furn, _ := prof.Column("furnishing")
	if furn.Kind != "categorical" || furn.TopValues[0].Value != "furnished" || furn.TopValues[0].Count != 2 {
		t.Fatalf("furnishing profile: %+v", furn)
	}
	md := prof.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "Rows: 3", "- price: numeric", "furnished(2)"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}
