package plot

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabletalk/internal/apperr"
	"github.com/KaramelBytes/tabletalk/internal/artifact"
	"github.com/KaramelBytes/tabletalk/internal/dataset"
)

func scenarioTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable("Housing.csv", []string{"price", "area", "bedrooms"}, [][]string{
		{"13300000", "7420", "4"},
		{"12250000", "8960", "4"},
		{"9870000", "6000", "3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestRenderPriceVsArea(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plot.png")
	a, err := NewRenderer(out).Render(scenarioTable(t), "price", "area")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	msg := a.Message()
	if !strings.Contains(msg, "price") || !strings.Contains(msg, "area") {
		t.Fatalf("message = %q", msg)
	}
	if a.Path != out || a.Points != 3 || a.Skipped != 0 || a.ID == "" {
		t.Fatalf("unexpected artifact: %+v", a)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if len(data) == 0 || !bytes.Equal(data, a.PNG) {
		t.Fatal("written image should match returned bytes")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != DefaultWidth || b.Dy() != DefaultHeight {
		t.Fatalf("size = %v", b)
	}
}

func TestRenderMissingColumn(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plot.png")
	for _, pair := range [][2]string{{"price", "sqft"}, {"foo", "area"}} {
		a, err := NewRenderer(out).Render(scenarioTable(t), pair[0], pair[1])
		if a != nil {
			t.Fatal("expected no artifact")
		}
		if !apperr.Is(err, apperr.KindColumnMissing) {
			t.Fatalf("kind = %s", apperr.KindOf(err))
		}
		missing := pair[1]
		if pair[0] == "foo" {
			missing = "foo"
		}
		if !strings.Contains(apperr.Message(err), missing) {
			t.Fatalf("message %q should name %q", apperr.Message(err), missing)
		}
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no image should be written, stat err = %v", err)
	}
}

func TestRenderNamesEveryMissingColumn(t *testing.T) {
	_, err := NewRenderer(filepath.Join(t.TempDir(), "p.png")).Render(scenarioTable(t), "foo", "bar")
	msg := apperr.Message(err)
	if !strings.Contains(msg, "foo") || !strings.Contains(msg, "bar") {
		t.Fatalf("message = %q", msg)
	}
}

func TestRenderNonNumeric(t *testing.T) {
	tbl, err := dataset.NewTable("t", []string{"price", "city"}, [][]string{{"1", "Lisbon"}, {"2", "Porto"}})
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "plot.png")
	_, err = NewRenderer(out).Render(tbl, "price", "city")
	if !apperr.Is(err, apperr.KindNotNumeric) || !strings.Contains(apperr.Message(err), "city") {
		t.Fatalf("expected not_numeric naming city, got %v", err)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("no image should be written")
	}
}

func TestRenderSinglePointAndConstantColumn(t *testing.T) {
	tbl, err := dataset.NewTable("t", []string{"a", "b"}, [][]string{{"5", "7"}, {"x", "y"}})
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewRenderer(filepath.Join(t.TempDir(), "plot.png")).Render(tbl, "a", "b")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if a.Points != 1 || a.Skipped != 1 {
		t.Fatalf("points=%d skipped=%d", a.Points, a.Skipped)
	}
}

func TestRenderOverwrites(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plot.png")
	r := NewRenderer(out)
	first, err := r.Render(scenarioTable(t), "price", "area")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Render(scenarioTable(t), "area", "bedrooms")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(out)
	if !bytes.Equal(data, second.PNG) || first.ID == second.ID {
		t.Fatal("second render should replace the first")
	}
}

func TestServicePlotCachesImage(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "Housing.csv")
	if err := os.WriteFile(csv, []byte("price,area,bedrooms\n1,2,3\n4,5,6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := artifact.NewMemoryStore(4)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(dataset.NewLoader(csv, "", nil), NewRenderer(filepath.Join(dir, "plot.png")), store, nil)
	a, err := svc.Plot(context.Background(), "price", "area")
	if err != nil {
		t.Fatalf("Plot: %v", err)
	}
	img, err := svc.Image(context.Background(), a.ID)
	if err != nil || !bytes.Equal(img, a.PNG) {
		t.Fatalf("cached image mismatch: %v", err)
	}
	if _, err := svc.Image(context.Background(), "unknown"); !errors.Is(err, artifact.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	missing := NewService(dataset.NewLoader(filepath.Join(dir, "nope.csv"), "", nil), NewRenderer(filepath.Join(dir, "plot.png")), store, nil)
	if _, err := missing.Plot(context.Background(), "price", "area"); !apperr.Is(err, apperr.KindDatasetLoad) {
		t.Fatalf("expected dataset_load, got %v", err)
	}
}
