// Package plot renders scatter plots of two dataset columns.
package plot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/tabletalk/internal/apperr"
	"github.com/KaramelBytes/tabletalk/internal/artifact"
	"github.com/KaramelBytes/tabletalk/internal/dataset"
	"github.com/KaramelBytes/tabletalk/internal/logging"
	"github.com/KaramelBytes/tabletalk/internal/utils"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 500
)

// pointColor is blue at 0.7 opacity.
var pointColor = drawing.Color{R: 0, G: 0, B: 255, A: 178}

// Artifact is one rendered plot.
type Artifact struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	PNG     []byte `json:"-"`
	X       string `json:"x"`
	Y       string `json:"y"`
	Points  int    `json:"points"`
	Skipped int    `json:"skipped"`
}

// Message is the status line shown next to the image.
func (a *Artifact) Message() string { return fmt.Sprintf("Graph for %s vs %s", a.X, a.Y) }

// Renderer draws scatter plots and writes them to Path, overwriting it.
type Renderer struct {
	Path   string
	Width  int
	Height int
}

// NewRenderer returns a renderer writing 800x500 images to path.
func NewRenderer(path string) *Renderer {
	return &Renderer{Path: path, Width: DefaultWidth, Height: DefaultHeight}
}

// Render validates x and y against the table and writes the plot. Nothing is
// written when a column is missing or has no numeric values.
func (r *Renderer) Render(t *dataset.Table, x, y string) (*Artifact, error) {
	if t == nil {
		return nil, apperr.New(apperr.KindDatasetLoad, "no data available")
	}
	if missing := dedupe(t.Missing(x, y)); len(missing) > 0 {
		return nil, apperr.New(apperr.KindColumnMissing, "columns not found in the dataset: %s", quoteAll(missing))
	}
	xs, ys, skipped, err := t.Pairs(x, y)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "cannot read columns")
	}
	if len(xs) == 0 {
		return nil, apperr.New(apperr.KindNotNumeric, "no numeric values to plot: %s", nonNumeric(t, x, y))
	}

	png, err := r.draw(x, y, xs, ys)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "cannot render plot")
	}
	if err := utils.SafeWriteFile(r.Path, png); err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "cannot write plot image to %s", r.Path)
	}
	return &Artifact{
		ID:      uuid.NewString(),
		Path:    r.Path,
		PNG:     png,
		X:       x,
		Y:       y,
		Points:  len(xs),
		Skipped: skipped,
	}, nil
}

func (r *Renderer) draw(x, y string, xs, ys []float64) ([]byte, error) {
	if len(xs) == 1 {
		// go-chart needs two samples to compute a series range
		xs = []float64{xs[0], xs[0]}
		ys = []float64{ys[0], ys[0]}
	}
	w, h := r.Width, r.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	ch := chart.Chart{
		Title:  fmt.Sprintf("%s vs %s", x, y),
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Name: x, Range: paddedRange(xs)},
		YAxis: chart.YAxis{Name: y, Range: paddedRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("%s vs %s", x, y),
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    pointColor,
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// paddedRange adds 5% margin on both sides so edge points are not clipped.
// A constant column gets a unit margin.
func paddedRange(vals []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func dedupe(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func quoteAll(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = fmt.Sprintf("'%s'", c)
	}
	return strings.Join(q, ", ")
}

func nonNumeric(t *dataset.Table, x, y string) string {
	var bad []string
	for _, c := range dedupe([]string{x, y}) {
		if vals, _, _ := t.Numeric(c); len(vals) == 0 {
			bad = append(bad, c)
		}
	}
	if len(bad) == 0 {
		return fmt.Sprintf("no row has numeric values in both '%s' and '%s'", x, y)
	}
	return fmt.Sprintf("column %s has no numeric values", quoteAll(bad))
}

// Source provides a freshly loaded table on every call.
type Source interface {
	Load(ctx context.Context) (*dataset.Table, error)
}

// Service loads the dataset, renders and keeps the image addressable by id.
type Service struct {
	src      Source
	renderer *Renderer
	store    artifact.Store
	log      logrus.FieldLogger
}

// NewService wires a Service. A nil store skips caching.
func NewService(src Source, r *Renderer, store artifact.Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{src: src, renderer: r, store: store, log: log}
}

// Plot renders x against y from a freshly loaded table.
func (s *Service) Plot(ctx context.Context, x, y string) (*Artifact, error) {
	tbl, err := s.src.Load(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.renderer.Render(tbl, x, y)
	if err != nil {
		s.log.WithFields(logrus.Fields{"x": x, "y": y, "kind": apperr.KindOf(err)}).Warn(apperr.Message(err))
		if apperr.KindOf(err) == apperr.KindInternal {
			logging.Report(err, map[string]string{"kind": "internal", "op": "plot"})
		}
		return nil, err
	}
	if s.store != nil {
		if err := s.store.Put(ctx, a.ID, a.PNG); err != nil {
			var me *artifact.MirrorError
			if !errors.As(err, &me) {
				return nil, apperr.Wrap(err, apperr.KindInternal, "cannot cache plot image")
			}
			s.log.WithError(err).Warn("plot mirror failed")
		}
	}
	s.log.WithFields(logrus.Fields{"x": x, "y": y, "points": a.Points, "skipped": a.Skipped, "id": a.ID}).Info("plot rendered")
	return a, nil
}

// Image returns a previously rendered image.
func (s *Service) Image(ctx context.Context, id string) ([]byte, error) {
	if s.store == nil {
		return nil, artifact.ErrNotFound
	}
	return s.store.Get(ctx, id)
}
