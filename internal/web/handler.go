package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/tabletalk/internal/apperr"
	"github.com/KaramelBytes/tabletalk/internal/artifact"
	"github.com/KaramelBytes/tabletalk/internal/dataset"
	"github.com/KaramelBytes/tabletalk/internal/logging"
	"github.com/KaramelBytes/tabletalk/internal/plot"
	"github.com/KaramelBytes/tabletalk/internal/qa"
)

//go:embed static/index.html
var static embed.FS

const maxBodyBytes = 1 << 20

// Asker answers questions about the dataset.
type Asker interface {
	Ask(ctx context.Context, query string) (*qa.Answer, error)
	AskStream(ctx context.Context, query string, onDelta func(string)) (*qa.Answer, error)
}

// Plotter renders plots and serves the cached images.
type Plotter interface {
	Plot(ctx context.Context, x, y string) (*plot.Artifact, error)
	Image(ctx context.Context, id string) ([]byte, error)
}

// TableSource loads the current dataset.
type TableSource interface {
	Load(ctx context.Context) (*dataset.Table, error)
}

// Options configures the UI handler.
type Options struct {
	// PlotColumns, when set, restricts the plot pickers to these columns.
	PlotColumns []string
	Model       string
	DatasetPath string
}

// Handler holds the UI's dependencies. The two tabs share nothing but these.
type Handler struct {
	asker   Asker
	plotter Plotter
	tables  TableSource
	opts    Options
	log     logrus.FieldLogger
}

// NewHandler wires the UI handler.
func NewHandler(asker Asker, plotter Plotter, tables TableSource, opts Options, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{asker: asker, plotter: plotter, tables: tables, opts: opts, log: log}
}

// Routes returns the full handler with middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /api/columns", h.handleColumns)
	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("GET /api/query/stream", h.handleQueryStream)
	mux.HandleFunc("POST /api/plot", h.handlePlot)
	mux.HandleFunc("GET /plots/{file}", h.handleImage)
	return AccessLog(h.log)(CORS(mux))
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		writeError(w, apperr.Wrap(err, apperr.KindInternal, "index page missing"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok", "model": h.opts.Model, "dataset": h.opts.DatasetPath})
}

type columnsResponse struct {
	Dataset     string   `json:"dataset"`
	Rows        int      `json:"rows"`
	Columns     []column `json:"columns"`
	PlotOptions []string `json:"plot_options"`
}

type column struct {
	Name string       `json:"name"`
	Kind dataset.Kind `json:"kind"`
}

func (h *Handler) handleColumns(w http.ResponseWriter, r *http.Request) {
	tbl, err := h.tables.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	names, kinds := tbl.Columns(), tbl.Kinds()
	resp := columnsResponse{Dataset: tbl.Name(), Rows: tbl.Len(), Columns: make([]column, len(names))}
	for i, n := range names {
		resp.Columns[i] = column{Name: n, Kind: kinds[i]}
	}
	resp.PlotOptions = PlotOptions(names, h.opts.PlotColumns)
	writeOK(w, resp)
}

// PlotOptions returns the picker choices: every column, or the allow-list
// intersected with the columns, in header order.
func PlotOptions(columns, allow []string) []string {
	if len(allow) == 0 {
		return columns
	}
	ok := make(map[string]bool, len(allow))
	for _, a := range allow {
		ok[strings.TrimSpace(a)] = true
	}
	out := []string{}
	for _, c := range columns {
		if ok[c] {
			out = append(out, c)
		}
	}
	return out
}

type queryRequest struct {
	Query string `json:"query"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ans, err := h.asker.Ask(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, ans)
}

type plotRequest struct {
	X string `json:"x"`
	Y string `json:"y"`
}

type plotResponse struct {
	Message  string `json:"message"`
	Path     string `json:"path"`
	ImageURL string `json:"image_url"`
	*plot.Artifact
}

func (h *Handler) handlePlot(w http.ResponseWriter, r *http.Request) {
	var req plotRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.X) == "" || strings.TrimSpace(req.Y) == "" {
		writeError(w, apperr.New(apperr.KindBadRequest, "choose both an X and a Y column"))
		return
	}
	a, err := h.plotter.Plot(r.Context(), req.X, req.Y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, plotResponse{
		Message:  a.Message(),
		Path:     a.Path,
		ImageURL: "/plots/" + a.ID + ".png",
		Artifact: a,
	})
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok || id == "" {
		writeError(w, apperr.New(apperr.KindBadRequest, "unknown image"))
		return
	}
	data, err := h.plotter.Image(r.Context(), id)
	if errors.Is(err, artifact.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, envelope{Error: &errorBody{Kind: apperr.KindBadRequest, Message: "image not found or expired; generate the graph again"}})
		return
	}
	if err != nil {
		writeError(w, apperr.Wrap(err, apperr.KindInternal, "cannot read image"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.KindBadRequest, "request body is empty")
		}
		return apperr.Wrap(err, apperr.KindBadRequest, "invalid JSON body")
	}
	return nil
}
