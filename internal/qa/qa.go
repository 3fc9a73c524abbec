// Package qa answers questions about the dataset with a language model.
package qa

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/tabletalk/internal/ai"
	"github.com/KaramelBytes/tabletalk/internal/apperr"
	"github.com/KaramelBytes/tabletalk/internal/dataset"
	"github.com/KaramelBytes/tabletalk/internal/logging"
	"github.com/KaramelBytes/tabletalk/internal/prompt"
	"github.com/KaramelBytes/tabletalk/internal/worker"
)

// Source provides a freshly loaded table on every call.
type Source interface {
	Load(ctx context.Context) (*dataset.Table, error)
}

// Options configures model calls.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds one question end to end; 0 means no limit beyond the caller's.
	Timeout time.Duration
}

// Answer is the model's reply plus what was sent to get it.
type Answer struct {
	Text            string        `json:"answer"`
	Model           string        `json:"model"`
	Truncated       bool          `json:"truncated"`
	RowsIncluded    int           `json:"rows_included"`
	RowsTotal       int           `json:"rows_total"`
	EstimatedTokens int           `json:"estimated_tokens"`
	Usage           ai.Usage      `json:"usage"`
	Elapsed         time.Duration `json:"elapsed_ns"`
}

// Service runs Load, Build and Generate as one job on the worker pool.
type Service struct {
	src     Source
	builder *prompt.Builder
	rt      ai.Runtime
	pool    *worker.Pool
	opts    Options
	log     logrus.FieldLogger
}

// New wires a Service. A nil pool runs jobs on the calling goroutine.
func New(src Source, b *prompt.Builder, rt ai.Runtime, pool *worker.Pool, opts Options, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{src: src, builder: b, rt: rt, pool: pool, opts: opts, log: log}
}

// Model returns the configured model name.
func (s *Service) Model() string { return s.opts.Model }

// Ask returns the complete answer to query.
func (s *Service) Ask(ctx context.Context, query string) (*Answer, error) {
	return s.run(ctx, query, nil)
}

// AskStream calls onDelta with each chunk of the answer as it arrives and
// returns the assembled answer. Runtimes without streaming yield one chunk.
// onDelta is never called after AskStream returns.
func (s *Service) AskStream(ctx context.Context, query string, onDelta func(string)) (*Answer, error) {
	return s.run(ctx, query, onDelta)
}

func (s *Service) run(ctx context.Context, query string, onDelta func(string)) (*Answer, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	start := time.Now()

	var sink *deltaSink
	if onDelta != nil {
		sink = &deltaSink{fn: onDelta}
		defer sink.close()
	}

	result := make(chan *Answer, 1)
	job := func(ctx context.Context) error {
		ans, err := s.answer(ctx, query, sink)
		if err != nil {
			return err
		}
		result <- ans
		return nil
	}

	var err error
	if s.pool != nil {
		err = s.pool.Do(ctx, job)
	} else {
		err = job(ctx)
	}
	if err != nil {
		err = apperr.Classify(err, apperr.Hint{Provider: s.opts.Provider, Model: s.opts.Model})
		s.logFailure(err, time.Since(start))
		return nil, err
	}
	ans := <-result
	ans.Elapsed = time.Since(start)
	s.log.WithFields(logrus.Fields{
		"model":     ans.Model,
		"rows":      ans.RowsIncluded,
		"truncated": ans.Truncated,
		"elapsed":   ans.Elapsed.Round(time.Millisecond),
	}).Info("question answered")
	return ans, nil
}

func (s *Service) answer(ctx context.Context, query string, sink *deltaSink) (*Answer, error) {
	tbl, err := s.src.Load(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.builder.Build(tbl, query)
	if err != nil {
		return nil, err
	}
	req := ai.GenerateRequest{
		Model:       s.opts.Model,
		Messages:    p.Messages(),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	}
	ans := &Answer{
		Model:           s.opts.Model,
		Truncated:       p.Truncated,
		RowsIncluded:    p.RowsIncluded,
		RowsTotal:       p.RowsTotal,
		EstimatedTokens: p.EstimatedTokens,
	}

	if sink != nil {
		if sr, ok := s.rt.(ai.StreamRuntime); ok {
			var sb strings.Builder
			err := sr.GenerateStream(ctx, req, func(d string) {
				sb.WriteString(d)
				sink.send(d)
			})
			if err != nil {
				return nil, err
			}
			ans.Text = sb.String()
			return ans, nil
		}
	}

	resp, err := s.rt.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	ans.Text = resp.Text()
	ans.Usage = resp.Usage
	if sink != nil {
		sink.send(ans.Text)
	}
	return ans, nil
}

func (s *Service) logFailure(err error, elapsed time.Duration) {
	kind := apperr.KindOf(err)
	s.log.WithFields(logrus.Fields{
		"kind":    kind,
		"model":   s.opts.Model,
		"elapsed": elapsed.Round(time.Millisecond),
	}).Warn(err.Error())
	if kind == apperr.KindInternal || kind == apperr.KindModelError {
		logging.Report(err, map[string]string{"kind": string(kind), "model": s.opts.Model})
	}
}

// deltaSink drops deltas once the caller has returned, since a canceled
// job may still be draining its stream.
type deltaSink struct {
	mu     sync.Mutex
	fn     func(string)
	closed bool
}

func (d *deltaSink) send(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed && s != "" {
		d.fn(s)
	}
}

func (d *deltaSink) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}
