package web

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabletalk/internal/dataset"
	"github.com/KaramelBytes/tabletalk/internal/qa"
	"github.com/KaramelBytes/tabletalk/internal/worker"
)

// blockingAsker runs every question on the pool and waits for cancellation.
type blockingAsker struct {
	pool    *worker.Pool
	started chan struct{}
	aborted chan error
}

func newBlockingAsker(pool *worker.Pool) *blockingAsker {
	return &blockingAsker{pool: pool, started: make(chan struct{}, 1), aborted: make(chan error, 1)}
}

func (b *blockingAsker) Ask(ctx context.Context, q string) (*qa.Answer, error) {
	return b.AskStream(ctx, q, nil)
}

func (b *blockingAsker) AskStream(ctx context.Context, _ string, _ func(string)) (*qa.Answer, error) {
	err := b.pool.Do(ctx, func(jobCtx context.Context) error {
		b.started <- struct{}{}
		<-jobCtx.Done()
		return jobCtx.Err()
	})
	b.aborted <- err
	return nil, err
}

func startServer(t *testing.T, asker Asker) (*Server, string) {
	t.Helper()
	loader := dataset.NewLoader(filepath.Join(t.TempDir(), "none.csv"), "", nil)
	h := NewHandler(asker, nil, loader, Options{}, nil)
	srv := NewServer("127.0.0.1:0", h.Routes(), nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	return srv, ln.Addr().String()
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func shutdownAndCheck(t *testing.T, srv *Server, pool *worker.Pool, asker *blockingAsker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-asker.aborted:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("running question was not canceled by shutdown")
	}

	closed := make(chan struct{})
	go func() { pool.Close(); close(closed) }()
	waitFor(t, closed, "pool to drain")
}

func TestShutdownCancelsRunningQuery(t *testing.T) {
	pool := worker.New(1, nil)
	asker := newBlockingAsker(pool)
	srv, addr := startServer(t, asker)

	go func() {
		res, err := http.Post("http://"+addr+"/api/query", "application/json", bytes.NewReader([]byte(`{"query":"q"}`)))
		if err == nil {
			res.Body.Close()
		}
	}()
	waitFor(t, asker.started, "question to start")
	shutdownAndCheck(t, srv, pool, asker)
}

func TestShutdownClosesStreamingQuestion(t *testing.T) {
	pool := worker.New(1, nil)
	asker := newBlockingAsker(pool)
	srv, addr := startServer(t, asker)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/query/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(wsInbound{Query: "q"}))
	waitFor(t, asker.started, "question to start")

	shutdownAndCheck(t, srv, pool, asker)

	// The server side closes the socket, so reads fail instead of hanging.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var readErr error
	for readErr == nil {
		var msg wsOutbound
		readErr = conn.ReadJSON(&msg)
	}
	var ne net.Error
	if errors.As(readErr, &ne) {
		assert.False(t, ne.Timeout(), "socket should be closed by the server, not time out")
	}
}
