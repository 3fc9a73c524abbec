// Package web serves the browser UI and its JSON API.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/KaramelBytes/tabletalk/internal/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server is an HTTP/1.1 and cleartext HTTP/2 server.
// Every request context derives from a server-scoped context that
// Shutdown cancels, so in-flight model calls and websockets abort.
type Server struct {
	httpServer *http.Server
	log        logrus.FieldLogger
	cancel     context.CancelFunc
}

// NewServer wraps handler for serving on addr.
func NewServer(addr string, handler http.Handler, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h2c.NewHandler(handler, &http2.Server{}),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return base },
		},
		log:    log,
		cancel: cancel,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.WithField("addr", ln.Addr().String()).Info("starting UI server")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown cancels in-flight requests, stops accepting connections and
// waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.httpServer.Shutdown(ctx)
}
