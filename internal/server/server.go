// Package server is the HTTP face of microwrap: every request on any path
// triggers one invocation of the wrapped executable and answers with its
// captured output.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/microwrap/microwrap/internal/dispatch"
	"github.com/microwrap/microwrap/internal/log"
	"github.com/microwrap/microwrap/internal/model"
)

const shutdownGrace = 10 * time.Second

type Server struct {
	addr       string
	dispatcher *dispatch.Dispatcher
}

func New(cfg model.Config) *Server {
	return &Server{
		addr:       net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		dispatcher: dispatch.New(cfg),
	}
}

// Handler returns the request handler. Split from Run so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	ctx := log.ContextAttrs(r.Context(), slog.Attr{
		Key: "invocation",
		Value: slog.GroupValue(
			slog.String("id", uuid.NewString()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		),
	})

	params := ParseQuery(r.URL.RawQuery)
	slog.DebugContext(ctx, "request accepted", "query", r.URL.RawQuery)

	started := time.Now()
	resp := s.dispatcher.Dispatch(ctx, params)

	slog.InfoContext(ctx, "request served",
		"status", resp.Status,
		"body_bytes", len(resp.Body),
		"duration", time.Since(started).Round(time.Millisecond).String(),
	)

	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		slog.WarnContext(ctx, "writing response", "error", err)
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully,
// letting in-flight invocations finish within the grace period.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.addr, err)
	}

	// request contexts stay tied to their connections, not to ctx: shutdown
	// lets in-flight invocations finish, only client disconnects cancel them
	httpSrv := &http.Server{
		Handler: s.Handler(),
	}

	slog.InfoContext(ctx, "listening", "addr", ln.Addr().String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := httpSrv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
