// pkg/server/server.go

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/mirror"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds how long in-flight syncs may run after a stop signal.
const ShutdownTimeout = 30 * time.Second

// EventHandler is implemented by *mirror.Orchestrator.
type EventHandler interface {
	HandleEvent(rc *relay_io.RuntimeContext, eventKind string, body []byte) mirror.Outcome
}

// Server is the HTTP front of the relay.
type Server struct {
	events EventHandler
	log    *zap.Logger
	router *mux.Router
}

// New wires the routes and middleware.
func New(events EventHandler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{events: events, log: log.Named("http")}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, recoveryMiddleware(s.log), accessLogMiddleware(s.log))
	r.HandleFunc("/", s.handlePush).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests for up to ShutdownTimeout. The bound address is sent on ready when
// it is non-nil.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- net.Addr) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if ready != nil {
			close(ready)
		}
		return cerr.Wrapf(err, "failed to listen on %s", addr)
	}
	if ready != nil {
		ready <- ln.Addr()
	}

	s.log.Info("Listening for webhook deliveries", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return cerr.Wrap(err, "http server stopped")
	case <-ctx.Done():
	}

	s.log.Info("Shutting down, waiting for in-flight syncs", zap.Duration("timeout", ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return cerr.Wrap(err, "graceful shutdown failed")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return cerr.Wrap(err, "http server stopped")
	}
	return nil
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	// a sync, once started, runs to completion even if GitHub hangs up
	rc := relay_io.NewContext(context.WithoutCancel(r.Context()), s.log, "webhook.push", RequestID(r.Context()))
	var err error
	defer rc.End(&err)

	body, readErr := io.ReadAll(http.MaxBytesReader(w, r.Body, shared.MaxPayloadBytes))
	if readErr != nil {
		msg := "Request body could not be read."
		var mbe *http.MaxBytesError
		if errors.As(readErr, &mbe) {
			msg = "Request body too large."
		}
		err = relay_err.New(relay_err.KindMalformedPayload, readErr, "%s", msg)
		rc.Logger().Error("Failed to read request body", zap.Error(readErr))
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	out := s.events.HandleEvent(rc, r.Header.Get(shared.EventHeader), body)
	if out.Kind.IsFailure() {
		err = relay_err.New(out.Kind, nil, "%s", out.Message)
	}
	writeMessage(w, out.StatusCode, out.Message)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": shared.Version,
	})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
