// Package httpserver exposes a dispatcher over HTTP and WebSocket. The wire
// protocol is deliberately thin: one advertisement endpoint, one single-shot
// invoke endpoint, and a WebSocket session endpoint that answers a stream of
// requests strictly in the order received. Transport-level problems with a
// request body surface in-band as malformed_request envelopes rather than
// dropped connections.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/germanamz/opwire/pkg/bridge"
)

// maxRequestBytes bounds a single invocation request body or frame.
const maxRequestBytes = 1 << 20

// Server serves a dispatcher's operations over HTTP and WebSocket.
type Server struct {
	dispatcher *bridge.Dispatcher
}

// New creates a Server over the given dispatcher.
func New(d *bridge.Dispatcher) *Server {
	return &Server{dispatcher: d}
}

// Handler returns the HTTP handler with all routes mounted:
//
//	GET  /operations  advertisement array
//	POST /invoke      one request, one envelope
//	GET  /session     WebSocket stream of request/envelope pairs
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /operations", s.handleOperations)
	mux.HandleFunc("POST /invoke", s.handleInvoke)
	mux.HandleFunc("GET /session", s.handleSession)

	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("httpserver: serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("httpserver: shutdown: %w", err)
		}

		return nil
	}
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.dispatcher.Operations())
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeJSON(w, bridge.Failure(bridge.KindMalformedRequest, "reading request body: %v", err))
		return
	}

	writeJSON(w, s.serve(r.Context(), body))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		// Accept has already written the HTTP error response.
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	conn.SetReadLimit(maxRequestBytes)

	ctx := r.Context()

	// One read-dispatch-write cycle at a time: responses go back in the
	// order requests arrived on this connection.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				errors.Is(err, context.Canceled) {
				_ = conn.Close(websocket.StatusNormalClosure, "")
			}

			return
		}

		out, err := json.Marshal(s.serve(ctx, data))
		if err != nil {
			return
		}

		if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
			return
		}
	}
}

// serve parses one serialized request and dispatches it. A body that fails
// to parse produces a malformed_request envelope, never a dropped request.
func (s *Server) serve(ctx context.Context, data []byte) bridge.Result {
	var req bridge.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return bridge.Failure(bridge.KindMalformedRequest, "parsing request: %v", err)
	}
	if req.Operation == "" {
		return bridge.Failure(bridge.KindMalformedRequest, "missing operation name")
	}

	return s.dispatcher.Dispatch(ctx, req)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(v)
}
