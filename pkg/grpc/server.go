// Package grpc provides a lightweight JSON-over-TCP RPC framework for
// talking to the search daemon from tooling and sibling services.
//
// Protocol: newline-delimited JSON over a persistent TCP connection. Each
// request carries a method name in "Service.Method" form, an id, and raw
// params; the response echoes the id and carries either data or an error
// code plus message.
//
//	s := grpc.NewServer(5 * time.Second)
//	s.Register("CatalogSearch.Search", func(ctx context.Context, req json.RawMessage) (any, error) {
//	    ...
//	})
//	go s.Serve(":9090")
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

// HandlerFunc processes an RPC request and returns a response or error.
type HandlerFunc func(ctx context.Context, req json.RawMessage) (any, error)

// Request is the wire format for an RPC request.
type Request struct {
	Method string          `json:"method"`
	ID     string          `json:"id"`
	Params json.RawMessage `json:"params"`
}

// Response is the wire format for an RPC response. Code is set whenever
// Error is.
type Response struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Code  string          `json:"code,omitempty"`
	Error string          `json:"error,omitempty"`
}

type Server struct {
	handlers map[string]HandlerFunc
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server whose handlers run under the given per-call
// timeout. Zero means no timeout.
func NewServer(timeout time.Duration) *Server {
	return &Server{
		handlers: make(map[string]HandlerFunc),
		timeout:  timeout,
		logger:   slog.Default().With("component", "rpc-server"),
		conns:    make(map[net.Conn]struct{}),
		done:     make(chan struct{}),
	}
}

// Register adds a handler for the given RPC method name.
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	s.logger.Debug("method registered", "method", method)
}

// Serve listens on addr and blocks until Stop is called.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.ServeListener(ln)
}

// ServeListener accepts connections on ln until Stop is called.
func (s *Server) ServeListener(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			return
		}
		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("write error", "method", req.Method, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{ID: req.ID}
	s.mu.RLock()
	handler, exists := s.handlers[req.Method]
	s.mu.RUnlock()
	if !exists {
		resp.Code = apperrors.Code(apperrors.ErrInvalidInput)
		resp.Error = fmt.Sprintf("unknown method: %s", req.Method)
		return resp
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	var raw []byte
	data, err := handler(ctx, req.Params)
	if err == nil {
		if raw, err = json.Marshal(data); err != nil {
			err = fmt.Errorf("marshaling response: %w", err)
		}
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.Newf(apperrors.ErrTimeout, http.StatusServiceUnavailable, "%s exceeded %s", req.Method, s.timeout)
		}
		resp.Code = apperrors.Code(err)
		resp.Error = err.Error()
		s.logger.Warn("rpc failed", "method", req.Method, "code", resp.Code, "error", err)
		return resp
	}
	resp.Data = raw
	s.logger.Debug("rpc served", "method", req.Method, "duration_ms", time.Since(start).Milliseconds())
	return resp
}

// MethodCount returns the number of registered methods.
func (s *Server) MethodCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// Stop closes the listener and every open connection, then waits for
// in-flight calls to return.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
		s.logger.Info("rpc server stopped")
	})
}
