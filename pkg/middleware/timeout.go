package middleware

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/proto"
)

// Timeout bounds request handling. A handler that has not started its
// response by the deadline is cut off with a 504 carrying the "timeout"
// error code; anything it writes afterwards is dropped. A handler that has
// already started writing is left to finish.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			tw := &timeoutWriter{w: w, header: make(http.Header)}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()
			select {
			case <-done:
				// flush headers of a handler that never wrote
				tw.WriteHeader(http.StatusOK)
				return
			case <-ctx.Done():
			}

			tw.mu.Lock()
			if tw.started {
				tw.mu.Unlock()
				<-done
				return
			}
			tw.timedOut = true
			tw.mu.Unlock()

			logger.FromContext(r.Context()).Warn("request timed out",
				"method", r.Method,
				"path", r.URL.Path,
				"timeout", timeout,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGatewayTimeout)
			json.NewEncoder(w).Encode(proto.ErrorResponse{
				Error: "request timed out",
				Code:  apperrors.Code(apperrors.ErrTimeout),
			})
		})
	}
}

// timeoutWriter buffers headers so the handler goroutine never touches the
// real header map once the timeout path may be using it.
type timeoutWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu       sync.Mutex
	started  bool
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.start(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	tw.start(http.StatusOK)
	return tw.w.Write(b)
}

func (tw *timeoutWriter) start(code int) {
	if tw.timedOut || tw.started {
		return
	}
	tw.started = true
	maps.Copy(tw.w.Header(), tw.header)
	tw.w.WriteHeader(code)
}
