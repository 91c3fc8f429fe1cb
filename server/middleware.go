// middleware.go observes requests: every one is counted and timed in
// the HTTP metrics and logged on the server module.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/wireskip/contract/metrics"
)

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		metrics.HTTPRequests.Inc()
		if ww.Status() >= http.StatusBadRequest {
			metrics.HTTPErrors.Inc()
		}
		metrics.HTTPLatency.Observe(float64(elapsed) / float64(time.Millisecond))
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", elapsed.String())
	})
}
