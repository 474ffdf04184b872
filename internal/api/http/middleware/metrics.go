package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flowmesh/schemagate/internal/metrics"
)

// Metrics records request counts and latency. endpoint names the route so
// label cardinality stays bounded.
func Metrics(m *metrics.APIMetrics, endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrap(w)

			next.ServeHTTP(ww, r)

			m.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), time.Since(start))
		})
	}
}
