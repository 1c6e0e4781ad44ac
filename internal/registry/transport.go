package registry

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/icdload/internal/logging"
)

// loggingTransport is an http.RoundTripper that logs every exchange with the
// API using structured logging.
//
// Log fields:
//   - method: HTTP method
//   - host: target host
//   - path: request URL path
//   - status: response status code (absent on transport errors)
//   - duration_ms: round trip time in milliseconds
//
// Headers are never logged; they carry the bearer token.
type loggingTransport struct {
	next http.RoundTripper
}

func newLoggingTransport(next http.RoundTripper) *loggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(req)

	logger := logging.FromContext(req.Context())
	duration := time.Since(start)

	if err != nil {
		logger.Debug("registry request",
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	logger.Debug("registry request",
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)
	return resp, nil
}
