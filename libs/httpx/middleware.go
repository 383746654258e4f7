// Package httpx holds the middleware shared by the services' thin HTTP
// trigger surfaces: request ids, access logging, body limits and timeouts.
package httpx

import (
	"net/http"
	"time"
)

type Middleware func(http.Handler) http.Handler

// Chain applies middlewares outermost-first: Chain(h, a, b) serves a(b(h)).
func Chain(h http.Handler, m ...Middleware) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// DefaultBodyLimit bounds trigger request bodies. The largest legitimate
// payload here is a project create with a title, so 1 MiB is generous.
const DefaultBodyLimit int64 = 1 << 20

func WithBodyLimit(limitBytes int64) Middleware {
	if limitBytes <= 0 {
		limitBytes = DefaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func WithTimeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}
