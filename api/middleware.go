// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/tally/governance"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// requestIDMiddleware tags each request with an id, reusing one supplied
// by the client
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		trace.SpanFromContext(r.Context()).SetAttributes(
			attribute.String("tally.request_id", requestID),
		)
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id attached by the middleware chain
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health checks are never throttled
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if !a.limiter.Allow() {
			a.metrics.rateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(
				w,
				http.StatusTooManyRequests,
				"too_many_requests",
				"request rate limit exceeded",
			)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusResponseWriter captures the status code written by a handler
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (a *API) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		// The mux records the matched pattern on the request
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		} else if _, path, ok := strings.Cut(route, " "); ok {
			route = path
		}
		a.metrics.requests.WithLabelValues(
			r.Method,
			route,
			strconv.Itoa(wrapped.statusCode),
		).Inc()
		a.metrics.duration.WithLabelValues(r.Method, route).Observe(
			time.Since(start).Seconds(),
		)
	})
}

// callerIdentity returns the identity asserted by the gateway. It writes a
// 401 response and returns false when none is present.
func callerIdentity(
	w http.ResponseWriter,
	r *http.Request,
) (governance.Identity, bool) {
	id := strings.TrimSpace(r.Header.Get(IdentityHeader))
	if id == "" {
		writeError(
			w,
			http.StatusUnauthorized,
			"unauthenticated",
			"missing "+IdentityHeader+" header",
		)
		return "", false
	}
	return governance.Identity(id), true
}
