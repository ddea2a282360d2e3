// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttrLeaveID tags spans of leave-scoped routes.
const AttrLeaveID = attribute.Key("leave.id")

// OTelHTTP opens a server span per request. Once chi has matched a route the
// span is renamed to "METHOD /route/{pattern}" so leave ids never end up in
// span names; the id travels as the leave.id attribute instead.
// A nil tp uses the global provider.
func OTelHTTP(serviceName string, tp trace.TracerProvider) func(http.Handler) http.Handler {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			routeSpan(next),
			serviceName,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithPropagators(otel.GetTextMapPropagator()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanName),
		)
	}
}

// spanName is also called by otelhttp after the handler returns once a
// pattern is known, so it must prefer the route pattern over the raw path.
// The raw path only names the span until routing completes.
func spanName(_ string, r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return r.Method + " " + p
		}
	}
	if r.Pattern != "" {
		return r.Method + " " + strings.TrimPrefix(r.Pattern, r.Method+" ")
	}
	return r.Method + " " + r.URL.Path
}

func routeSpan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			return
		}
		pattern := rctx.RoutePattern()
		if pattern == "" {
			return
		}
		span := trace.SpanFromContext(r.Context())
		span.SetName(r.Method + " " + pattern)
		span.SetAttributes(attribute.String("http.route", pattern))
		if id := rctx.URLParam("id"); id != "" {
			span.SetAttributes(AttrLeaveID.String(id))
		}
	})
}

// shouldTrace skips probe and scrape endpoints.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}
