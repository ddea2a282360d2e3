// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/ManuGH/leavegate/internal/log"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const maxStackBytes = 8 << 10

var httpPanics = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leavegate_http_panics_total",
	Help: "Handler panics recovered, by route",
}, []string{"route"})

// Recoverer turns a handler panic into a logged 500. A panic after the
// response started only gets logged; the client sees a truncated body.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := debug.Stack()
			if len(stack) > maxStackBytes {
				stack = stack[:maxStackBytes]
			}
			route := routePattern(r)
			httpPanics.WithLabelValues(route).Inc()

			logger := log.WithComponentFromContext(r.Context(), "panic-recovery")
			logger.Error().
				Str(log.FieldEvent, "panic.recovered").
				Str(log.FieldMethod, r.Method).
				Str(log.FieldPath, strings.ToValidUTF8(r.URL.Path, "")).
				Str("route", route).
				Str(log.FieldRemote, r.RemoteAddr).
				Interface("panic_value", rec).
				Bytes("stack_trace", stack).
				Msg("panic recovered in HTTP handler")

			if ww.Status() != 0 {
				return
			}
			writeError(ww, http.StatusInternalServerError, errorBody{
				Error:     "internal_error",
				Message:   "An unexpected error occurred. Please try again later.",
				RequestID: log.RequestIDFromContext(r.Context()),
			})
		}()

		next.ServeHTTP(ww, r)
	})
}
