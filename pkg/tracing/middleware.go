package tracing

import (
	"net/http"
	"strconv"
)

// Middleware starts a server span for every request. Incoming W3C
// traceparent headers are honored, so admin requests issued by traced
// callers continue their trace. A nil tracer disables the wrapper.
func Middleware(tracer *Tracer, next http.Handler) http.Handler {
	if tracer == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, WithKind(SpanKindServer))
		defer span.End()

		span.SetAttribute("http.method", r.Method)
		span.SetAttribute("http.path", r.URL.Path)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		span.SetAttribute("http.status_code", strconv.Itoa(sw.status))
		if sw.status >= 500 {
			span.SetStatus(StatusError, http.StatusText(sw.status))
		} else {
			span.SetStatus(StatusOK, "")
		}
	})
}

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so event streams keep working
// under the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
