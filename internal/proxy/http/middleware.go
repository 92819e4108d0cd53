package http

import (
	"context"
	"net/http"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/common/logs"
	"github.com/go-chi/chi/v5/middleware"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l logs.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func LoggerFromContext(ctx context.Context) logs.Logger {
	if l, ok := ctx.Value(loggerKey{}).(logs.Logger); ok {
		return l
	}
	return nil
}

// RequestLogging scopes a logger to the request and logs one line when the
// handler returns. Server errors log at error level, client errors at warn,
// health probes at debug. Must run after middleware.RequestID and
// middleware.RealIP.
func RequestLogging(logger logs.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scoped := logger.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(WithLogger(r.Context(), scoped)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			args := []any{
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", r.RemoteAddr,
			}

			switch {
			case status >= http.StatusInternalServerError:
				scoped.Error("request failed", args...)
			case status >= http.StatusBadRequest:
				scoped.Warn("request rejected", args...)
			case r.URL.Path == "/health":
				scoped.Debug("request", args...)
			default:
				scoped.Info("request", args...)
			}
		})
	}
}
