package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey struct{}

// IntoContext returns a copy of ctx carrying logger.
func IntoContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by IntoContext. Without one it
// returns the process default tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware seeds every request context with logger.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), logger)))
		})
	}
}

// RequestRecord is what the access log keeps of one finished request.
type RequestRecord struct {
	Request   *http.Request
	RequestID string
	ClientIP  string
	Status    int
	Duration  time.Duration
}

// StatusLevel is the level an access record with this status is written at.
func StatusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// AccessLogger writes request completions and failed operations.
type AccessLogger struct {
	logger *Logger
}

func NewAccessLogger(logger *Logger) *AccessLogger {
	return &AccessLogger{logger: logger}
}

func (a *AccessLogger) Completed(ctx context.Context, rec RequestRecord) {
	r := rec.Request
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		WithHTTPResponse(rec.Status, rec.Duration.Milliseconds(), rec.Status < http.StatusBadRequest).
		WithClientIP(rec.ClientIP).
		WithRequestID(rec.RequestID).
		WithComponent(a.logger.component)

	a.logger.Logger.Log(ctx, StatusLevel(rec.Status), "HTTP request completed", fields.ToSlice()...)
}

// Failed logs err for operation; fields may be nil.
func (a *AccessLogger) Failed(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.WithError(err).WithOperation(operation).WithComponent(a.logger.component)
	a.logger.Logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
