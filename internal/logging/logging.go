// Package logging holds the process-wide zap logger and the HTTP access log.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
)

// current is swapped by Init and InitNop; L installs a production logger
// on first use when neither ran.
var current atomic.Pointer[zap.Logger]

// Config selects level, encoding and destination.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console, json

	// Output is "stderr" (the default), "stdout" or a file path.
	Output string
}

// Init builds the global logger from cfg. Empty fields take the defaults:
// info level, console format, stderr.
func Init(cfg Config) error {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}

	zc := zap.NewDevelopmentConfig()
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	switch cfg.Format {
	case "", "console":
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return fmt.Errorf("log format %q: want console or json", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" {
		zc.OutputPaths = []string{cfg.Output}
	}

	logger, err := zc.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	current.Store(logger)
	return nil
}

// InitNop discards everything. Tests use it.
func InitNop() {
	current.Store(zap.NewNop())
}

// L returns the global logger.
func L() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	l, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	if current.CompareAndSwap(nil, l) {
		return l
	}
	return current.Load()
}

// Sync flushes buffered entries.
func Sync() error {
	return L().Sync()
}

// WithContext returns the request-scoped logger stored in ctx, or the
// global one.
func WithContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return L()
}

// RequestID returns the id Middleware attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, id)
	return context.WithValue(ctx, loggerKey, WithContext(ctx).With(zap.String("request_id", id)))
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// Fatal logs and exits with status 1.
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

// Request ids are a per-process random prefix plus a sequence number.
var (
	idPrefix = newIDPrefix()
	idSeq    atomic.Uint64
)

func newIDPrefix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", uint32(time.Now().UnixNano()))
	}
	return hex.EncodeToString(b)
}

func nextRequestID() string {
	return fmt.Sprintf("%s-%d", idPrefix, idSeq.Add(1))
}

// statusRecorder remembers what the handler sent.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// Middleware tags every request with an id (kept from X-Request-ID when the
// client sends one) and writes one access line when the handler returns.
// The route is the mux pattern that served the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = nextRequestID()
		}
		w.Header().Set("X-Request-ID", id)

		r = r.WithContext(withRequestID(r.Context(), id))
		sr := &statusRecorder{ResponseWriter: w}
		defer func() {
			status := sr.status
			if status == 0 {
				status = http.StatusOK
			}
			WithContext(r.Context()).Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", r.Pattern),
				zap.Int("status", status),
				zap.Int64("bytes", sr.bytes),
				zap.Duration("duration", time.Since(start)))
		}()

		next.ServeHTTP(sr, r)
	})
}
