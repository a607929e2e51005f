// Package middleware contains the Fiber middleware shared by every route.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"clipshare/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process logger. Records written with a request context carry
// the request, trace and principal ids of that request.
var Logger *slog.Logger

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// requestAttrs are the context keys copied onto every record.
var requestAttrs = []contextKey{RequestIDKey, TraceIDKey, UserIDKey}

type requestHandler struct {
	slog.Handler
}

func (h requestHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range requestAttrs {
		switch v := ctx.Value(key).(type) {
		case string:
			r.AddAttrs(slog.String(string(key), v))
		case uint:
			r.AddAttrs(slog.Uint64(string(key), uint64(v)))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestHandler) WithGroup(name string) slog.Handler {
	return requestHandler{h.Handler.WithGroup(name)}
}

func init() {
	Logger = NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

// NewLogger builds the process logger. Production writes JSON, every other
// environment writes text. level is one of debug, info, warn or error.
func NewLogger(env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(requestHandler{handler})
}

// ContextMiddleware copies the request id and trace id from Fiber locals into
// the request context. AuthGate adds the user id once a principal is resolved.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, RequestIDKey, rid)
		}
		if tid, ok := c.Locals(LocalTraceID).(string); ok {
			ctx = context.WithValue(ctx, TraceIDKey, tid)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// Auth outcomes written to the request log.
const (
	authAnonymous = "anonymous"
	authAccess    = "access"
	authRotated   = "rotated"
)

// StructuredLogger writes one record per request. Handler errors have not been
// rendered yet when it runs, so the status comes from the AppError itself.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		fields := []any{
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("auth", authOutcome(c)),
		}

		level := slog.LevelInfo
		if err != nil {
			var code string
			code, status = errorStatus(err)
			fields = append(fields, slog.String("code", code), slog.String("error", err.Error()))
			level = slog.LevelWarn
			if status >= fiber.StatusInternalServerError {
				level = slog.LevelError
			}
		}
		fields = append(fields, slog.Int("status", status))

		Logger.Log(c.UserContext(), level, "request", fields...)
		return err
	}
}

func errorStatus(err error) (string, int) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return "HTTP", fiberErr.Code
	}
	appErr := models.AsAppError(err)
	return appErr.Code, appErr.Status()
}

func authOutcome(c *fiber.Ctx) string {
	switch {
	case CurrentUser(c) == nil:
		return authAnonymous
	case RotatedAccessToken(c) != "":
		return authRotated
	default:
		return authAccess
	}
}
