package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout)
)

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetOutput redirects every event to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// L returns the process logger for events outside a request.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	l := L()
	var e *zerolog.Event
	switch level {
	case "error":
		e = l.Error()
	case "warn":
		e = l.Warn()
	case "info":
		e = l.Info()
	default:
		e = l.Log().Str("level", level)
	}
	e = e.Str("action", action)
	if c != nil {
		e = e.Str("ip", c.IP()).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode())
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e = e.Str("req_id", rid)
		}
		if u := userID(c); u != "" {
			e = e.Str("user_id", u)
		}
	}
	if err != nil {
		e = e.Str("err", err.Error())
	}
	if len(fields) > 0 {
		e = e.Dict("fields", zerolog.Dict().Fields(fields))
	}
	e.Send()
}

// userID reads the id of the request's user without importing domain types.
func userID(c *fiber.Ctx) string {
	type identified interface{ GetID() string }
	if u, ok := c.Locals("user").(identified); ok {
		return u.GetID()
	}
	return ""
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { write("info", c, action, nil, fields) }
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("audit", c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", c, action, nil, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", c, action, err, fields)
}

// Access logs one line per request with its latency.
func Access() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		l := L()
		e := l.Info().
			Str("action", "http.access").
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Int64("latency_ms", time.Since(start).Milliseconds())
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e = e.Str("req_id", rid)
		}
		if err != nil {
			e = e.Str("err", err.Error())
		}
		e.Send()
		return err
	}
}
