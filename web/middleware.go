package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skekre98/observers/events"
	"github.com/skekre98/observers/observer"
)

type Ctx = *gin.Context
type Handler = gin.HandlerFunc
type Router = gin.IRouter

// RequestCompleted is fired on the bus after every HTTP request. It carries
// a qualifier naming the status class, e.g. @Named("2xx").
type RequestCompleted struct {
	Method    string
	Path      string
	Status    int
	Duration  time.Duration
	RequestID string
}

// StatusClass returns the qualifier for an HTTP status, e.g. @Named("4xx").
func StatusClass(status int) observer.Qualifier {
	return observer.Named(fmt.Sprintf("%dxx", status/100))
}

// RequestID sets/propagates a request ID.
func RequestID() Handler {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

// AccessLog writes a structured access log after the request completes and,
// when bus is not nil, fires a RequestCompleted event.
func AccessLog(l *slog.Logger, bus *events.Bus) Handler {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)
		l.Info("http_access",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", dur.Milliseconds(),
			"ip", c.ClientIP(),
			"req_id", c.GetString("request_id"),
		)
		if bus == nil {
			return
		}
		evt := RequestCompleted{
			Method:    c.Request.Method,
			Path:      c.FullPath(),
			Status:    c.Writer.Status(),
			Duration:  dur,
			RequestID: c.GetString("request_id"),
		}
		// The request context may already be cancelled by the client.
		if err := bus.Fire(context.WithoutCancel(c.Request.Context()), evt, StatusClass(evt.Status)); err != nil {
			l.Error("request observer failed", "req_id", evt.RequestID, "error", err)
		}
	}
}

// RecoveryProblem converts panics to RFC7807 "problem+json".
func RecoveryProblem(l *slog.Logger) Handler {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic", "error", rec)
				Problem(c, http.StatusInternalServerError, "unexpected server error")
			}
		}()
		c.Next()
	}
}

// Problem aborts the request with an RFC7807 body.
func Problem(c *gin.Context, status int, detail string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, map[string]any{
		"type":   "about:blank",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
