// Package notify delivers user-facing notifications emitted by the services.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Notification is a short message intended for the end user.
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"type"`
}

// Sink receives notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink constructs a LogSink. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Notify logs the notification at a level matching its severity.
func (s *LogSink) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	switch n.Severity {
	case SeverityError:
		level = slog.LevelError
	case SeverityWarning:
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "notification", "message", n.Message, "severity", string(n.Severity))
}

// Collector accumulates the notifications emitted while serving one request.
type Collector struct {
	mu            sync.Mutex
	notifications []Notification
}

// Notify records n.
func (c *Collector) Notify(_ context.Context, n Notification) {
	c.mu.Lock()
	c.notifications = append(c.notifications, n)
	c.mu.Unlock()
}

// Drain returns the recorded notifications and resets the collector.
func (c *Collector) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	drained := c.notifications
	c.notifications = nil
	return drained
}

type collectorKey struct{}

// ContextWithCollector attaches a request-scoped collector.
func ContextWithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

// CollectorFromContext returns the collector attached to ctx, if any.
func CollectorFromContext(ctx context.Context) *Collector {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(collectorKey{}).(*Collector)
	return c
}

// Dispatcher fans a notification out to a base sink and to the request collector found in the context.
type Dispatcher struct {
	base Sink
}

// NewDispatcher constructs a Dispatcher. base may be nil.
func NewDispatcher(base Sink) *Dispatcher {
	return &Dispatcher{base: base}
}

// Notify forwards n to the base sink and the request collector.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if d == nil {
		return
	}
	if d.base != nil {
		d.base.Notify(ctx, n)
	}
	if c := CollectorFromContext(ctx); c != nil {
		c.Notify(ctx, n)
	}
}

// Success is shorthand for a success notification.
func Success(message string) Notification {
	return Notification{Message: message, Severity: SeveritySuccess}
}

// Error is shorthand for an error notification.
func Error(message string) Notification {
	return Notification{Message: message, Severity: SeverityError}
}
