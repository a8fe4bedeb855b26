package instrument

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type ctxKey string

const correlationIDKey ctxKey = "correlation_id"

// SetCorrelationID stores a correlation id on the context for log enrichment
// and message-broker propagation.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// GetCorrelationID returns the correlation id stored on the context, if any.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}

	return ""
}

// initLogging replaces the default slog logger with one that fans out to
// stdout and the OTLP bridge, enriches records from the context, and masks
// sensitive fields.
func initLogging(serviceName string, lp *sdklog.LoggerProvider, maskFields []string) {
	stdoutHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	otelHandler := otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp))

	masked := make(map[string]struct{}, len(maskFields))
	for _, f := range maskFields {
		masked[strings.ToLower(f)] = struct{}{}
	}

	handler := &contextHandler{
		next: &maskHandler{
			next:   &multiHandler{handlers: []slog.Handler{stdoutHandler, otelHandler}},
			fields: masked,
		},
	}

	slog.SetDefault(slog.New(handler))
}

// contextHandler injects context-scoped attributes into every record.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if cid := GetCorrelationID(ctx); cid != "" {
		rec.AddAttrs(slog.String("correlation_id", cid))
	}

	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}

// maskHandler redacts configured attribute values before they reach any sink.
type maskHandler struct {
	next   slog.Handler
	fields map[string]struct{}
}

const maskedValue = "[MASKED]"

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, rec slog.Record) error {
	if len(h.fields) == 0 {
		return h.next.Handle(ctx, rec)
	}

	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(h.maskAttr(attr))

		return true
	})

	return h.next.Handle(ctx, out)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		maskedAttrs = append(maskedAttrs, h.maskAttr(attr))
	}

	return &maskHandler{next: h.next.WithAttrs(maskedAttrs), fields: h.fields}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{next: h.next.WithGroup(name), fields: h.fields}
}

func (h *maskHandler) maskAttr(attr slog.Attr) slog.Attr {
	if _, ok := h.fields[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, maskedValue)
	}

	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		maskedGroup := make([]any, 0, len(group))
		for _, ga := range group {
			maskedGroup = append(maskedGroup, h.maskAttr(ga))
		}

		return slog.Group(attr.Key, maskedGroup...)
	}

	return attr
}

// multiHandler fans a record out to every wrapped handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *multiHandler) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error

	for _, handler := range h.handlers {
		if handler.Enabled(ctx, rec.Level) {
			errs = append(errs, handler.Handle(ctx, rec.Clone()))
		}
	}

	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}

	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}

	return &multiHandler{handlers: next}
}
