// pkg/relay_io/context.go

package relay_io

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RuntimeContext is created once per inbound request or CLI command and
// carries everything a sync needs besides its configuration.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Span       trace.Span
	Timestamp  time.Time
	Command    string
	RequestID  string
	Attributes map[string]string
}

// NewContext opens a span named after the command and scopes the logger to it.
// An empty requestID gets a generated one.
func NewContext(parent context.Context, log *zap.Logger, command, requestID string) *RuntimeContext {
	if parent == nil {
		parent = context.Background()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx, span := telemetry.Start(parent, command, attribute.String("request_id", requestID))

	return &RuntimeContext{
		Ctx:  ctx,
		Span: span,
		Log: log.With(
			zap.String("command", command),
			zap.String("request_id", requestID),
		),
		Timestamp:  time.Now(),
		Command:    command,
		RequestID:  requestID,
		Attributes: make(map[string]string),
	}
}

// Logger returns a trace-correlated logger bound to the context.
func (rc *RuntimeContext) Logger(fields ...zap.Field) otelzap.LoggerWithCtx {
	if len(fields) == 0 {
		return otelzap.New(rc.Log).Ctx(rc.Ctx)
	}
	return otelzap.New(rc.Log.With(fields...)).Ctx(rc.Ctx)
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("panic recovered", zap.Any("panic", r), zap.Stack("stack"))
	}
}

// End logs the outcome, annotates the span, and closes it.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	var err error
	if errPtr != nil {
		err = *errPtr
	}
	duration := time.Since(rc.Timestamp)

	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("error_type", classifyError(err)),
	}
	for k, v := range rc.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	rc.Span.SetAttributes(attrs...)

	if err != nil {
		rc.Span.RecordError(err)
		rc.Span.SetStatus(codes.Error, relay_err.SafeErrorSummary(err))
		rc.Log.Debug("Command finished with error", zap.Duration("duration", duration), zap.Error(err))
		return
	}
	rc.Log.Debug("Command completed", zap.Duration("duration", duration))
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if relay_err.IsExpectedUserError(err) {
		return "user"
	}
	return relay_err.SafeErrorSummary(err)
}
