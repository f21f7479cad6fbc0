package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stretchr/testify/assert"
)

func TestObservability_NilIsSafe(t *testing.T) {
	var obs *Observability

	ctx, end := obs.StartSpan(context.Background(), "report.generate")
	end(errors.New("boom"))
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid())

	obs.RecordReport(ctx, "openai", "success")
	obs.RecordReportDuration(ctx, time.Second, "openai", "success")
	obs.Shutdown()
}

func TestObservability_StartSpan(t *testing.T) {
	obs := New("loan-agent-test")
	defer obs.Shutdown()

	ctx, end := obs.StartSpan(context.Background(), "report.generate", attribute.String("provider", "openai"))
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	end(nil)

	obs.RecordReport(ctx, "openai", "success")
	obs.RecordReportDuration(ctx, 250*time.Millisecond, "openai", "success")
}
