package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
)

func TestInit_NoDSN(t *testing.T) {
	shutdown, err := Init(Config{}, nil)

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestStartSpan_WithoutSentry(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "Answerer.Answer", SpanAttributes{
		Operation: "ask",
		Model:     "gpt-3.5-turbo",
		Records:   3,
	})

	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.SetData("context_tokens", 12)
	span.SetError(errors.New("boom"))
	span.End()
}

func TestStartSpan_ChildOfTransaction(t *testing.T) {
	ctx, tx := StartTransaction(context.Background(), "POST /ask", "http.server")
	defer tx.End()

	_, child := StartSpan(ctx, "Answerer.Answer", SpanAttributes{})
	defer child.End()

	require.NotNil(t, child.inner)
	assert.Equal(t, tx.inner.SpanID, child.inner.ParentSpanID)
}

func TestSpan_NilInnerIsSafe(t *testing.T) {
	s := &Span{}

	s.End()
	s.SetData("k", "v")
	s.SetError(errors.New("x"))
}

func TestSpan_SetErrorNilKeepsStatus(t *testing.T) {
	_, span := StartTransaction(context.Background(), "restore store", "startup")
	defer span.End()

	span.SetError(nil)
	assert.NotEqual(t, sentry.SpanStatusInternalError, span.inner.Status)

	span.SetError(errors.New("boom"))
	assert.Equal(t, sentry.SpanStatusInternalError, span.inner.Status)
}

func TestRecordWarnings(t *testing.T) {
	ctx, span := StartTransaction(context.Background(), "POST /ingest", "http.server")
	defer span.End()

	RecordWarnings(ctx, span, "chunking", []domain.Warning{
		{Code: domain.WarningSentenceDropped, Message: "sentence of 612 tokens dropped"},
		{Code: domain.WarningUnitDiscarded, Message: "unit of 540 tokens discarded"},
	})
	assert.Equal(t, 2, span.inner.Data["chunking.warnings"])

	RecordWarnings(ctx, span, "context", nil)
	assert.NotContains(t, span.inner.Data, "context.warnings")
}

func TestCaptureHelpers_WithoutSentry(t *testing.T) {
	CaptureError(context.Background(), errors.New("x"))
	AddBreadcrumb(context.Background(), "ingest", "document read")
	RecordWarnings(context.Background(), &Span{}, "context", []domain.Warning{{Code: domain.WarningEmptyStore}})
}
