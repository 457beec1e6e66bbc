package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logger"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

// reportWarnings logs, counts and traces the warnings of one pipeline stage.
func reportWarnings(ctx context.Context, span *telemetry.Span, stage string, warnings []domain.Warning) {
	log := logger.FromContext(ctx)
	for _, w := range warnings {
		metrics.WarningsTotal.WithLabelValues(string(w.Code)).Inc()
		log.Warn(stage+" warning", zap.String("code", string(w.Code)), zap.String("message", w.Message))
	}
	telemetry.RecordWarnings(ctx, span, stage, warnings)
}
