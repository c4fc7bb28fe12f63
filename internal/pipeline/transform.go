package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
)

// InsightTransformer implements Transformer by running the CME analytics on
// each submission.
type InsightTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates an InsightTransformer.
func NewTransformer(logger *slog.Logger) *InsightTransformer {
	return &InsightTransformer{logger: logger}
}

func (t *InsightTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Insight, error) {
	event, err := domain.ParseCMESubmission(raw)
	if err != nil {
		return domain.Insight{}, err
	}

	insight := domain.BuildInsight(event)
	t.logger.Debug("insight built",
		"id", insight.ID,
		"class", insight.Strength.Class,
		"storm", insight.Storm.Intensity,
		"offset", raw.Offset,
	)
	return insight, nil
}
