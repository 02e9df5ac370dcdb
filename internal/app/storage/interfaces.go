package storage

import (
	"context"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
)

// AnalysisStore persists single-image assessments.
type AnalysisStore interface {
	// CreateAnalysis assigns ID and Timestamp and returns the stored record.
	CreateAnalysis(ctx context.Context, a wound.Analysis) (wound.Analysis, error)
	// GetAnalysis reports false when no record has the id.
	GetAnalysis(ctx context.Context, id string) (wound.Analysis, bool, error)
	// ListAnalyses returns every record in creation order.
	ListAnalyses(ctx context.Context) ([]wound.Analysis, error)
}

// ComparisonStore persists before/after comparison reports.
type ComparisonStore interface {
	CreateComparison(ctx context.Context, c wound.Comparison) (wound.Comparison, error)
	GetComparison(ctx context.Context, id string) (wound.Comparison, bool, error)
	ListComparisons(ctx context.Context) ([]wound.Comparison, error)
}

// ComparisonRecorder stores two analyses and the comparison embedding them
// as one unit: either all three records are created or none is.
type ComparisonRecorder interface {
	RecordComparison(ctx context.Context, before, after wound.Analysis, report wound.Comparison) (wound.Comparison, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	AnalysisStore
	ComparisonStore
	ComparisonRecorder
	// Backend names the implementation ("memory", "postgres").
	Backend() string
}
