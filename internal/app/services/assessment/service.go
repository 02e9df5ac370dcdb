// Package assessment runs the analyze and compare flows: model call, image
// reference, persistence.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
	"github.com/marcelomcerri-bot/feridas/internal/app/metrics"
	"github.com/marcelomcerri-bot/feridas/internal/app/services/images"
	"github.com/marcelomcerri-bot/feridas/internal/app/services/vision"
	"github.com/marcelomcerri-bot/feridas/internal/app/storage"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

// Input errors.
var (
	ErrImageRequired      = errors.New("image data is required")
	ErrBothImagesRequired = errors.New("both images are required")
)

// Service orchestrates wound analyses and comparisons.
type Service struct {
	analyzer vision.Analyzer
	images   images.Store
	store    storage.Store
	log      *logger.Logger
}

// New constructs the service. A nil image store keeps images inline.
func New(analyzer vision.Analyzer, imgs images.Store, store storage.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("assessment")
	}
	if imgs == nil {
		imgs = images.Inline{}
	}
	return &Service{analyzer: analyzer, images: imgs, store: store, log: log}
}

// Analyze reads one image and stores the result. Nothing is stored when
// the model call fails.
func (s *Service) Analyze(ctx context.Context, image string) (wound.Analysis, error) {
	if strings.TrimSpace(image) == "" {
		return wound.Analysis{}, ErrImageRequired
	}

	findings, err := s.analyzer.AnalyzeWound(ctx, image)
	if err != nil {
		return wound.Analysis{}, err
	}

	ref, err := s.images.Put(ctx, image)
	if err != nil {
		return wound.Analysis{}, fmt.Errorf("store image: %w", err)
	}

	created, err := s.store.CreateAnalysis(ctx, wound.Analysis{ImageURL: ref, Findings: findings})
	if err != nil {
		s.discardImages(ctx, ref)
		return wound.Analysis{}, fmt.Errorf("persist analysis: %w", err)
	}
	metrics.RecordCreated("analysis", 1)

	s.log.WithContext(ctx).
		WithField("analysis_id", created.ID).
		WithField("wound_type", created.WoundType).
		WithField("infection_risk", created.InfectionRisk).
		Info("wound analyzed")
	return created, nil
}

// Compare reads both images, rates the evolution and stores the two
// analyses together with the report. Every model call happens before any
// write, so a failure leaves no partial records.
func (s *Service) Compare(ctx context.Context, beforeImage, afterImage string) (wound.Comparison, error) {
	if strings.TrimSpace(beforeImage) == "" || strings.TrimSpace(afterImage) == "" {
		return wound.Comparison{}, ErrBothImagesRequired
	}

	before, err := s.analyzer.AnalyzeWound(ctx, beforeImage)
	if err != nil {
		return wound.Comparison{}, err
	}
	after, err := s.analyzer.AnalyzeWound(ctx, afterImage)
	if err != nil {
		return wound.Comparison{}, err
	}
	progress, err := s.analyzer.CompareWounds(ctx, beforeImage, afterImage, before, after)
	if err != nil {
		return wound.Comparison{}, err
	}

	beforeRef, err := s.images.Put(ctx, beforeImage)
	if err != nil {
		return wound.Comparison{}, fmt.Errorf("store before image: %w", err)
	}
	afterRef, err := s.images.Put(ctx, afterImage)
	if err != nil {
		s.discardImages(ctx, beforeRef)
		return wound.Comparison{}, fmt.Errorf("store after image: %w", err)
	}

	report, err := s.store.RecordComparison(ctx,
		wound.Analysis{ImageURL: beforeRef, Findings: before},
		wound.Analysis{ImageURL: afterRef, Findings: after},
		wound.Comparison{BeforeImage: beforeRef, AfterImage: afterRef, Progress: progress},
	)
	if err != nil {
		s.discardImages(ctx, beforeRef, afterRef)
		return wound.Comparison{}, fmt.Errorf("persist comparison: %w", err)
	}
	metrics.RecordCreated("analysis", 2)
	metrics.RecordCreated("comparison", 1)

	s.log.WithContext(ctx).
		WithField("comparison_id", report.ID).
		WithField("before_id", report.BeforeAnalysis.ID).
		WithField("after_id", report.AfterAnalysis.ID).
		WithField("healing_progress", report.HealingProgress).
		Info("wounds compared")
	return report, nil
}

// ListAnalyses returns every stored analysis.
func (s *Service) ListAnalyses(ctx context.Context) ([]wound.Analysis, error) {
	return s.store.ListAnalyses(ctx)
}

// GetAnalysis looks up one analysis.
func (s *Service) GetAnalysis(ctx context.Context, id string) (wound.Analysis, bool, error) {
	return s.store.GetAnalysis(ctx, id)
}

// ListComparisons returns every stored comparison.
func (s *Service) ListComparisons(ctx context.Context) ([]wound.Comparison, error) {
	return s.store.ListComparisons(ctx)
}

// GetComparison looks up one comparison.
func (s *Service) GetComparison(ctx context.Context, id string) (wound.Comparison, bool, error) {
	return s.store.GetComparison(ctx, id)
}

// Backends reports the active storage and image store names.
func (s *Service) Backends() (storageName, imageName string) {
	return s.store.Backend(), s.images.Name()
}

// discardImages removes uploads whose record was never saved. It runs even
// when ctx is already cancelled; failures are only logged.
func (s *Service) discardImages(ctx context.Context, refs ...string) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.images.Delete(cleanupCtx, ref); err != nil {
			s.log.WithContext(ctx).WithError(err).Warn("failed to remove orphaned image")
		}
	}
}
