package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
	"github.com/marcelomcerri-bot/feridas/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use. Contents are lost when the process exits.
type Store struct {
	mu              sync.RWMutex
	clock           *storage.Clock
	analyses        map[string]wound.Analysis
	analysisOrder   []string
	comparisons     map[string]wound.Comparison
	comparisonOrder []string
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return NewWithClock(storage.NewClock())
}

// NewWithClock creates an empty store stamping records with clock.
func NewWithClock(clock *storage.Clock) *Store {
	return &Store{
		clock:       clock,
		analyses:    make(map[string]wound.Analysis),
		comparisons: make(map[string]wound.Comparison),
	}
}

// Backend implements storage.Store.
func (s *Store) Backend() string { return "memory" }

// AnalysisStore implementation ------------------------------------------------

func (s *Store) CreateAnalysis(_ context.Context, a wound.Analysis) (wound.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAnalysisLocked(a), nil
}

func (s *Store) GetAnalysis(_ context.Context, id string) (wound.Analysis, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[id]
	if !ok {
		return wound.Analysis{}, false, nil
	}
	return a.Clone(), true, nil
}

func (s *Store) ListAnalyses(_ context.Context) ([]wound.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.analysisOrder, func(id string, _ int) wound.Analysis {
		return s.analyses[id].Clone()
	}), nil
}

// ComparisonStore implementation ----------------------------------------------

func (s *Store) CreateComparison(_ context.Context, c wound.Comparison) (wound.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertComparisonLocked(c), nil
}

func (s *Store) GetComparison(_ context.Context, id string) (wound.Comparison, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comparisons[id]
	if !ok {
		return wound.Comparison{}, false, nil
	}
	return c.Clone(), true, nil
}

func (s *Store) ListComparisons(_ context.Context) ([]wound.Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.comparisonOrder, func(id string, _ int) wound.Comparison {
		return s.comparisons[id].Clone()
	}), nil
}

// ComparisonRecorder implementation -------------------------------------------

func (s *Store) RecordComparison(_ context.Context, before, after wound.Analysis, report wound.Comparison) (wound.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report.BeforeAnalysis = s.insertAnalysisLocked(before)
	report.AfterAnalysis = s.insertAnalysisLocked(after)
	return s.insertComparisonLocked(report), nil
}

func (s *Store) insertAnalysisLocked(a wound.Analysis) wound.Analysis {
	a = a.Clone()
	a.ID = uuid.NewString()
	a.Timestamp = s.clock.Now()
	s.analyses[a.ID] = a
	s.analysisOrder = append(s.analysisOrder, a.ID)
	return a.Clone()
}

func (s *Store) insertComparisonLocked(c wound.Comparison) wound.Comparison {
	c = c.Clone()
	c.ID = uuid.NewString()
	c.Timestamp = s.clock.Now()
	s.comparisons[c.ID] = c
	s.comparisonOrder = append(s.comparisonOrder, c.ID)
	return c.Clone()
}
