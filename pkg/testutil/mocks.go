// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
)

// MockAnalyzer is a test implementation of vision.Analyzer. Nil function
// fields return fixed sample readings.
type MockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, image string) (wound.Findings, error)
	CompareFunc func(ctx context.Context, beforeImage, afterImage string, before, after wound.Findings) (wound.Progress, error)

	AnalyzeCalls atomic.Int32
	CompareCalls atomic.Int32
}

// AnalyzeWound implements vision.Analyzer.
func (m *MockAnalyzer) AnalyzeWound(ctx context.Context, image string) (wound.Findings, error) {
	m.AnalyzeCalls.Add(1)
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, image)
	}
	return SampleFindings(), nil
}

// CompareWounds implements vision.Analyzer.
func (m *MockAnalyzer) CompareWounds(ctx context.Context, beforeImage, afterImage string, before, after wound.Findings) (wound.Progress, error) {
	m.CompareCalls.Add(1)
	if m.CompareFunc != nil {
		return m.CompareFunc(ctx, beforeImage, afterImage, before, after)
	}
	return SampleProgress(), nil
}

// SampleFindings returns a complete reading.
func SampleFindings() wound.Findings {
	return wound.Findings{
		WoundType:          "Lesão por pressão",
		TissueType:         "Granulação",
		ExudateLevel:       "Moderado",
		BorderCondition:    "Definidas",
		DepthEstimate:      "Espessura parcial",
		OdorAssessment:     "Ausente",
		InfectionRisk:      wound.RiskMedium,
		InfectionRiskScore: 45,
		HealingStage:       "Proliferativo",
		Recommendations:    []string{"Manter meio úmido", "Reposicionar a cada 2 horas"},
		DetailedAnalysis:   "Leito com tecido de granulação e bordas regulares.",
	}
}

// SampleProgress returns a complete comparison delta.
func SampleProgress() wound.Progress {
	return wound.Progress{
		SizeChange:        -20,
		TissueImprovement: 65,
		ExudateChange:     -10,
		HealingProgress:   60,
		OverallAssessment: "Redução da área e melhora do leito.",
		EvolutionSummary:  "Evolução favorável.",
	}
}

// ErrInjected is returned by failing mocks.
var ErrInjected = errors.New("injected failure")

// MockImageStore records Put calls and returns a fixed prefix plus a
// counter. FailAfter > 0 makes the FailAfter-th call fail. Deleted lists
// the references passed to Delete.
type MockImageStore struct {
	mu        sync.Mutex
	Calls     []string
	Deleted   []string
	FailAfter int
}

// Put implements images.Store.
func (m *MockImageStore) Put(_ context.Context, image string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, image)
	if m.FailAfter > 0 && len(m.Calls) == m.FailAfter {
		return "", ErrInjected
	}
	return "mock://image/" + strconv.Itoa(len(m.Calls)), nil
}

// Delete implements images.Store.
func (m *MockImageStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, ref)
	return nil
}

// DeletedRefs returns a copy of the deleted references.
func (m *MockImageStore) DeletedRefs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Deleted...)
}

// Name implements images.Store.
func (m *MockImageStore) Name() string { return "mock" }
