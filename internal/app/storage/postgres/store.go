package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
	"github.com/marcelomcerri-bot/feridas/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db    *sqlx.DB
	clock *storage.Clock
}

var _ storage.Store = (*Store)(nil)

// New creates a store using the provided database handle.
func New(db *sql.DB) *Store {
	return NewWithClock(db, storage.NewClock())
}

// NewWithClock creates a store stamping records with clock.
func NewWithClock(db *sql.DB, clock *storage.Clock) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres"), clock: clock}
}

// Backend implements storage.Store.
func (s *Store) Backend() string { return "postgres" }

const analysisColumns = `id, image_url, "timestamp", wound_type, tissue_type, exudate_level,
	border_condition, depth_estimate, odor_assessment, infection_risk,
	infection_risk_score, healing_stage, recommendations, detailed_analysis`

const insertAnalysis = `
	INSERT INTO wound_analyses (` + analysisColumns + `)
	VALUES (:id, :image_url, :timestamp, :wound_type, :tissue_type, :exudate_level,
		:border_condition, :depth_estimate, :odor_assessment, :infection_risk,
		:infection_risk_score, :healing_stage, :recommendations, :detailed_analysis)`

const comparisonColumns = `id, "timestamp", before_image, after_image, before_analysis,
	after_analysis, size_change, tissue_improvement, exudate_change,
	healing_progress, overall_assessment, evolution_summary`

const insertComparison = `
	INSERT INTO comparison_reports (` + comparisonColumns + `)
	VALUES (:id, :timestamp, :before_image, :after_image, :before_analysis,
		:after_analysis, :size_change, :tissue_improvement, :exudate_change,
		:healing_progress, :overall_assessment, :evolution_summary)`

// AnalysisStore implementation ------------------------------------------------

func (s *Store) CreateAnalysis(ctx context.Context, a wound.Analysis) (wound.Analysis, error) {
	row := s.newAnalysisRow(a)
	if _, err := s.db.NamedExecContext(ctx, insertAnalysis, row); err != nil {
		return wound.Analysis{}, fmt.Errorf("insert analysis: %w", err)
	}
	return row.analysis(), nil
}

func (s *Store) GetAnalysis(ctx context.Context, id string) (wound.Analysis, bool, error) {
	var row analysisRow
	err := s.db.GetContext(ctx, &row, `SELECT `+analysisColumns+` FROM wound_analyses WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return wound.Analysis{}, false, nil
	}
	if err != nil {
		return wound.Analysis{}, false, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return row.analysis(), true, nil
}

func (s *Store) ListAnalyses(ctx context.Context) ([]wound.Analysis, error) {
	var rows []analysisRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+analysisColumns+` FROM wound_analyses ORDER BY "timestamp", id`); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	out := make([]wound.Analysis, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.analysis())
	}
	return out, nil
}

// ComparisonStore implementation ----------------------------------------------

func (s *Store) CreateComparison(ctx context.Context, c wound.Comparison) (wound.Comparison, error) {
	row := s.newComparisonRow(c)
	if _, err := s.db.NamedExecContext(ctx, insertComparison, row); err != nil {
		return wound.Comparison{}, fmt.Errorf("insert comparison: %w", err)
	}
	return row.comparison(), nil
}

func (s *Store) GetComparison(ctx context.Context, id string) (wound.Comparison, bool, error) {
	var row comparisonRow
	err := s.db.GetContext(ctx, &row, `SELECT `+comparisonColumns+` FROM comparison_reports WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return wound.Comparison{}, false, nil
	}
	if err != nil {
		return wound.Comparison{}, false, fmt.Errorf("get comparison %s: %w", id, err)
	}
	return row.comparison(), true, nil
}

func (s *Store) ListComparisons(ctx context.Context) ([]wound.Comparison, error) {
	var rows []comparisonRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+comparisonColumns+` FROM comparison_reports ORDER BY "timestamp", id`); err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}
	out := make([]wound.Comparison, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.comparison())
	}
	return out, nil
}

// ComparisonRecorder implementation -------------------------------------------

func (s *Store) RecordComparison(ctx context.Context, before, after wound.Analysis, report wound.Comparison) (_ wound.Comparison, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wound.Comparison{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	beforeRow := s.newAnalysisRow(before)
	if _, err = tx.NamedExecContext(ctx, insertAnalysis, beforeRow); err != nil {
		return wound.Comparison{}, fmt.Errorf("insert before analysis: %w", err)
	}
	afterRow := s.newAnalysisRow(after)
	if _, err = tx.NamedExecContext(ctx, insertAnalysis, afterRow); err != nil {
		return wound.Comparison{}, fmt.Errorf("insert after analysis: %w", err)
	}

	report.BeforeAnalysis = beforeRow.analysis()
	report.AfterAnalysis = afterRow.analysis()
	row := s.newComparisonRow(report)
	if _, err = tx.NamedExecContext(ctx, insertComparison, row); err != nil {
		return wound.Comparison{}, fmt.Errorf("insert comparison: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return wound.Comparison{}, fmt.Errorf("commit comparison: %w", err)
	}
	return row.comparison(), nil
}

// rows -----------------------------------------------------------------------

type analysisRow struct {
	ID                 string         `db:"id"`
	ImageURL           string         `db:"image_url"`
	Timestamp          time.Time      `db:"timestamp"`
	WoundType          string         `db:"wound_type"`
	TissueType         string         `db:"tissue_type"`
	ExudateLevel       string         `db:"exudate_level"`
	BorderCondition    string         `db:"border_condition"`
	DepthEstimate      string         `db:"depth_estimate"`
	OdorAssessment     string         `db:"odor_assessment"`
	InfectionRisk      string         `db:"infection_risk"`
	InfectionRiskScore int            `db:"infection_risk_score"`
	HealingStage       string         `db:"healing_stage"`
	Recommendations    pq.StringArray `db:"recommendations"`
	DetailedAnalysis   string         `db:"detailed_analysis"`
}

func (s *Store) newAnalysisRow(a wound.Analysis) analysisRow {
	recs := pq.StringArray(append([]string{}, a.Recommendations...))
	return analysisRow{
		ID:                 uuid.NewString(),
		ImageURL:           a.ImageURL,
		Timestamp:          s.clock.Now(),
		WoundType:          a.WoundType,
		TissueType:         a.TissueType,
		ExudateLevel:       a.ExudateLevel,
		BorderCondition:    a.BorderCondition,
		DepthEstimate:      a.DepthEstimate,
		OdorAssessment:     a.OdorAssessment,
		InfectionRisk:      a.InfectionRisk,
		InfectionRiskScore: a.InfectionRiskScore,
		HealingStage:       a.HealingStage,
		Recommendations:    recs,
		DetailedAnalysis:   a.DetailedAnalysis,
	}
}

func (r analysisRow) analysis() wound.Analysis {
	return wound.Analysis{
		ID:        r.ID,
		ImageURL:  r.ImageURL,
		Timestamp: r.Timestamp.UTC(),
		Findings: wound.Findings{
			WoundType:          r.WoundType,
			TissueType:         r.TissueType,
			ExudateLevel:       r.ExudateLevel,
			BorderCondition:    r.BorderCondition,
			DepthEstimate:      r.DepthEstimate,
			OdorAssessment:     r.OdorAssessment,
			InfectionRisk:      r.InfectionRisk,
			InfectionRiskScore: r.InfectionRiskScore,
			HealingStage:       r.HealingStage,
			Recommendations:    append([]string{}, r.Recommendations...),
			DetailedAnalysis:   r.DetailedAnalysis,
		},
	}
}

type comparisonRow struct {
	ID                string      `db:"id"`
	Timestamp         time.Time   `db:"timestamp"`
	BeforeImage       string      `db:"before_image"`
	AfterImage        string      `db:"after_image"`
	BeforeAnalysis    analysisDoc `db:"before_analysis"`
	AfterAnalysis     analysisDoc `db:"after_analysis"`
	SizeChange        int         `db:"size_change"`
	TissueImprovement int         `db:"tissue_improvement"`
	ExudateChange     int         `db:"exudate_change"`
	HealingProgress   int         `db:"healing_progress"`
	OverallAssessment string      `db:"overall_assessment"`
	EvolutionSummary  string      `db:"evolution_summary"`
}

func (s *Store) newComparisonRow(c wound.Comparison) comparisonRow {
	return comparisonRow{
		ID:                uuid.NewString(),
		Timestamp:         s.clock.Now(),
		BeforeImage:       c.BeforeImage,
		AfterImage:        c.AfterImage,
		BeforeAnalysis:    analysisDoc(c.BeforeAnalysis.Clone()),
		AfterAnalysis:     analysisDoc(c.AfterAnalysis.Clone()),
		SizeChange:        c.SizeChange,
		TissueImprovement: c.TissueImprovement,
		ExudateChange:     c.ExudateChange,
		HealingProgress:   c.HealingProgress,
		OverallAssessment: c.OverallAssessment,
		EvolutionSummary:  c.EvolutionSummary,
	}
}

func (r comparisonRow) comparison() wound.Comparison {
	before := wound.Analysis(r.BeforeAnalysis)
	after := wound.Analysis(r.AfterAnalysis)
	return wound.Comparison{
		ID:             r.ID,
		Timestamp:      r.Timestamp.UTC(),
		BeforeImage:    r.BeforeImage,
		AfterImage:     r.AfterImage,
		BeforeAnalysis: before.Clone(),
		AfterAnalysis:  after.Clone(),
		Progress: wound.Progress{
			SizeChange:        r.SizeChange,
			TissueImprovement: r.TissueImprovement,
			ExudateChange:     r.ExudateChange,
			HealingProgress:   r.HealingProgress,
			OverallAssessment: r.OverallAssessment,
			EvolutionSummary:  r.EvolutionSummary,
		},
	}
}

// analysisDoc stores an embedded analysis copy as jsonb.
type analysisDoc wound.Analysis

func (d analysisDoc) Value() (driver.Value, error) {
	return json.Marshal(wound.Analysis(d))
}

func (d *analysisDoc) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*d = analysisDoc{}
		return nil
	default:
		return fmt.Errorf("unsupported analysis document type %T", src)
	}
	var a wound.Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return fmt.Errorf("decode analysis document: %w", err)
	}
	a.Timestamp = a.Timestamp.UTC()
	*d = analysisDoc(a)
	return nil
}
