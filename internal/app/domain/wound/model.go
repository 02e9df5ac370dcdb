// Package wound holds the wound assessment records kept by the service.
package wound

import "time"

// Infection risk levels the model is asked to use. Other values are stored
// as returned.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Findings is the model's clinical reading of a single image.
type Findings struct {
	WoundType          string   `json:"woundType"`
	TissueType         string   `json:"tissueType"`
	ExudateLevel       string   `json:"exudateLevel"`
	BorderCondition    string   `json:"borderCondition"`
	DepthEstimate      string   `json:"depthEstimate"`
	OdorAssessment     string   `json:"odorAssessment"`
	InfectionRisk      string   `json:"infectionRisk"`
	InfectionRiskScore int      `json:"infectionRiskScore"`
	HealingStage       string   `json:"healingStage"`
	Recommendations    []string `json:"recommendations"`
	DetailedAnalysis   string   `json:"detailedAnalysis"`
}

// Analysis is a persisted assessment of one image.
type Analysis struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Timestamp time.Time `json:"timestamp"`
	Findings
}

// Progress describes the change between a before and an after image.
// Negative SizeChange and ExudateChange mean improvement.
type Progress struct {
	SizeChange        int    `json:"sizeChange"`
	TissueImprovement int    `json:"tissueImprovement"`
	ExudateChange     int    `json:"exudateChange"`
	HealingProgress   int    `json:"healingProgress"`
	OverallAssessment string `json:"overallAssessment"`
	EvolutionSummary  string `json:"evolutionSummary"`
}

// Comparison is a persisted before/after report. It embeds full copies of
// both analyses.
type Comparison struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	BeforeImage    string    `json:"beforeImage"`
	AfterImage     string    `json:"afterImage"`
	BeforeAnalysis Analysis  `json:"beforeAnalysis"`
	AfterAnalysis  Analysis  `json:"afterAnalysis"`
	Progress
}

// Clone returns a copy that shares no slices with f.
func (f Findings) Clone() Findings {
	if f.Recommendations != nil {
		f.Recommendations = append([]string(nil), f.Recommendations...)
	}
	return f
}

// Clone returns a deep copy of a.
func (a Analysis) Clone() Analysis {
	a.Findings = a.Findings.Clone()
	return a
}

// Clone returns a deep copy of c.
func (c Comparison) Clone() Comparison {
	c.BeforeAnalysis = c.BeforeAnalysis.Clone()
	c.AfterAnalysis = c.AfterAnalysis.Clone()
	return c
}
