package vision

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
)

// Values used when the model omits a field.
const (
	DefaultWoundType          = "Não classificado"
	DefaultTissueType         = "Não identificado"
	DefaultNotAssessed        = "Não avaliado"
	DefaultInfectionRisk      = wound.RiskMedium
	DefaultInfectionRiskScore = 50
	DefaultHealingStage       = "Não determinado"
	DefaultDetailedAnalysis   = "Análise visual da ferida com base na imagem fornecida."

	DefaultSizeChange        = 0
	DefaultTissueImprovement = 50
	DefaultExudateChange     = 0
	DefaultHealingProgress   = 50
	DefaultOverallAssessment = "Comparação visual das duas imagens da ferida."
	DefaultEvolutionSummary  = "Análise da evolução da ferida entre as duas imagens fornecidas."
)

// DefaultRecommendations returns the fallback care list.
func DefaultRecommendations() []string {
	return []string{
		"Manter a ferida limpa e protegida",
		"Consultar profissional de saúde",
	}
}

var (
	errEmptyContent = errors.New("model returned no content")
	errNotObject    = errors.New("model content is not a JSON object")
)

// messageContent extracts choices[0].message.content from a chat
// completion body.
func messageContent(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("completion body is not valid JSON")
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if content.Type != gjson.String || strings.TrimSpace(content.Str) == "" {
		return "", errEmptyContent
	}
	return content.Str, nil
}

func parseObject(content string) (gjson.Result, error) {
	if !gjson.Valid(content) {
		return gjson.Result{}, errNotObject
	}
	doc := gjson.Parse(content)
	if !doc.IsObject() {
		return gjson.Result{}, errNotObject
	}
	return doc, nil
}

func parseFindings(content string) (wound.Findings, error) {
	doc, err := parseObject(content)
	if err != nil {
		return wound.Findings{}, err
	}
	return wound.Findings{
		WoundType:          stringField(doc, "woundType", DefaultWoundType),
		TissueType:         stringField(doc, "tissueType", DefaultTissueType),
		ExudateLevel:       stringField(doc, "exudateLevel", DefaultNotAssessed),
		BorderCondition:    stringField(doc, "borderCondition", DefaultNotAssessed),
		DepthEstimate:      stringField(doc, "depthEstimate", DefaultNotAssessed),
		OdorAssessment:     stringField(doc, "odorAssessment", DefaultNotAssessed),
		InfectionRisk:      stringField(doc, "infectionRisk", DefaultInfectionRisk),
		InfectionRiskScore: intField(doc, "infectionRiskScore", DefaultInfectionRiskScore),
		HealingStage:       stringField(doc, "healingStage", DefaultHealingStage),
		Recommendations:    listField(doc, "recommendations", DefaultRecommendations),
		DetailedAnalysis:   stringField(doc, "detailedAnalysis", DefaultDetailedAnalysis),
	}, nil
}

func parseProgress(content string) (wound.Progress, error) {
	doc, err := parseObject(content)
	if err != nil {
		return wound.Progress{}, err
	}
	return wound.Progress{
		SizeChange:        intField(doc, "sizeChange", DefaultSizeChange),
		TissueImprovement: intField(doc, "tissueImprovement", DefaultTissueImprovement),
		ExudateChange:     intField(doc, "exudateChange", DefaultExudateChange),
		HealingProgress:   intField(doc, "healingProgress", DefaultHealingProgress),
		OverallAssessment: stringField(doc, "overallAssessment", DefaultOverallAssessment),
		EvolutionSummary:  stringField(doc, "evolutionSummary", DefaultEvolutionSummary),
	}, nil
}

// stringField returns a non-blank string value or def.
func stringField(doc gjson.Result, key, def string) string {
	v := doc.Get(key)
	if v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
		return def
	}
	return v.Str
}

// intField accepts numbers and numeric strings ("45", "45%"); fractions are
// rounded. Values outside the int32 range, like anything else that is not
// a number, yield def.
func intField(doc gjson.Result, key string, def int) int {
	v := doc.Get(key)
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Str), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	f = math.Round(f)
	if f < math.MinInt32 || f > math.MaxInt32 {
		return def
	}
	return int(f)
}

// listField keeps the non-blank string items of an array. A missing, empty
// or non-array value yields def().
func listField(doc gjson.Result, key string, def func() []string) []string {
	v := doc.Get(key)
	if !v.IsArray() {
		return def()
	}
	items := lo.FilterMap(v.Array(), func(item gjson.Result, _ int) (string, bool) {
		s := strings.TrimSpace(item.Str)
		return s, item.Type == gjson.String && s != ""
	})
	if len(items) == 0 {
		return def()
	}
	return items
}
