package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
	"github.com/marcelomcerri-bot/feridas/internal/config"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

type capturedRequest struct {
	Model               string `json:"model"`
	MaxCompletionTokens int    `json:"max_completion_tokens"`
	ResponseFormat      struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type part struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

func completion(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(raw)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(config.VisionConfig{
		BaseURL: server.URL + "/v1",
		APIKey:  "test-key",
		Model:   "gpt-5",
		Timeout: 5 * time.Second,
	}, logger.NewDiscard())
	require.NoError(t, err)
	return client
}

func TestAnalyzeWoundSendsStructuredRequest(t *testing.T) {
	var got capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(completion(`{"woundType":"Úlcera venosa","infectionRisk":"low","infectionRiskScore":20,"recommendations":["Elevar membro"]}`)))
	})

	findings, err := client.AnalyzeWound(context.Background(), "data:image/png;base64,iVBOR")
	require.NoError(t, err)

	assert.Equal(t, "gpt-5", got.Model)
	assert.Equal(t, 2048, got.MaxCompletionTokens)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)

	var system string
	require.NoError(t, json.Unmarshal(got.Messages[0].Content, &system))
	assert.Contains(t, system, "especialista em enfermagem")

	var parts []part
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Contains(t, parts[0].Text, `"woundType"`)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,iVBOR", parts[1].ImageURL.URL)

	assert.Equal(t, "Úlcera venosa", findings.WoundType)
	assert.Equal(t, wound.RiskLow, findings.InfectionRisk)
	assert.Equal(t, 20, findings.InfectionRiskScore)
	assert.Equal(t, []string{"Elevar membro"}, findings.Recommendations)
	assert.Equal(t, DefaultTissueType, findings.TissueType)
	assert.Equal(t, DefaultNotAssessed, findings.OdorAssessment)
	assert.Equal(t, DefaultDetailedAnalysis, findings.DetailedAnalysis)
}

func TestAnalyzeWoundBareBase64IsSentAsJPEG(t *testing.T) {
	var got capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(completion(`{}`)))
	})

	findings, err := client.AnalyzeWound(context.Background(), "/9j/4AAQ")
	require.NoError(t, err)

	var parts []part
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	assert.Equal(t, "data:image/jpeg;base64,/9j/4AAQ", parts[1].ImageURL.URL)
	assert.Equal(t, DefaultWoundType, findings.WoundType)
	assert.Equal(t, DefaultInfectionRiskScore, findings.InfectionRiskScore)
	assert.Equal(t, DefaultRecommendations(), findings.Recommendations)
}

func TestAnalyzeWoundFailuresAreGeneric(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
		}},
		{"empty-content", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(completion("")))
		}},
		{"no-choices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}},
		{"not-json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(completion("a ferida parece bem")))
		}},
		{"json-array", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(completion(`["x"]`)))
		}},
		{"garbage-body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.AnalyzeWound(context.Background(), "abc")
			if !errors.Is(err, ErrAnalysisFailed) {
				t.Fatalf("expected ErrAnalysisFailed, got %v", err)
			}
			if err.Error() != ErrAnalysisFailed.Error() {
				t.Fatalf("cause leaked into error: %v", err)
			}
		})
	}
}

func TestCompareWoundsIncludesSummaries(t *testing.T) {
	var got capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(completion(`{"sizeChange":-25,"tissueImprovement":0,"healingProgress":"70"}`)))
	})

	before := wound.Findings{WoundType: "Lesão por pressão", TissueType: "Necrótico", ExudateLevel: "Abundante", InfectionRisk: wound.RiskHigh, InfectionRiskScore: 80}
	after := wound.Findings{WoundType: "Lesão por pressão", TissueType: "Granulação", ExudateLevel: "Mínimo", InfectionRisk: wound.RiskLow, InfectionRiskScore: 30}

	progress, err := client.CompareWounds(context.Background(), "data:image/png;base64,BEFORE", "AFTER", before, after)
	require.NoError(t, err)

	var parts []part
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 3)
	assert.Contains(t, parts[0].Text, "- Tecido: Necrótico")
	assert.Contains(t, parts[0].Text, "- Risco de infecção: high (80%)")
	assert.Contains(t, parts[0].Text, "- Risco de infecção: low (30%)")
	assert.Equal(t, "data:image/png;base64,BEFORE", parts[1].ImageURL.URL)
	assert.Equal(t, "data:image/jpeg;base64,AFTER", parts[2].ImageURL.URL)

	assert.Equal(t, -25, progress.SizeChange)
	assert.Equal(t, 0, progress.TissueImprovement)
	assert.Equal(t, DefaultExudateChange, progress.ExudateChange)
	assert.Equal(t, 70, progress.HealingProgress)
	assert.Equal(t, DefaultOverallAssessment, progress.OverallAssessment)
	assert.Equal(t, DefaultEvolutionSummary, progress.EvolutionSummary)
}

func TestCompareWoundsFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.CompareWounds(context.Background(), "a", "b", wound.Findings{}, wound.Findings{})
	require.ErrorIs(t, err, ErrComparisonFailed)
}

func TestAzureOptionsReachRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "azure-secret", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "2024-10-21", r.URL.Query().Get("api-version"))
		w.Write([]byte(completion(`{"woundType":"Queimadura"}`)))
	}))
	defer server.Close()

	client, err := New(config.VisionConfig{
		BaseURL:    server.URL + "/openai/deployments/gpt",
		APIKey:     "azure-secret",
		AuthMode:   config.AuthAzureKey,
		APIVersion: "2024-10-21",
	}, logger.NewDiscard())
	require.NoError(t, err)

	findings, err := client.AnalyzeWound(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Queimadura", findings.WoundType)
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "ftp://example.com", "not a url", "http://"} {
		if _, err := New(config.VisionConfig{BaseURL: base}, logger.NewDiscard()); err == nil {
			t.Errorf("expected error for base url %q", base)
		}
	}
}

func TestCancelledContextFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completion(`{}`)))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.AnalyzeWound(ctx, "abc")
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if strings.Contains(err.Error(), "canceled") {
		t.Fatalf("cause leaked: %v", err)
	}
}
