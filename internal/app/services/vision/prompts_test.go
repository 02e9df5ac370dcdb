package vision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
)

func TestDefaultPromptsComplete(t *testing.T) {
	set, err := DefaultPrompts()
	if err != nil {
		t.Fatalf("default prompts: %v", err)
	}
	p, err := compilePrompts(set)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	user, err := render(p.comparisonUser, comparisonPromptData{
		Before: wound.Findings{WoundType: "A", InfectionRisk: "high", InfectionRiskScore: 70},
		After:  wound.Findings{WoundType: "B", InfectionRisk: "low", InfectionRiskScore: 10},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Análise da imagem ANTES:", "- Tipo: A", "- Tipo: B", "high (70%)", "low (10%)", `"evolutionSummary"`} {
		if !strings.Contains(user, want) {
			t.Errorf("comparison prompt missing %q", want)
		}
	}
}

func TestLoadPromptsOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	override := "analysis:\n  system: \"You are a wound care nurse. Answer in JSON.\"\n"
	if err := os.WriteFile(path, []byte(override), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	set, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Analysis.System != "You are a wound care nurse. Answer in JSON." {
		t.Fatalf("override not applied: %q", set.Analysis.System)
	}
	if !strings.Contains(set.Comparison.System, "evolução de feridas") {
		t.Fatalf("built-in comparison prompt lost")
	}
}

func TestLoadPromptsErrors(t *testing.T) {
	if _, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("analysis: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadPrompts(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCompilePromptsRejectsBadTemplates(t *testing.T) {
	set, _ := DefaultPrompts()
	set.Comparison.User = "{{.Before.WoundType"
	if _, err := compilePrompts(set); err == nil {
		t.Fatalf("expected template parse error")
	}

	set, _ = DefaultPrompts()
	set.Analysis.User = ""
	if _, err := compilePrompts(set); err == nil {
		t.Fatalf("expected empty prompt error")
	}
}
