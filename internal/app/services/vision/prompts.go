package vision

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PromptSet holds the system and user prompt templates for both calls.
type PromptSet struct {
	Analysis   PromptPair `yaml:"analysis"`
	Comparison PromptPair `yaml:"comparison"`
}

// PromptPair is one system/user template pair.
type PromptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type prompts struct {
	analysisSystem   *template.Template
	analysisUser     *template.Template
	comparisonSystem *template.Template
	comparisonUser   *template.Template
}

type comparisonPromptData struct {
	Before wound.Findings
	After  wound.Findings
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() (PromptSet, error) {
	var set PromptSet
	if err := yaml.Unmarshal(defaultPrompts, &set); err != nil {
		return PromptSet{}, fmt.Errorf("parse built-in prompts: %w", err)
	}
	return set, nil
}

// LoadPrompts reads path and overlays its non-empty templates on the
// built-in set. An empty path returns the built-in set.
func LoadPrompts(path string) (PromptSet, error) {
	set, err := DefaultPrompts()
	if err != nil || path == "" {
		return set, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PromptSet{}, fmt.Errorf("failed to read prompts file: %w", err)
	}
	var override PromptSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return PromptSet{}, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	overlay(&set.Analysis.System, override.Analysis.System)
	overlay(&set.Analysis.User, override.Analysis.User)
	overlay(&set.Comparison.System, override.Comparison.System)
	overlay(&set.Comparison.User, override.Comparison.User)
	return set, nil
}

func overlay(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func compilePrompts(set PromptSet) (*prompts, error) {
	var p prompts
	for _, t := range []struct {
		name string
		text string
		dst  **template.Template
	}{
		{"analysis.system", set.Analysis.System, &p.analysisSystem},
		{"analysis.user", set.Analysis.User, &p.analysisUser},
		{"comparison.system", set.Comparison.System, &p.comparisonSystem},
		{"comparison.user", set.Comparison.User, &p.comparisonUser},
	} {
		if t.text == "" {
			return nil, fmt.Errorf("prompt %s is empty", t.name)
		}
		tmpl, err := template.New(t.name).Option("missingkey=error").Parse(t.text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", t.name, err)
		}
		*t.dst = tmpl
	}
	return &p, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
