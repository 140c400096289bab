package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"AgentHub/backend/go/internal/config"
	"AgentHub/backend/go/internal/llm"
	"AgentHub/backend/go/internal/models"
)

// ErrSynthesisFailed wraps every failure of the merge pass.
var ErrSynthesisFailed = errors.New("synthesis failed")

const editorSystemPrompt = `You are a senior editor and project lead. Several specialists have each produced part of a deliverable for the same client request. Your job is to merge their work into one coherent, professional deliverable.

Responsibilities:
1. Review every contribution for completeness and flag gaps or contradictions.
2. Organize the material into clear, logically ordered sections with headings. Remove duplication but keep every concrete detail, number and example.
3. Open with an executive summary of the most important findings and recommendations.
4. Add an implementation roadmap with phases, owners and timelines.
5. Define success metrics and how to measure them.
6. Close with specific next steps the client can act on this week.

Write the finished deliverable itself, not a description of it.`

// Synthesizer merges several agent outputs into one deliverable with a single provider call.
type Synthesizer struct {
	providers ClientSource
	cfg       config.SynthesisConfig
}

// NewSynthesizer creates a new Synthesizer using the configured editor provider and model.
func NewSynthesizer(providers ClientSource, cfg config.SynthesisConfig) *Synthesizer {
	return &Synthesizer{providers: providers, cfg: cfg}
}

// Synthesize merges outputs in the order given. Errors wrap ErrSynthesisFailed.
func (s *Synthesizer) Synthesize(ctx context.Context, description string, outputs []models.AgentOutput) (string, error) {
	if len(outputs) == 0 {
		return "", fmt.Errorf("%w: no agent outputs to merge", ErrSynthesisFailed)
	}
	client, err := s.providers.Get(models.Provider(s.cfg.Provider))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	resp, err := client.Generate(ctx, &llm.GenerateRequest{
		Model:        s.cfg.Model,
		SystemPrompt: editorSystemPrompt,
		UserPrompt:   synthesisPrompt(description, outputs),
		Temperature:  s.cfg.Temperature,
		MaxTokens:    s.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: editor returned an empty response", ErrSynthesisFailed)
	}
	return text, nil
}

func synthesisPrompt(description string, outputs []models.AgentOutput) string {
	var b strings.Builder
	b.WriteString("Original request:\n")
	b.WriteString(strings.TrimSpace(description))
	b.WriteString("\n\nSpecialist contributions, in the order they were produced:\n\n")
	writeLabelledOutputs(&b, outputs)
	b.WriteString("Merge these contributions into a single comprehensive deliverable.")
	return b.String()
}

// writeLabelledOutputs writes each output under a "### n. Name (specialization)" heading.
func writeLabelledOutputs(b *strings.Builder, outputs []models.AgentOutput) {
	for i, out := range outputs {
		fmt.Fprintf(b, "### %d. %s (%s)\n\n", i+1, out.DisplayName, out.Specialization)
		b.WriteString(out.Content)
		b.WriteString("\n\n")
	}
}
