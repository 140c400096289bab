package service

import (
	"context"
	"time"

	"AgentHub/backend/go/internal/agent"
	"AgentHub/backend/go/internal/llm"
	"AgentHub/backend/go/internal/models"
)

// ProfileSource resolves agent ids to profiles.
type ProfileSource interface {
	Get(id string) (models.AgentProfile, error)
}

// PromptSource resolves the system prompt for a profile.
type PromptSource interface {
	SystemPrompt(profile models.AgentProfile) (string, error)
}

// ClientSource returns the provider client for a provider.
type ClientSource interface {
	Get(p models.Provider) (llm.Client, error)
}

// Execution is the result of one successful agent run.
type Execution struct {
	Output  models.AgentOutput
	Usage   llm.Usage
	Elapsed time.Duration
}

// Executor runs one agent against one task description.
// Failures are returned as-is so callers can match them with errors.Is.
type Executor struct {
	profiles  ProfileSource
	prompts   PromptSource
	providers ClientSource
	now       func() time.Time
}

// NewExecutor creates a new Executor.
func NewExecutor(profiles ProfileSource, prompts PromptSource, providers ClientSource) *Executor {
	return &Executor{profiles: profiles, prompts: prompts, providers: providers, now: time.Now}
}

// Execute runs agentID against description. There is no retry.
func (e *Executor) Execute(ctx context.Context, agentID, description string) (*Execution, error) {
	profile, err := e.profiles.Get(agentID)
	if err != nil {
		return nil, err
	}
	systemPrompt, err := e.prompts.SystemPrompt(profile)
	if err != nil {
		return nil, err
	}
	client, err := e.providers.Get(profile.Provider)
	if err != nil {
		return nil, err
	}

	start := e.now()
	resp, err := client.Generate(ctx, &llm.GenerateRequest{
		Model:        profile.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   agent.UserPrompt(profile, description),
		Temperature:  profile.Temperature,
		MaxTokens:    profile.MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	finished := e.now()

	model := resp.Model
	if model == "" {
		model = profile.Model
	}
	return &Execution{
		Output: models.AgentOutput{
			AgentID:        profile.ID,
			DisplayName:    profile.DisplayName,
			Specialization: profile.Specialization,
			Model:          model,
			Provider:       profile.Provider,
			Content:        resp.Text,
			ProducedAt:     finished,
		},
		Usage:   resp.Usage,
		Elapsed: finished.Sub(start),
	}, nil
}
