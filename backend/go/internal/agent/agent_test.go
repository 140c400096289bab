package agent

import (
	"os"
	"path/filepath"
	"testing"

	"AgentHub/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(DefaultProfiles())
	require.NoError(t, err)
	return r
}

func TestDefaultRulesAreValid(t *testing.T) {
	assert.NoError(t, ValidateRules(defaultRegistry(t), DefaultRules(), DefaultAgentID))
}

func TestValidateRulesRejectsDanglingIDs(t *testing.T) {
	r := defaultRegistry(t)
	err := ValidateRules(r, []Rule{{Name: "ghost", Keywords: []string{"x"}, AgentIDs: []string{"nobody"}}}, DefaultAgentID)
	assert.ErrorIs(t, err, ErrUnknownAgent)

	err = ValidateRules(r, DefaultRules(), "nobody")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestNewRegistryValidation(t *testing.T) {
	base := models.AgentProfile{ID: "a", DisplayName: "A", Specialization: "s", Provider: models.ProviderOpenAI, Model: "m", Temperature: 1, MaxOutputTokens: 10}

	_, err := NewRegistry([]models.AgentProfile{base, base})
	assert.Error(t, err, "duplicate id")

	bad := base
	bad.Temperature = 2.5
	_, err = NewRegistry([]models.AgentProfile{bad})
	assert.Error(t, err)

	bad = base
	bad.Provider = "mistral"
	_, err = NewRegistry([]models.AgentProfile{bad})
	assert.Error(t, err)

	bad = base
	bad.MaxOutputTokens = 0
	_, err = NewRegistry([]models.AgentProfile{bad})
	assert.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	r := defaultRegistry(t)
	p, err := r.Get("data_analyst")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderAnthropic, p.Provider)

	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	list := r.List()
	require.Len(t, list, 9)
	assert.Equal(t, "business_consultant", list[0].ID)
	assert.Equal(t, "social_media_manager", list[len(list)-1].ID)
}

func TestRoute(t *testing.T) {
	router := NewRouter(DefaultRules(), DefaultAgentID)
	cases := []struct {
		description string
		want        []string
	}{
		{"Generate 100 leads in the SaaS industry", []string{"lead_generator"}},
		{"Launch a product marketing campaign", []string{"market_researcher", "content_writer", "social_media_manager", "email_marketer"}},
		{"plan my week", []string{DefaultAgentID}},
		{"", []string{DefaultAgentID}},
		{"Write a BLOG post and an Email newsletter", []string{"content_writer", "email_marketer"}},
		{"Competitor pricing analysis with a KPI dashboard", []string{"market_researcher", "sales_strategist", "data_analyst"}},
		{"Campaign content for LinkedIn", []string{"market_researcher", "content_writer", "social_media_manager", "email_marketer"}},
	}
	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.want, router.Route(tc.description))
		})
	}
}

func TestRouteAlwaysReturnsKnownAgents(t *testing.T) {
	registry := defaultRegistry(t)
	router := NewRouter(DefaultRules(), DefaultAgentID)
	inputs := []string{
		"seo keyword research for organic traffic and a blog",
		"go-to-market launch with cold outreach and a sales pipeline",
		"analytics report for instagram and tiktok",
		"???",
	}
	for _, in := range inputs {
		ids := router.Route(in)
		require.NotEmpty(t, ids)
		seen := map[string]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "duplicate %s for %q", id, in)
			seen[id] = true
			assert.True(t, registry.Has(id))
		}
		assert.Equal(t, ids, router.Route(in), "routing is stable")
	}
}

func TestMatchedRules(t *testing.T) {
	router := NewRouter(DefaultRules(), DefaultAgentID)
	assert.Equal(t, []string{"leads", "sales"}, router.MatchedRules("prospect list for our sales team"))
	assert.Empty(t, router.MatchedRules("plan my week"))
}

func TestPromptLoader(t *testing.T) {
	profile, err := defaultRegistry(t).Get("seo_specialist")
	require.NoError(t, err)
	fallback, err := FallbackPrompt(profile)
	require.NoError(t, err)
	assert.Contains(t, fallback, "You are SEO Strategist, an expert in search engine optimization")

	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")

	loader := NewPromptLoader(path, nil)
	got, err := loader.SystemPrompt(profile)
	require.NoError(t, err)
	assert.Equal(t, fallback, got, "missing file falls back")

	require.NoError(t, os.WriteFile(path, []byte("agents:\n  seo_specialist: \"Custom SEO prompt\"\n"), 0o600))
	got, err = loader.SystemPrompt(profile)
	require.NoError(t, err)
	assert.Equal(t, "Custom SEO prompt", got)

	require.NoError(t, os.WriteFile(path, []byte("agents:\n  seo_specialist: \"Edited\"\n"), 0o600))
	got, _ = loader.SystemPrompt(profile)
	assert.Equal(t, "Edited", got, "file is re-read on every call")

	require.NoError(t, os.WriteFile(path, []byte("agents: [broken\n"), 0o600))
	got, err = loader.SystemPrompt(profile)
	require.NoError(t, err)
	assert.Equal(t, fallback, got, "malformed file falls back")

	require.NoError(t, os.WriteFile(path, []byte("agents:\n  content_writer: \"x\"\n  seo_specialist: \"   \"\n"), 0o600))
	got, _ = loader.SystemPrompt(profile)
	assert.Equal(t, fallback, got, "blank prompt falls back")
}

func TestPromptUnavailable(t *testing.T) {
	_, err := NewPromptLoader("", nil).SystemPrompt(models.AgentProfile{ID: "x"})
	assert.ErrorIs(t, err, ErrPromptUnavailable)
}

func TestBundledPromptsCoverRegistry(t *testing.T) {
	loader := NewPromptLoader(filepath.Join("..", "config", "prompts.yaml"), nil)
	for _, p := range DefaultProfiles() {
		_, ok := loader.lookup(p.ID)
		assert.True(t, ok, "bundled prompt for %s", p.ID)
	}
}

func TestUserPrompt(t *testing.T) {
	p := models.AgentProfile{Specialization: "email marketing sequences and automation"}
	got := UserPrompt(p, "  Write a drip sequence  ")
	assert.Contains(t, got, "Write a drip sequence\n\nProvide a complete, production-ready deliverable")
	assert.Contains(t, got, "specialization in email marketing sequences and automation")
}
