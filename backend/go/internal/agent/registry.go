package agent

import (
	"errors"
	"fmt"
	"sort"

	"AgentHub/backend/go/internal/models"
)

// ErrUnknownAgent 表示查询的 Agent ID 不在注册表中。
var ErrUnknownAgent = errors.New("unknown agent")

// DefaultAgentID 是没有任何路由规则命中时使用的 Agent。
const DefaultAgentID = "business_consultant"

const claudeSonnet = "claude-sonnet-4-20250514"

// DefaultProfiles 返回内置的 Agent 档案表。
func DefaultProfiles() []models.AgentProfile {
	return []models.AgentProfile{
		{ID: "lead_generator", DisplayName: "Lead Generation Specialist", Specialization: "B2B lead generation and prospect research", Provider: models.ProviderOpenAI, Model: "gpt-4o-mini", Temperature: 0.7, MaxOutputTokens: 3000},
		{ID: "market_researcher", DisplayName: "Market Research Analyst", Specialization: "market sizing, competitor and audience research", Provider: models.ProviderOpenAI, Model: "gpt-4o", Temperature: 0.5, MaxOutputTokens: 3000},
		{ID: "content_writer", DisplayName: "Content Marketing Writer", Specialization: "long-form content, copywriting and messaging", Provider: models.ProviderOpenAI, Model: "gpt-4o", Temperature: 0.8, MaxOutputTokens: 4000},
		{ID: "seo_specialist", DisplayName: "SEO Strategist", Specialization: "search engine optimization and keyword strategy", Provider: models.ProviderOpenAI, Model: "gpt-4o-mini", Temperature: 0.5, MaxOutputTokens: 3000},
		{ID: "social_media_manager", DisplayName: "Social Media Strategist", Specialization: "social media planning and community growth", Provider: models.ProviderOpenAI, Model: "gpt-4o-mini", Temperature: 0.8, MaxOutputTokens: 3000},
		{ID: "email_marketer", DisplayName: "Email Campaign Specialist", Specialization: "email marketing sequences and automation", Provider: models.ProviderOpenAI, Model: "gpt-4o-mini", Temperature: 0.7, MaxOutputTokens: 3000},
		{ID: "sales_strategist", DisplayName: "Sales Strategy Consultant", Specialization: "sales process, pricing and pipeline design", Provider: models.ProviderAnthropic, Model: claudeSonnet, Temperature: 0.6, MaxOutputTokens: 4000},
		{ID: "data_analyst", DisplayName: "Business Data Analyst", Specialization: "metrics, KPIs, dashboards and reporting", Provider: models.ProviderAnthropic, Model: claudeSonnet, Temperature: 0.3, MaxOutputTokens: 4000},
		{ID: DefaultAgentID, DisplayName: "General Business Consultant", Specialization: "general business strategy and planning", Provider: models.ProviderAnthropic, Model: claudeSonnet, Temperature: 0.7, MaxOutputTokens: 4000},
	}
}

// Registry 在内存中保存 Agent 档案。构建后只读，可以被多个 goroutine 并发读取。
type Registry struct {
	agents map[string]models.AgentProfile
}

// NewRegistry 校验并创建一个注册表实例。
func NewRegistry(profiles []models.AgentProfile) (*Registry, error) {
	r := &Registry{agents: make(map[string]models.AgentProfile, len(profiles))}
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("agent profile with empty id")
		}
		if _, dup := r.agents[p.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %q", p.ID)
		}
		if !p.Provider.Valid() {
			return nil, fmt.Errorf("agent %q: unsupported provider %q", p.ID, p.Provider)
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			return nil, fmt.Errorf("agent %q: temperature %v outside [0,2]", p.ID, p.Temperature)
		}
		if p.MaxOutputTokens <= 0 {
			return nil, fmt.Errorf("agent %q: maxOutputTokens must be positive", p.ID)
		}
		r.agents[p.ID] = p
	}
	return r, nil
}

// Get 根据 ID 检索一个 Agent 档案。
func (r *Registry) Get(id string) (models.AgentProfile, error) {
	p, ok := r.agents[id]
	if !ok {
		return models.AgentProfile{}, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	return p, nil
}

// Has 判断 ID 是否存在。
func (r *Registry) Has(id string) bool {
	_, ok := r.agents[id]
	return ok
}

// List 返回按 ID 排序的所有 Agent 档案。
func (r *Registry) List() []models.AgentProfile {
	out := make([]models.AgentProfile, 0, len(r.agents))
	for _, p := range r.agents {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
