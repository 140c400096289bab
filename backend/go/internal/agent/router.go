package agent

import (
	"fmt"
	"strings"
)

// Rule 把一组关键词映射到一个或多个 Agent。任一关键词是描述的子串即命中。
type Rule struct {
	Name     string
	Keywords []string
	AgentIDs []string
}

// DefaultRules 是内置路由表，自上而下求值，顺序有意义。
func DefaultRules() []Rule {
	return []Rule{
		{Name: "campaign", Keywords: []string{"campaign", "launch", "go-to-market", "go to market", "gtm"},
			AgentIDs: []string{"market_researcher", "content_writer", "social_media_manager", "email_marketer"}},
		{Name: "leads", Keywords: []string{"lead", "prospect"}, AgentIDs: []string{"lead_generator"}},
		{Name: "seo", Keywords: []string{"seo", "search engine", "keyword", "organic traffic"}, AgentIDs: []string{"seo_specialist"}},
		{Name: "content", Keywords: []string{"blog", "article", "copywriting", "content", "newsletter"}, AgentIDs: []string{"content_writer"}},
		{Name: "social", Keywords: []string{"social media", "instagram", "linkedin", "twitter", "tiktok", "facebook"}, AgentIDs: []string{"social_media_manager"}},
		{Name: "email", Keywords: []string{"email", "drip sequence", "cold outreach"}, AgentIDs: []string{"email_marketer"}},
		{Name: "research", Keywords: []string{"market research", "competitor", "competitive analysis", "market analysis", "industry analysis"}, AgentIDs: []string{"market_researcher"}},
		{Name: "sales", Keywords: []string{"sales", "pipeline", "pricing", "deal"}, AgentIDs: []string{"sales_strategist"}},
		{Name: "data", Keywords: []string{"analytics", "kpi", "dashboard", "metrics", "report"}, AgentIDs: []string{"data_analyst"}},
	}
}

// Router 根据关键词规则为任务描述挑选 Agent。
type Router struct {
	rules     []Rule
	defaultID string
}

// NewRouter 创建路由器。规则会被拷贝，关键词统一转为小写。
func NewRouter(rules []Rule, defaultID string) *Router {
	copied := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		copied[i] = Rule{Name: r.Name, Keywords: kws, AgentIDs: append([]string(nil), r.AgentIDs...)}
	}
	return &Router{rules: copied, defaultID: defaultID}
}

// Route 返回有序、去重、非空的 Agent ID 列表。
func (r *Router) Route(description string) []string {
	text := strings.ToLower(description)
	seen := make(map[string]struct{})
	var ids []string
	for _, rule := range r.rules {
		if !rule.matches(text) {
			continue
		}
		for _, id := range rule.AgentIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []string{r.defaultID}
	}
	return ids
}

// MatchedRules 返回命中的规则名，编排器把它写进路由活动。
func (r *Router) MatchedRules(description string) []string {
	text := strings.ToLower(description)
	var names []string
	for _, rule := range r.rules {
		if rule.matches(text) {
			names = append(names, rule.Name)
		}
	}
	return names
}

func (rule Rule) matches(text string) bool {
	for _, kw := range rule.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ValidateRules 在启动时确认所有规则目标和默认 Agent 都存在于注册表中。
func ValidateRules(registry *Registry, rules []Rule, defaultID string) error {
	if !registry.Has(defaultID) {
		return fmt.Errorf("default agent %q: %w", defaultID, ErrUnknownAgent)
	}
	for _, rule := range rules {
		if len(rule.AgentIDs) == 0 {
			return fmt.Errorf("rule %q has no target agents", rule.Name)
		}
		for _, id := range rule.AgentIDs {
			if !registry.Has(id) {
				return fmt.Errorf("rule %q targets %q: %w", rule.Name, id, ErrUnknownAgent)
			}
		}
	}
	return nil
}
