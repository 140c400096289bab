package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/logger"

	"gopkg.in/yaml.v3"
)

// ErrPromptUnavailable 表示既没有外部提示词，也无法生成兜底提示词。
var ErrPromptUnavailable = errors.New("prompt unavailable")

type promptFile struct {
	Agents map[string]string `yaml:"agents"`
}

// PromptLoader 从 YAML 文件解析 Agent 的系统提示词。
// 每次调用都会重新读取文件，因此修改文件后无需重启。
type PromptLoader struct {
	path string
	log  *logger.Logger
}

// NewPromptLoader 创建提示词加载器。path 为空时始终使用兜底提示词。
func NewPromptLoader(path string, log *logger.Logger) *PromptLoader {
	if log == nil {
		log = logger.Discard()
	}
	return &PromptLoader{path: path, log: log}
}

// SystemPrompt 返回 profile 对应的系统提示词。
func (l *PromptLoader) SystemPrompt(profile models.AgentProfile) (string, error) {
	if prompt, ok := l.lookup(profile.ID); ok {
		return prompt, nil
	}
	return FallbackPrompt(profile)
}

func (l *PromptLoader) lookup(agentID string) (string, bool) {
	if l.path == "" {
		return "", false
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Debug(fmt.Sprintf("prompt file %s not found, using generated prompt", l.path))
		} else {
			l.log.WithPayload(map[string]interface{}{"path": l.path, "reason": err.Error()}).Warn("prompt file unreadable, using generated prompt")
		}
		return "", false
	}
	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		l.log.WithPayload(map[string]interface{}{"path": l.path, "reason": err.Error()}).Warn("prompt file malformed, using generated prompt")
		return "", false
	}
	prompt := strings.TrimSpace(pf.Agents[agentID])
	if prompt == "" {
		l.log.Debug(fmt.Sprintf("no prompt for agent %s in %s, using generated prompt", agentID, l.path))
		return "", false
	}
	return prompt, true
}

// FallbackPrompt 只根据档案生成通用系统提示词。
func FallbackPrompt(profile models.AgentProfile) (string, error) {
	if profile.DisplayName == "" || profile.Specialization == "" {
		return "", fmt.Errorf("%w: agent %q has no display name or specialization", ErrPromptUnavailable, profile.ID)
	}
	return fmt.Sprintf("You are %s, an expert in %s. Produce thorough, actionable, well-structured work "+
		"that a business could put to use immediately. Use clear headings, be specific, and state any assumptions you make.",
		profile.DisplayName, profile.Specialization), nil
}

// UserPrompt 在任务描述后附加固定的交付要求。
func UserPrompt(profile models.AgentProfile, description string) string {
	return fmt.Sprintf("%s\n\nProvide a complete, production-ready deliverable for this task from the perspective of your "+
		"specialization in %s. Do not describe what you would do; produce the finished work itself, "+
		"including concrete examples, numbers and next steps where relevant.", strings.TrimSpace(description), profile.Specialization)
}
