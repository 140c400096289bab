package models

import (
	"fmt"
	"time"
)

// TaskStatus 定义了任务在编排流程中的状态，只能向前推进。
type TaskStatus string

const (
	TaskStatusAnalyzing    TaskStatus = "analyzing"
	TaskStatusRouting      TaskStatus = "routing"
	TaskStatusExecuting    TaskStatus = "executing"
	TaskStatusSynthesizing TaskStatus = "synthesizing"
	TaskStatusCompleted    TaskStatus = "completed"
	TaskStatusFailed       TaskStatus = "failed"
)

var statusRank = map[TaskStatus]int{
	TaskStatusAnalyzing:    0,
	TaskStatusRouting:      1,
	TaskStatusExecuting:    2,
	TaskStatusSynthesizing: 3,
	TaskStatusCompleted:    4,
}

// Terminal 判断状态是否为终态。
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ActivityKind 是活动日志条目的类别。
type ActivityKind string

const (
	ActivityAnalyzing         ActivityKind = "analyzing"
	ActivityRouting           ActivityKind = "routing"
	ActivityAgentStart        ActivityKind = "agent_start"
	ActivityAgentComplete     ActivityKind = "agent_complete"
	ActivityAgentError        ActivityKind = "agent_error"
	ActivitySynthesizing      ActivityKind = "synthesizing"
	ActivitySynthesisComplete ActivityKind = "synthesis_complete"
	ActivitySynthesisError    ActivityKind = "synthesis_error"
	ActivityComplete          ActivityKind = "complete"
	ActivityError             ActivityKind = "error"
)

// Activity 是任务活动日志中的一条记录。
type Activity struct {
	Seq       int          `json:"seq"`
	Kind      ActivityKind `json:"kind"`
	AgentID   string       `json:"agent_id,omitempty"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// AgentOutput 是单个 Agent 成功执行后的归一化结果，创建后不可变。
type AgentOutput struct {
	AgentID        string    `json:"agent_id"`
	DisplayName    string    `json:"display_name"`
	Specialization string    `json:"specialization"`
	Model          string    `json:"model"`
	Provider       Provider  `json:"provider"`
	Content        string    `json:"content"`
	ProducedAt     time.Time `json:"produced_at"`
}

// Task 代表一次用户提交的任务及其完整处理轨迹。
// 处理期间由编排器独占写入；对外只暴露 Clone 出来的副本。
type Task struct {
	ID               string         `json:"id"`
	Description      string         `json:"description"`
	Status           TaskStatus     `json:"status"`
	AssignedAgents   []AgentProfile `json:"assigned_agents"`
	Activities       []Activity     `json:"activities"`
	Outputs          []AgentOutput  `json:"outputs"`
	FirstError       string         `json:"first_error,omitempty"`
	FinalDeliverable *string        `json:"final_deliverable,omitempty"`
	DeliverableID    string         `json:"deliverable_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// NewTask 创建一个处于 Analyzing 状态的新任务。
func NewTask(id, description string, now time.Time) *Task {
	return &Task{
		ID:          id,
		Description: description,
		Status:      TaskStatusAnalyzing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Advance 将任务推进到 next 状态。
// 非终态可以直接进入 Failed；其余迁移必须严格向前。
func (t *Task) Advance(next TaskStatus, now time.Time) error {
	if t.Status.Terminal() {
		return fmt.Errorf("task %s is already %s", t.ID, t.Status)
	}
	if next != TaskStatusFailed {
		cur, ok := statusRank[t.Status]
		nxt, known := statusRank[next]
		if !ok || !known || nxt <= cur {
			return fmt.Errorf("task %s cannot move from %s to %s", t.ID, t.Status, next)
		}
	}
	t.Status = next
	t.UpdatedAt = now
	if next.Terminal() {
		done := now
		t.CompletedAt = &done
	}
	return nil
}

// AssignAgents 记录路由结果，只能设置一次。
func (t *Task) AssignAgents(agents []AgentProfile) error {
	if t.AssignedAgents != nil {
		return fmt.Errorf("task %s already has assigned agents", t.ID)
	}
	if len(agents) == 0 {
		return fmt.Errorf("task %s: empty agent assignment", t.ID)
	}
	t.AssignedAgents = append(make([]AgentProfile, 0, len(agents)), agents...)
	return nil
}

// AppendActivity 在活动日志末尾追加一条记录。
func (t *Task) AppendActivity(kind ActivityKind, agentID, message string, now time.Time) Activity {
	a := Activity{
		Seq:       len(t.Activities) + 1,
		Kind:      kind,
		AgentID:   agentID,
		Message:   message,
		Timestamp: now,
	}
	t.Activities = append(t.Activities, a)
	t.UpdatedAt = now
	return a
}

// AppendOutput 追加一个 Agent 的输出。
func (t *Task) AppendOutput(out AgentOutput) {
	t.Outputs = append(t.Outputs, out)
}

// RecordError 记录首个错误。已有错误时不覆盖并返回 false。
func (t *Task) RecordError(msg string) bool {
	if t.FirstError != "" || msg == "" {
		return false
	}
	t.FirstError = msg
	return true
}

// SetFinalDeliverable 设置最终交付内容，只能设置一次。
func (t *Task) SetFinalDeliverable(content string) error {
	if t.FinalDeliverable != nil {
		return fmt.Errorf("task %s already has a final deliverable", t.ID)
	}
	t.FinalDeliverable = &content
	return nil
}

// LinkDeliverable 关联已存储的交付物 ID，只能设置一次。
func (t *Task) LinkDeliverable(id string) error {
	if t.DeliverableID != "" {
		return fmt.Errorf("task %s already linked to deliverable %s", t.ID, t.DeliverableID)
	}
	t.DeliverableID = id
	return nil
}

// Clone 返回任务的深拷贝，调用方可以随意读取而不影响存储中的数据。
func (t *Task) Clone() *Task {
	c := *t
	if t.AssignedAgents != nil {
		c.AssignedAgents = append([]AgentProfile(nil), t.AssignedAgents...)
	}
	if t.Activities != nil {
		c.Activities = append([]Activity(nil), t.Activities...)
	}
	if t.Outputs != nil {
		c.Outputs = append([]AgentOutput(nil), t.Outputs...)
	}
	if t.FinalDeliverable != nil {
		s := *t.FinalDeliverable
		c.FinalDeliverable = &s
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return &c
}
