package cmd

import "time"

// The server's JSON shapes, limited to what the CLI prints.

type submitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type agentView struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Specialization string `json:"specialization"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

type activityView struct {
	Seq       int       `json:"seq"`
	Kind      string    `json:"kind"`
	AgentID   string    `json:"agent_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type taskView struct {
	ID             string         `json:"id"`
	Description    string         `json:"description"`
	Status         string         `json:"status"`
	AssignedAgents []agentView    `json:"assigned_agents"`
	Activities     []activityView `json:"activities"`
	FirstError     string         `json:"first_error,omitempty"`
	DeliverableID  string         `json:"deliverable_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

func (t *taskView) finished() bool {
	return t.Status == "completed" || t.Status == "failed"
}

type deliverableView struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Synthesized bool      `json:"synthesized"`
	CreatedAt   time.Time `json:"created_at"`
}

type eventView struct {
	TaskID   string       `json:"task_id"`
	Status   string       `json:"status"`
	Activity activityView `json:"activity"`
}
