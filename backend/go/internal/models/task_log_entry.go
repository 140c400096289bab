package models

import "time"

// TaskEvent 定义了推送到 Kafka / Redis / WebSocket 的任务进度事件的统一结构。
// 每条活动记录对应一条事件。
type TaskEvent struct {
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	Activity  Activity   `json:"activity"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewTaskEvent 基于任务当前状态和刚追加的活动构建事件。
func NewTaskEvent(taskID string, status TaskStatus, activity Activity) *TaskEvent {
	return &TaskEvent{
		TaskID:    taskID,
		Status:    status,
		Activity:  activity,
		Timestamp: activity.Timestamp,
	}
}

// Final 判断事件是否标志着任务结束。
func (e *TaskEvent) Final() bool {
	return e.Status.Terminal()
}
