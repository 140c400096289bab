package models

import "time"

// Deliverable 是任务完成后存储的最终产物，存储后不可变。
type Deliverable struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Synthesized bool      `json:"synthesized"`
	CreatedAt   time.Time `json:"created_at"`
}
