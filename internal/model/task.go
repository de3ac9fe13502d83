package model

import "time"

// TaskStatus はカンバンボード上のタスクの状態を表す。
type TaskStatus string

const (
	// StatusTodo は未着手のタスクを示す。
	StatusTodo TaskStatus = "TODO"
	// StatusInProgress は作業中のタスクを示す。
	StatusInProgress TaskStatus = "IN_PROGRESS"
	// StatusDone は完了したタスクを示す。
	StatusDone TaskStatus = "DONE"
)

// IsValid はTaskStatusが定義済みの値であるかを返す。
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// タスク優先度の範囲。数値が大きいほど優先度が高い。
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Task はカンバンボード上のタスクを表す。
// AssignerIDはタスクを作成したユーザーのIDで、アクセススコープの基準となる。
// AssigneeIDは担当者未割り当ての場合nil。
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"`
	AssignerID  int64      `json:"assigner_id"`
	AssigneeID  *int64     `json:"assignee_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
