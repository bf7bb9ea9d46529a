package models

import "strings"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskRejected  TaskStatus = "rejected"
	TaskCancelled TaskStatus = "cancelled"
)

// ParseTaskStatus accepts the stored values plus the legacy "failed",
// which is an alias of rejected.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return TaskPending, true
	case "completed":
		return TaskCompleted, true
	case "rejected", "failed":
		return TaskRejected, true
	case "cancelled", "canceled":
		return TaskCancelled, true
	}
	return "", false
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskRejected || s == TaskCancelled
}

// CanTransition reports whether a task may move from s to next. Only pending
// tasks move, and only into a terminal state.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if s != TaskPending {
		return false
	}
	return next.IsTerminal()
}
