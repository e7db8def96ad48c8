package model

import (
	"bytes"
	"encoding/json"
)

// Project statuses accepted by the backend.
const (
	ProjectNew        = "New"
	ProjectInProgress = "In Progress"
	ProjectCompleted  = "Completed"
	ProjectOnHold     = "On Hold"
)

// Project is a top-level unit of work.
type Project struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startDate"`
	DeadLine    string `json:"deadLine"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Story belongs to a project and groups tasks.
type Story struct {
	ID          int    `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Iteration   string `json:"iteration,omitempty"`
	Status      string `json:"status"`
	StoryPoint  int    `json:"StoryPoint"`
	ProjectID   int    `json:"projectId"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Task is the smallest tracked item, assigned to one user.
type Task struct {
	ID              int     `json:"id,omitempty"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	EstimationHours float64 `json:"estimationHours"`
	WorkingHours    float64 `json:"workingHours"`
	Status          string  `json:"status"`
	StoryID         int     `json:"storyId"`
	AssignedTo      int     `json:"assignedTo"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	UpdatedAt       string  `json:"updatedAt,omitempty"`
	Story           *Story  `json:"story,omitempty"`
	AssignedUser    *User   `json:"assignedUser,omitempty"`
}

// Unwrap returns the payload of a {"success":..,"data":..} envelope, or the
// raw body when the backend answered with the bare value.
func Unwrap(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Success == nil || env.Data == nil {
		return trimmed
	}
	return env.Data
}
