package task

import "time"

// EventType identifies the kind of entry in a task's execution log.
type EventType string

const (
	EventToolCall     EventType = "tool_call"
	EventToolError    EventType = "tool_error"
	EventFileCreated  EventType = "file_created"
	EventFileModified EventType = "file_modified"
	EventFileDeleted  EventType = "file_deleted"
)

// IsFileChange reports whether the event type records a workspace file
// mutation.
func (t EventType) IsFileChange() bool {
	switch t {
	case EventFileCreated, EventFileModified, EventFileDeleted:
		return true
	}
	return false
}

// Intent is the declared goal of a task: the title it was created with and
// the prompt text it ran against.
type Intent struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// Event is one entry in a task's append-only execution log. At most one
// payload pointer is set, matching Type. Events of an unrecognized type
// carry no payload and are skipped by every consumer.
type Event struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	ToolCall  *ToolCallPayload   `json:"tool_call,omitempty"`
	ToolError *ToolErrorPayload  `json:"tool_error,omitempty"`
	File      *FileChangePayload `json:"file,omitempty"`
}

// ToolCallPayload records a tool invocation and the raw input it received.
// For command-runner tools Input is the command text itself.
type ToolCallPayload struct {
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

// ToolErrorPayload records a failed tool invocation.
type ToolErrorPayload struct {
	Tool    string `json:"tool"`
	Message string `json:"message,omitempty"`
}

// FileChangePayload records the workspace path touched by a file event.
type FileChangePayload struct {
	Path string `json:"path"`
}
