package task

import (
	"encoding/json"
	"fmt"
)

// Task is a unit of background work that travels through a queue stream.
// The stream is chosen by TaskType.
type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task any) ([]byte, error) {
	return json.Marshal(task)
}

// UnmarshalTask decodes a task payload into a freshly allocated T.
func UnmarshalTask[T any](data []byte) (*T, error) {
	t := new(T)
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return t, nil
}
