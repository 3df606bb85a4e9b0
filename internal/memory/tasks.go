package memory

import (
	"context"
	"maps"
	"sync"
)

const TaskOpen = "open"

type Task struct {
	ID       int            `json:"id"`
	Title    string         `json:"title"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

// TaskStore: список задач агента. Идентификаторы монотонно растут с 1.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  []Task
	nextID int
}

func NewTaskStore() *TaskStore {
	return &TaskStore{}
}

func (s *TaskStore) Add(_ context.Context, title, status string, metadata map[string]any) Task {
	if status == "" {
		status = TaskOpen
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := Task{ID: s.nextID, Title: title, Status: status, Metadata: maps.Clone(metadata)}
	s.tasks = append(s.tasks, t)
	return clone(t)
}

func (s *TaskStore) List(_ context.Context) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, clone(t))
	}
	return out
}

func clone(t Task) Task {
	t.Metadata = maps.Clone(t.Metadata)
	return t
}
