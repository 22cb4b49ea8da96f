package scheduler

import (
	"fmt"
	"sync"

	"padelbot/internal/models"
)

// TaskStore holds the in-memory task list in insertion order. Tasks are
// deliberately not persisted: a restart starts from a clean slate and says
// so in the startup announcement.
type TaskStore struct {
	mu    sync.Mutex
	tasks []*models.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{}
}

func (s *TaskStore) Add(task *models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
}

// List returns the tasks in insertion order. The slice is a copy but the
// tasks are shared: the scheduler mutates them in place.
func (s *TaskStore) List() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Remove deletes the task at the given insertion-order position.
func (s *TaskStore) Remove(index int) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tasks) {
		return nil, fmt.Errorf("no task at position %d", index)
	}
	task := s.tasks[index]
	s.tasks = append(s.tasks[:index], s.tasks[index+1:]...)
	return task, nil
}

func (s *TaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
