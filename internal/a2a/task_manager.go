package a2a

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentmesh/internal/logger"
)

// Manager owns task lifecycle state on behalf of a worker, per spec.md
// §4.1. It serializes mutation per-task (spec.md §5): concurrent callers
// touching different tasks never block each other, callers touching the
// same task serialize through that task's mutex.
type Manager struct {
	store Store

	mu    sync.Mutex // guards locks map itself, not task contents
	locks map[string]*sync.Mutex
}

// NewManager returns a Manager backed by store. A nil store defaults to an
// in-memory Store.
func NewManager(store Store) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Create starts a new task in the submitted state, per spec.md §3/§4.1.
func (m *Manager) Create(ctx context.Context, contextID string, metadata any) (*Task, error) {
	task := &Task{
		ID:        uuid.New().String(),
		ContextID: contextID,
		Status: Status{
			Timestamp: time.Now().UTC(),
			State:     StateSubmitted,
		},
		Metadata: metadata,
	}
	task.History = []Status{task.Status}

	if err := m.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	logger.WithComponent("a2a.task_manager").Info("task created",
		"taskId", task.ID, "contextId", contextID)
	return task.Snapshot(), nil
}

// Get returns the current snapshot of a task.
func (m *Manager) Get(ctx context.Context, id string) (*Task, error) {
	task, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// Transition moves a task to a new state, validating the edge against the
// state machine (spec.md §4.1). message is attached to the resulting
// Status entry and may be empty.
func (m *Manager) Transition(ctx context.Context, id string, to State, message string) (*Task, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	task, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transition task %s: %w", id, err)
	}

	from := task.Status.State
	if IsTerminal(from) {
		return nil, fmt.Errorf("transition task %s from %s to %s: %w", id, from, to, ErrInvalidTransition)
	}
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("transition task %s from %s to %s: %w", id, from, to, ErrInvalidTransition)
	}

	task.Status = Status{
		Timestamp: time.Now().UTC(),
		State:     to,
		Message:   message,
	}
	task.History = append(task.History, task.Status)

	if err := m.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("transition task %s: %w", id, err)
	}
	logger.WithComponent("a2a.task_manager").Info("task transitioned",
		"taskId", id, "from", from, "to", to)
	return task.Snapshot(), nil
}

// Cancel transitions a task to canceled, translating the state machine's
// generic rejection into the domain-specific cancellation errors the
// transport layer maps to TASK_NOT_CANCELABLE / TASK_ALREADY_CANCELED.
func (m *Manager) Cancel(ctx context.Context, id string) (*Task, error) {
	lock := m.lockFor(id)
	lock.Lock()

	task, err := m.store.Get(ctx, id)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("cancel task %s: %w", id, err)
	}
	from := task.Status.State
	lock.Unlock()

	if from == StateCanceled {
		return nil, fmt.Errorf("cancel task %s: %w", id, ErrTaskAlreadyCanceled)
	}
	if IsTerminal(from) || !CanTransition(from, StateCanceled) {
		return nil, fmt.Errorf("cancel task %s: %w", id, ErrTaskNotCancelable)
	}
	return m.Transition(ctx, id, StateCanceled, "canceled by caller")
}

// AddArtifact appends a produced artifact to a task, regardless of state;
// artifacts may stream in before the task reaches a terminal state.
func (m *Manager) AddArtifact(ctx context.Context, id string, artifact Artifact) (*Task, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	task, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("add artifact to task %s: %w", id, err)
	}
	task.Artifacts = append(task.Artifacts, artifact)
	if err := m.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("add artifact to task %s: %w", id, err)
	}
	return task.Snapshot(), nil
}

// ListByContext returns every task sharing a conversation context.
func (m *Manager) ListByContext(ctx context.Context, contextID string) ([]*Task, error) {
	tasks, err := m.store.ListByContext(ctx, contextID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for context %s: %w", contextID, err)
	}
	return tasks, nil
}

// Delete removes a task from the store. Nothing in this repository calls
// it; tasks otherwise stay in the store for the life of the process.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}
