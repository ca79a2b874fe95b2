// Package executor implements the Agent Executor: the adapter between a
// worker's domain logic and the A2A task lifecycle, per spec.md §4.4.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"agentmesh/internal/a2a"
	"agentmesh/internal/a2aserver"
	"agentmesh/internal/logger"
	"agentmesh/internal/progressbus"
)

// Domain is a worker's domain logic, invoked once per task with the
// concatenated text of the triggering message. Implementations parse their
// own command syntax (spec.md §4.4 step 3) and respect ctx cancellation.
type Domain interface {
	Execute(ctx context.Context, command string) ([]a2a.Artifact, error)
}

// Executor adapts a Domain onto the task lifecycle via the Task Manager,
// publishing lifecycle events to a Bus keyed by context id.
type Executor struct {
	manager *a2a.Manager
	domain  Domain
	bus     *progressbus.Bus
	agentID string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	log     *slog.Logger
}

// New builds an Executor. bus may be nil, in which case lifecycle events
// are not published (useful for tests exercising the Task Manager alone).
func New(manager *a2a.Manager, domain Domain, bus *progressbus.Bus, agentID string) *Executor {
	return &Executor{
		manager: manager,
		domain:  domain,
		bus:     bus,
		agentID: agentID,
		cancels: make(map[string]context.CancelFunc),
		log:     logger.WithComponent("executor." + agentID),
	}
}

// SendMessage implements a2aserver.Executor. It creates a fresh task when
// params.TaskID is empty (spec.md §8 invariant: exactly one new task per
// message/send without taskId) and drives it through to a terminal state,
// returning the task in its state immediately after creation/working so
// the caller can begin polling tasks/get.
func (e *Executor) SendMessage(ctx context.Context, params a2aserver.SendMessageParams) (*a2a.Task, string, error) {
	command := params.Message.Text()
	if command == "" && len(params.Message.Parts) == 0 {
		return nil, "", a2a.ErrUnsupportedMessageFormat
	}

	task, err := e.taskFor(ctx, params)
	if err != nil {
		return nil, "", err
	}

	go e.run(task.ID, task.ContextID, command)

	return task, params.Message.MessageID, nil
}

// taskFor creates a task when TaskID is empty, or fetches the existing one
// to append a continuation otherwise (spec.md §4.4 step 1).
func (e *Executor) taskFor(ctx context.Context, params a2aserver.SendMessageParams) (*a2a.Task, error) {
	if params.TaskID == "" {
		task, err := e.manager.Create(ctx, params.ContextID, params.Metadata)
		if err != nil {
			return nil, fmt.Errorf("create task: %w", err)
		}
		e.publish(progressbus.EventTaskCreated, task.ContextID, "", map[string]any{"taskId": task.ID})
		return task, nil
	}
	return e.manager.Get(ctx, params.TaskID)
}

// run executes the domain function and drives the task to a terminal
// state, publishing lifecycle events along the way (spec.md §4.4 steps
// 2-5).
func (e *Executor) run(taskID, contextID, command string) {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancels[taskID] = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.cancels, taskID)
		e.mu.Unlock()
		cancel()
	}()

	if _, err := e.manager.Transition(ctx, taskID, a2a.StateWorking, ""); err != nil {
		e.log.Warn("failed to transition task to working", "taskId", taskID, "error", err)
		return
	}
	e.publish(progressbus.EventAgentStatus, contextID, "", map[string]any{"taskId": taskID, "status": "busy"})

	artifacts, err := e.domain.Execute(ctx, command)

	if ctx.Err() != nil {
		// Canceled out from under us. CancelTask transitions the task and
		// publishes the event itself; after Destroy the task is left in its
		// current state.
		return
	}

	if err != nil {
		if _, terr := e.manager.Transition(ctx, taskID, a2a.StateFailed, err.Error()); terr != nil {
			e.log.Warn("failed to transition task to failed", "taskId", taskID, "error", terr)
		}
		e.publish(progressbus.EventTaskUpdated, contextID, "", map[string]any{"taskId": taskID, "state": "failed", "error": err.Error()})
		return
	}

	for _, artifact := range artifacts {
		if _, aerr := e.manager.AddArtifact(ctx, taskID, artifact); aerr != nil {
			e.log.Warn("failed to attach artifact", "taskId", taskID, "error", aerr)
		}
	}
	if _, terr := e.manager.Transition(ctx, taskID, a2a.StateCompleted, ""); terr != nil {
		e.log.Warn("failed to transition task to completed", "taskId", taskID, "error", terr)
	}
	e.publish(progressbus.EventTaskUpdated, contextID, "", map[string]any{"taskId": taskID, "state": "completed"})
	e.publish(progressbus.EventAgentStatus, contextID, "", map[string]any{"taskId": taskID, "status": "idle"})
}

// GetTask implements a2aserver.Executor.
func (e *Executor) GetTask(ctx context.Context, taskID string) (*a2a.Task, error) {
	return e.manager.Get(ctx, taskID)
}

// CancelTask implements a2aserver.Executor: aborts the running domain call
// via its cancel-handle, then transitions the task (spec.md §4.4, §5
// cooperative cancellation).
func (e *Executor) CancelTask(ctx context.Context, taskID, reason string) (*a2a.Task, error) {
	e.mu.Lock()
	cancel, ok := e.cancels[taskID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	task, err := e.manager.Cancel(ctx, taskID)
	if err != nil {
		return nil, err
	}
	e.publish(progressbus.EventTaskUpdated, task.ContextID, "", map[string]any{"taskId": taskID, "state": "canceled", "reason": reason})
	return task, nil
}

// Destroy cancels every in-flight task and releases resources, per
// spec.md §4.4.
func (e *Executor) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for taskID, cancel := range e.cancels {
		cancel()
		delete(e.cancels, taskID)
	}
}

func (e *Executor) publish(eventType progressbus.EventType, conversationID, queryID string, data any) {
	if e.bus == nil || conversationID == "" {
		return
	}
	e.bus.Publish(progressbus.Event{
		Type:           eventType,
		ConversationID: conversationID,
		QueryID:        queryID,
		Data:           data,
	})
}
