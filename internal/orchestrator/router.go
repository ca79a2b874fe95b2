package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"agentmesh/internal/a2a"
	"agentmesh/internal/logger"
)

// RouterMessageType enumerates the legacy Message Router's message kinds,
// per spec.md §4.5.2.
type RouterMessageType string

const (
	RouterRequest      RouterMessageType = "request"
	RouterNotification RouterMessageType = "notification"
	RouterCommand      RouterMessageType = "command"
)

// RouterMessage is one item published on the legacy Message Router.
type RouterMessage struct {
	Type      RouterMessageType
	AgentType string
	TaskID    string
	Status    a2a.Status
	Action    string // set on RouterCommand, e.g. "cancel"
}

// routerDeadline bounds how long the legacy coordination path waits for
// every expected agent type to report completion before broadcasting a
// cancel, per spec.md §4.5.2.
const routerDeadline = 5 * time.Minute

// MessageRouter is the in-process pub/sub path documented as deprecated
// but kept available for single-process deployments, per spec.md §4.5.2.
// It must remain interface-equivalent to the HTTP/polling path: both
// resolve to an OrchestratorResult.
type MessageRouter struct {
	mu          sync.Mutex
	subscribers map[chan RouterMessage]struct{}
	log         *slog.Logger
}

// NewMessageRouter returns an empty MessageRouter.
func NewMessageRouter() *MessageRouter {
	return &MessageRouter{
		subscribers: make(map[chan RouterMessage]struct{}),
		log:         logger.WithComponent("orchestrator.router"),
	}
}

// Subscribe registers for every message the router broadcasts. The
// returned func unsubscribes.
func (r *MessageRouter) Subscribe() (<-chan RouterMessage, func()) {
	ch := make(chan RouterMessage, 32)
	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		delete(r.subscribers, ch)
		r.mu.Unlock()
		close(ch)
	}
}

// Broadcast publishes msg to every current subscriber, non-blocking.
func (r *MessageRouter) Broadcast(msg RouterMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers {
		select {
		case ch <- msg:
		default:
			r.log.Warn("dropping router message for slow subscriber", "type", msg.Type)
		}
	}
}

// OrchestratorResult is the shape both coordination paths (this router and
// the HTTP polling loop) resolve to, so the caller sees the same contract
// regardless of which path ran (spec.md §4.5.2).
type OrchestratorResult struct {
	Completed map[string]a2a.Status
	Canceled  bool
}

// ToOrchestratorResult renders a completed QueryResult in the same shape
// AwaitCompletion resolves to, so callers and tests can treat the two
// coordination paths as interface-equivalent per spec.md §4.5.2, despite
// the HTTP/polling path's richer QueryResult carrying more detail
// end-users see (the answer text, per-tool breakdown) that the legacy
// router's notification-only protocol has no way to convey.
func (r QueryResult) ToOrchestratorResult() *OrchestratorResult {
	completed := make(map[string]a2a.Status, len(r.Results))
	for _, agent := range r.Results {
		completed[agent.AgentType] = a2a.Status{State: a2a.StateCompleted, Message: agent.Data.Answer}
	}
	return &OrchestratorResult{Completed: completed}
}

// AwaitCompletion broadcasts a request message for each agentType/taskID
// pair in expected (the work itself is already sent by the caller via
// a2aclient), then listens for notification messages whose status is
// completed from each expected agent type. On the 5-minute deadline it
// broadcasts a cancel command to every registered agent and resolves with
// Canceled=true (spec.md §4.5.2).
func (r *MessageRouter) AwaitCompletion(ctx context.Context, expected map[string]string) (*OrchestratorResult, error) {
	events, unsubscribe := r.Subscribe()
	defer unsubscribe()

	for agentType, taskID := range expected {
		r.Broadcast(RouterMessage{Type: RouterRequest, AgentType: agentType, TaskID: taskID})
	}

	completed := make(map[string]a2a.Status)
	deadline := time.NewTimer(routerDeadline)
	defer deadline.Stop()

	for len(completed) < len(expected) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			r.Broadcast(RouterMessage{Type: RouterCommand, Action: "cancel"})
			return &OrchestratorResult{Completed: completed, Canceled: true}, nil
		case msg := <-events:
			if msg.Type != RouterNotification || msg.Status.State != a2a.StateCompleted {
				continue
			}
			if _, want := expected[msg.AgentType]; want {
				completed[msg.AgentType] = msg.Status
			}
		}
	}
	return &OrchestratorResult{Completed: completed}, nil
}
