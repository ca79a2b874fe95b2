package orchestrator

import (
	"context"
	"fmt"
	"time"

	"agentmesh/internal/a2a"
	"agentmesh/internal/progressbus"
)

// TaskGetter is the subset of a2aclient.Client the polling loop needs.
type TaskGetter interface {
	GetTask(ctx context.Context, baseURL, taskID string, timeout time.Duration) (*a2a.Task, error)
}

const (
	pollInterval   = 1 * time.Second
	staleThreshold = 120 * time.Second
	pollRPCTimeout = 5 * time.Minute
)

// pollUntilTerminal implements spec.md §4.5.1: repeatedly calls getTask at
// a fixed 1s interval, ramping query:progress from 30% toward 90%, until
// the task reaches a terminal state or liveness times out.
func pollUntilTerminal(ctx context.Context, client TaskGetter, bus *progressbus.Bus, baseURL, taskID, conversationID, queryID string) ([]a2a.Artifact, error) {
	lastResponse := time.Now()
	attempt := 0

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		attempt++
		task, err := client.GetTask(ctx, baseURL, taskID, pollRPCTimeout)
		if err != nil {
			// Do not reset liveness on failure (spec.md §4.5.1): the agent
			// may be slow but responsive, so only absence of any response
			// for staleThreshold is fatal.
			if isStale(lastResponse, time.Now()) {
				return nil, fmt.Errorf("task timed out - agent not responding (taskId=%s)", taskID)
			}
			continue
		}
		lastResponse = time.Now()

		progress := progressForAttempt(attempt)
		publish(bus, progressbus.EventQueryProgress, conversationID, queryID, map[string]any{"progress": progress, "taskId": taskID})

		status := "idle"
		if task.Status.State == a2a.StateWorking {
			status = "busy"
		}
		publish(bus, progressbus.EventAgentStatus, conversationID, queryID, map[string]any{"taskId": taskID, "status": status})

		switch task.Status.State {
		case a2a.StateCompleted:
			return task.Artifacts, nil
		case a2a.StateFailed:
			return nil, fmt.Errorf("task %s failed: %s", taskID, task.Status.Message)
		case a2a.StateCanceled:
			return nil, fmt.Errorf("task %s was canceled: %s", taskID, task.Status.Message)
		}
	}
}

// progressForAttempt implements spec.md §4.5.1's progress ramp.
func progressForAttempt(attempt int) int {
	return min(30+attempt*2, 90)
}

// isStale reports whether lastResponse is old enough, as of now, to
// declare the polled agent unresponsive (spec.md §4.5.1).
func isStale(lastResponse, now time.Time) bool {
	return now.Sub(lastResponse) > staleThreshold
}

func publish(bus *progressbus.Bus, eventType progressbus.EventType, conversationID, queryID string, data any) {
	if bus == nil || conversationID == "" {
		return
	}
	bus.Publish(progressbus.Event{
		Type:           eventType,
		ConversationID: conversationID,
		QueryID:        queryID,
		Data:           data,
	})
}
