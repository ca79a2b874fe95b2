package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmesh/internal/a2a"
	"agentmesh/internal/a2aserver"
)

type instantDomain struct {
	artifacts []a2a.Artifact
	err       error
}

func (d instantDomain) Execute(ctx context.Context, command string) ([]a2a.Artifact, error) {
	return d.artifacts, d.err
}

type blockingDomain struct {
	unblock chan struct{}
}

func (d blockingDomain) Execute(ctx context.Context, command string) ([]a2a.Artifact, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.unblock:
		return nil, nil
	}
}

func waitForState(t *testing.T, exec *Executor, taskID string, want a2a.State) *a2a.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var task *a2a.Task
	for time.Now().Before(deadline) {
		var err error
		task, err = exec.GetTask(context.Background(), taskID)
		require.NoError(t, err)
		if task.Status.State == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not reach state %s, last was %s", taskID, want, task.Status.State)
	return nil
}

func TestSendMessageCompletesTaskWithArtifacts(t *testing.T) {
	manager := a2a.NewManager(a2a.NewMemoryStore())
	exec := New(manager, instantDomain{artifacts: []a2a.Artifact{{ArtifactID: "a1"}}}, nil, "test-worker")

	task, _, err := exec.SendMessage(context.Background(), a2aserver.SendMessageParams{
		Message: a2a.Message{MessageID: "m1", Parts: []a2a.Part{{Type: a2a.PartText, Text: "do it"}}},
	})
	require.NoError(t, err)

	final := waitForState(t, exec, task.ID, a2a.StateCompleted)
	require.Len(t, final.Artifacts, 1)
}

func TestSendMessageFailsTaskOnDomainError(t *testing.T) {
	manager := a2a.NewManager(a2a.NewMemoryStore())
	exec := New(manager, instantDomain{err: errors.New("boom")}, nil, "test-worker")

	task, _, err := exec.SendMessage(context.Background(), a2aserver.SendMessageParams{
		Message: a2a.Message{MessageID: "m1", Parts: []a2a.Part{{Type: a2a.PartText, Text: "do it"}}},
	})
	require.NoError(t, err)

	final := waitForState(t, exec, task.ID, a2a.StateFailed)
	assert.Equal(t, "boom", final.Status.Message)
}

func TestSendMessageRejectsEmptyMessage(t *testing.T) {
	manager := a2a.NewManager(a2a.NewMemoryStore())
	exec := New(manager, instantDomain{}, nil, "test-worker")

	_, _, err := exec.SendMessage(context.Background(), a2aserver.SendMessageParams{
		Message: a2a.Message{MessageID: "m1"},
	})
	assert.ErrorIs(t, err, a2a.ErrUnsupportedMessageFormat)
}

// TestCancelTaskAbortsRunningDomainCall covers spec.md §4.4/§5's cooperative
// cancellation: CancelTask must unblock an in-flight Execute call.
func TestCancelTaskAbortsRunningDomainCall(t *testing.T) {
	manager := a2a.NewManager(a2a.NewMemoryStore())
	unblock := make(chan struct{})
	exec := New(manager, blockingDomain{unblock: unblock}, nil, "test-worker")
	defer close(unblock)

	task, _, err := exec.SendMessage(context.Background(), a2aserver.SendMessageParams{
		Message: a2a.Message{MessageID: "m1", Parts: []a2a.Part{{Type: a2a.PartText, Text: "do it"}}},
	})
	require.NoError(t, err)

	// Give the goroutine a moment to transition to working before canceling.
	waitForState(t, exec, task.ID, a2a.StateWorking)

	canceled, err := exec.CancelTask(context.Background(), task.ID, "user requested")
	require.NoError(t, err)
	assert.Equal(t, a2a.StateCanceled, canceled.Status.State)
}

func TestDestroyCancelsAllInFlight(t *testing.T) {
	manager := a2a.NewManager(a2a.NewMemoryStore())
	unblock := make(chan struct{})
	exec := New(manager, blockingDomain{unblock: unblock}, nil, "test-worker")
	defer close(unblock)

	task, _, err := exec.SendMessage(context.Background(), a2aserver.SendMessageParams{
		Message: a2a.Message{MessageID: "m1", Parts: []a2a.Part{{Type: a2a.PartText, Text: "do it"}}},
	})
	require.NoError(t, err)
	waitForState(t, exec, task.ID, a2a.StateWorking)

	exec.Destroy()

	time.Sleep(20 * time.Millisecond)
	got, err := exec.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, a2a.StateWorking, got.Status.State, "Destroy cancels the context but leaves the task transition to the run loop, which exits silently on ctx.Err()")
}
