package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmesh/internal/a2a"
	"agentmesh/internal/a2aclient"
	"agentmesh/internal/a2aserver"
	"agentmesh/internal/executor"
)

// stubDomain implements executor.Domain by echoing the command it was given
// back as a single text artifact, enough to prove a query's round trip
// through dispatch and polling without needing the real worker fixtures.
type stubDomain struct{}

func (stubDomain) Execute(ctx context.Context, command string) ([]a2a.Artifact, error) {
	return []a2a.Artifact{{ArtifactID: "a1", Name: "echo", MimeType: "text/plain", Data: []byte(command)}}, nil
}

func newStubWorker(t *testing.T) *httptest.Server {
	t.Helper()
	manager := a2a.NewManager(a2a.NewMemoryStore())
	exec := executor.New(manager, stubDomain{}, nil, "stub-worker")
	handler := a2aserver.NewHandler(exec, a2a.AgentCard{ProtocolVersion: a2a.ProtocolVersion, Name: "stub-worker"})
	mux := http.NewServeMux()
	handler.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOrchestrator(t *testing.T, discoveryURL, analysisURL string) *Orchestrator {
	t.Helper()
	registry := NewWorkerRegistry(map[string]string{"discovery": discoveryURL, "analysis": analysisURL})
	client := a2aclient.New(a2aclient.Config{
		Timeout:     5 * time.Second,
		PollTimeout: 5 * time.Second,
		MaxRetries:  1,
		RetryDelay:  10 * time.Millisecond,
	}, nil)
	t.Cleanup(func() { client.Destroy() })
	return New(registry, client, NewMockLLM(), nil, nil)
}

// fakePersister records PersistAnswer calls in order, letting tests assert
// the answer lands before the query is observed as terminal.
type fakePersister struct {
	mu      sync.Mutex
	answers []string
}

func (f *fakePersister) PersistAnswer(ctx context.Context, conversationID, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer)
	return nil
}

func (f *fakePersister) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.answers...)
}

func waitForQuery(t *testing.T, o *Orchestrator, queryID string) *Query {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		q, ok := o.Get(queryID)
		require.True(t, ok)
		if q.Status == QueryCompleted || q.Status == QueryFailed {
			return q
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("query did not reach a terminal state in time")
	return nil
}

func TestProcessQueryEndToEnd(t *testing.T) {
	worker := newStubWorker(t)
	o := newTestOrchestrator(t, worker.URL, worker.URL)

	q := o.ProcessQuery(context.Background(), "what repositories do we have?", "alice", "conv-1")
	require.NotEmpty(t, q.QueryID)

	final := waitForQuery(t, o, q.QueryID)
	require.Equal(t, QueryCompleted, final.Status)
	require.NotNil(t, final.Result)
	assert.NotEmpty(t, final.Result.Answer)
	assert.Contains(t, final.Result.Results[0].Data.ToolCalls, "list_repositories")
}

// TestProcessQueryDifferentQuestionsYieldDistinctResults covers spec.md §8
// scenario 6: two different questions produce different query ids and
// non-identical artifacts.
func TestProcessQueryDifferentQuestionsYieldDistinctResults(t *testing.T) {
	worker := newStubWorker(t)
	o := newTestOrchestrator(t, worker.URL, worker.URL)

	q1 := o.ProcessQuery(context.Background(), "what repositories do we have?", "alice", "conv-1")
	q2 := o.ProcessQuery(context.Background(), "please analyze cortside/cortside.rest for me", "alice", "conv-2")

	assert.NotEqual(t, q1.QueryID, q2.QueryID)

	final1 := waitForQuery(t, o, q1.QueryID)
	final2 := waitForQuery(t, o, q2.QueryID)

	require.NotNil(t, final1.Result)
	require.NotNil(t, final2.Result)
	assert.NotEqual(t, final1.Result.Answer, final2.Result.Answer)
}

func TestProcessQueryFailsWhenWorkerUnregistered(t *testing.T) {
	registry := NewWorkerRegistry(nil)
	client := a2aclient.New(a2aclient.Config{Timeout: time.Second, MaxRetries: 0}, nil)
	t.Cleanup(func() { client.Destroy() })
	o := New(registry, client, NewMockLLM(), nil, nil)

	q := o.ProcessQuery(context.Background(), "what repositories do we have?", "alice", "conv-1")
	final := waitForQuery(t, o, q.QueryID)
	assert.Equal(t, QueryFailed, final.Status)
	assert.NotEmpty(t, final.Error)
}

// TestProcessQueryPersistsAnswerBeforeCompletion covers spec.md §4.6's
// ordering MUST: a wired persister must have recorded the answer by the
// time the query is observed as completed, not some time after.
func TestProcessQueryPersistsAnswerBeforeCompletion(t *testing.T) {
	worker := newStubWorker(t)
	registry := NewWorkerRegistry(map[string]string{"discovery": worker.URL, "analysis": worker.URL})
	client := a2aclient.New(a2aclient.Config{
		Timeout:     5 * time.Second,
		PollTimeout: 5 * time.Second,
		MaxRetries:  1,
		RetryDelay:  10 * time.Millisecond,
	}, nil)
	t.Cleanup(func() { client.Destroy() })
	persister := &fakePersister{}
	o := New(registry, client, NewMockLLM(), nil, persister)

	q := o.ProcessQuery(context.Background(), "what repositories do we have?", "alice", "conv-1")
	final := waitForQuery(t, o, q.QueryID)

	require.NotNil(t, final.Result)
	require.Len(t, persister.snapshot(), 1)
	assert.Equal(t, final.Result.Answer, persister.snapshot()[0])
}
