package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmesh/internal/a2a"
	"agentmesh/internal/a2aclient"
	"agentmesh/internal/a2aserver"
	"agentmesh/internal/executor"
	"agentmesh/internal/orchestrator"
)

type echoDomain struct{}

func (echoDomain) Execute(ctx context.Context, command string) ([]a2a.Artifact, error) {
	return []a2a.Artifact{{ArtifactID: "a1", MimeType: "text/plain", Data: []byte(command)}}, nil
}

func newStubWorker(t *testing.T) *httptest.Server {
	t.Helper()
	manager := a2a.NewManager(a2a.NewMemoryStore())
	exec := executor.New(manager, echoDomain{}, nil, "stub-worker")
	handler := a2aserver.NewHandler(exec, a2a.AgentCard{ProtocolVersion: a2a.ProtocolVersion, Name: "stub-worker"})
	mux := http.NewServeMux()
	handler.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandlers(t *testing.T) (*Handlers, *ConversationStore) {
	t.Helper()
	worker := newStubWorker(t)
	store := newTestStore(t)

	registry := orchestrator.NewWorkerRegistry(map[string]string{"discovery": worker.URL, "analysis": worker.URL})
	client := a2aclient.New(a2aclient.Config{
		Timeout:     5 * time.Second,
		PollTimeout: 5 * time.Second,
		MaxRetries:  1,
		RetryDelay:  10 * time.Millisecond,
	}, nil)
	t.Cleanup(func() { client.Destroy() })

	orch := orchestrator.New(registry, client, orchestrator.NewMockLLM(), nil, store)
	return NewHandlers(store, orch), store
}

func TestHandleQueryReturns202WithQueryID(t *testing.T) {
	handlers, _ := newTestHandlers(t)

	body, _ := json.Marshal(queryRequest{Username: "alice", Message: "what repositories do we have?"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handleQuery(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp queryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.QueryID)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, "processing", resp.Status)
}

func TestHandleQueryRejectsMissingFields(t *testing.T) {
	handlers, _ := newTestHandlers(t)

	body, _ := json.Marshal(queryRequest{Username: "alice"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handleQuery(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueryPersistsUserMessageImmediately(t *testing.T) {
	handlers, store := newTestHandlers(t)

	body, _ := json.Marshal(queryRequest{Username: "alice", Message: "what repositories do we have?"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handlers.handleQuery(rec, req)

	var resp queryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	messages, err := store.Messages(t.Context(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "what repositories do we have?", messages[0].Content)
}

// TestOrchestratorPersistsAssistantAnswer covers spec.md §4.6: the
// orchestrator, wired with the façade's store as its AnswerPersister,
// appends the assistant-role answer without the façade polling for it.
func TestOrchestratorPersistsAssistantAnswer(t *testing.T) {
	handlers, store := newTestHandlers(t)

	body, _ := json.Marshal(queryRequest{Username: "alice", Message: "what repositories do we have?"})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handlers.handleQuery(rec, req)

	var resp queryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	deadline := time.Now().Add(5 * time.Second)
	var messages []StoredMessage
	for time.Now().Before(deadline) {
		var err error
		messages, err = store.Messages(t.Context(), resp.ConversationID)
		require.NoError(t, err)
		if len(messages) >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Len(t, messages, 2)
	assert.Equal(t, "agent", messages[1].Role)
}

func TestHandleMessagesReturnsPersistedMessages(t *testing.T) {
	handlers, store := newTestHandlers(t)
	require.NoError(t, store.EnsureConversation(t.Context(), "conv-1", "alice"))
	require.NoError(t, store.AppendMessage(t.Context(), "m1", "conv-1", "user", "hi"))

	req := httptest.NewRequest(http.MethodGet, "/conversations/conv-1/messages", nil)
	rec := httptest.NewRecorder()
	handlers.handleMessages(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var decoded struct {
		Messages []StoredMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decoded))
	require.Len(t, decoded.Messages, 1)
	assert.Equal(t, "hi", decoded.Messages[0].Content)
}

func TestHandleMessagesRejectsMalformedPath(t *testing.T) {
	handlers, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/conversations/", nil)
	rec := httptest.NewRecorder()
	handlers.handleMessages(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
