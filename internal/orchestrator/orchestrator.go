// Package orchestrator implements the tool-driven supervision loop: it
// decomposes a query into LLM-selected tool calls, dispatches each as an
// outbound A2A message/send, drives the resulting task to completion via
// the polling loop, and assembles a final answer (spec.md §4.5).
package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"agentmesh/internal/a2a"
	"agentmesh/internal/a2aclient"
	"agentmesh/internal/a2aserver"
	"agentmesh/internal/logger"
	"agentmesh/internal/progressbus"
)

// QueryStatus is a Query's lifecycle state, per spec.md §3.
type QueryStatus string

const (
	QueryPending    QueryStatus = "pending"
	QueryProcessing QueryStatus = "processing"
	QueryCompleted  QueryStatus = "completed"
	QueryFailed     QueryStatus = "failed"
)

// Query is the orchestrator's own unit of work, spanning potentially many
// worker tasks (spec.md §3).
type Query struct {
	QueryID        string
	ConversationID string
	UserID         string
	Text           string
	Status         QueryStatus
	Progress       int
	Result         *QueryResult
	Error          string
}

// QueryResult is the final artifact assembled at the end of a query, per
// spec.md §4.5 step 6.
type QueryResult struct {
	SessionID string        `json:"sessionId"`
	Status    string        `json:"status"`
	Answer    string        `json:"answer"`
	Results   []AgentResult `json:"results"`
}

// AgentResult captures one tool invocation's outcome.
type AgentResult struct {
	AgentType string   `json:"agentType"`
	Data      AgentData `json:"data"`
}

// AgentData holds an agent invocation's answer content and the tool calls
// issued to produce it.
type AgentData struct {
	Answer    string   `json:"answer"`
	ToolCalls []string `json:"toolCalls"`
}

// AnswerPersister durably records a query's final assistant-role answer.
// The orchestrator calls it before publishing EventQueryComplete, so a
// late joiner fetching conversation history right after observing
// query:completed never misses the answer (spec.md §4.6's ordering MUST).
// A nil persister (e.g. cmd/orchestrator run standalone with no
// conversation store) skips persistence entirely.
type AnswerPersister interface {
	PersistAnswer(ctx context.Context, conversationID, answer string) error
}

// Orchestrator drives processQuery sessions (spec.md §4.5).
type Orchestrator struct {
	registry  *WorkerRegistry
	client    *a2aclient.Client
	llm       LLM
	bus       *progressbus.Bus
	persister AnswerPersister

	mu          sync.RWMutex
	queries     map[string]*Query
	checkpoints map[string][]byte

	log *slog.Logger
}

// New builds an Orchestrator. persister may be nil.
func New(registry *WorkerRegistry, client *a2aclient.Client, llm LLM, bus *progressbus.Bus, persister AnswerPersister) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		client:      client,
		llm:         llm,
		bus:         bus,
		persister:   persister,
		queries:     make(map[string]*Query),
		checkpoints: make(map[string][]byte),
		log:         logger.WithComponent("orchestrator"),
	}
}

// persistAnswer writes answer to the durable store, if one is wired, and
// logs a warning on failure without aborting the caller (best-effort per
// spec.md §1 non-goals).
func (o *Orchestrator) persistAnswer(ctx context.Context, q *Query, answer string) {
	if o.persister == nil {
		return
	}
	if err := o.persister.PersistAnswer(ctx, q.ConversationID, answer); err != nil {
		o.log.Warn("failed to persist answer before query:completed", "queryId", q.QueryID, "error", err)
	}
}

// ProcessQuery creates a Query in the pending state and runs the
// orchestration asynchronously, per spec.md §4.5. It returns immediately.
func (o *Orchestrator) ProcessQuery(ctx context.Context, text, userID, conversationID string) *Query {
	q := &Query{
		QueryID:        uuid.New().String(),
		ConversationID: conversationID,
		UserID:         userID,
		Text:           text,
		Status:         QueryPending,
	}
	o.mu.Lock()
	o.queries[q.QueryID] = q
	o.mu.Unlock()

	o.checkpoint(q.QueryID, map[string]any{"status": q.Status, "text": text})

	go o.run(context.WithoutCancel(ctx), q)
	return q
}

// Get returns a query by id.
func (o *Orchestrator) Get(queryID string) (*Query, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	q, ok := o.queries[queryID]
	return q, ok
}

// checkpoint persists an opaque state blob keyed by query id, best-effort
// per spec.md §4.5 step 1: a failure here must not abort the run. The
// in-memory map is the reference implementation; a durable backend can
// replace it without callers changing.
func (o *Orchestrator) checkpoint(queryID string, state map[string]any) {
	blob, err := json.Marshal(state)
	if err != nil {
		o.log.Warn("failed to marshal checkpoint", "queryId", queryID, "error", err)
		return
	}
	o.mu.Lock()
	o.checkpoints[queryID] = blob
	o.mu.Unlock()
}

func (o *Orchestrator) setStatus(q *Query, status QueryStatus, progress int) {
	o.mu.Lock()
	q.Status = status
	q.Progress = progress
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, q *Query) {
	o.setStatus(q, QueryProcessing, 0)
	publish(o.bus, progressbus.EventAgentSpawned, q.ConversationID, q.QueryID, map[string]any{"agentType": "llm"})

	messages := []ChatMessage{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: q.Text},
	}
	tools := []ToolSpec{ListRepositoriesTool, GetRepositoryDetailsTool}

	first, err := o.llm.Chat(ctx, messages, tools)
	if err != nil {
		o.fail(ctx, q, fmt.Errorf("llm turn failed: %w", err))
		return
	}

	var toolCallNames []string
	var answer string

	if len(first.ToolCalls) == 0 {
		answer = first.Content
	} else {
		toolMessages := make([]ChatMessage, 0, len(first.ToolCalls))
		for _, call := range first.ToolCalls {
			toolCallNames = append(toolCallNames, call.Name)
			resultJSON, err := o.dispatchTool(ctx, q, call)
			if err != nil {
				o.fail(ctx, q, fmt.Errorf("tool call %s failed: %w", call.Name, err))
				return
			}
			toolMessages = append(toolMessages, ChatMessage{Role: "tool", ToolCallID: call.ID, Content: resultJSON})
		}

		second, err := o.llm.Chat(ctx, append(append(messages, ChatMessage{Role: "assistant", Content: ""}), toolMessages...), tools)
		if err != nil {
			o.fail(ctx, q, fmt.Errorf("llm second turn failed: %w", err))
			return
		}
		answer = second.Content
	}

	result := &QueryResult{
		SessionID: q.QueryID,
		Status:    string(QueryCompleted),
		Answer:    answer,
		Results: []AgentResult{{
			AgentType: "llm",
			Data:      AgentData{Answer: answer, ToolCalls: toolCallNames},
		}},
	}

	o.persistAnswer(ctx, q, answer)

	o.mu.Lock()
	q.Result = result
	q.Status = QueryCompleted
	q.Progress = 100
	o.mu.Unlock()

	o.checkpoint(q.QueryID, map[string]any{"status": q.Status})

	artifactURI, artifactBody := encodeArtifact(result)
	publish(o.bus, progressbus.EventQueryComplete, q.ConversationID, q.QueryID, map[string]any{
		"status":     "completed",
		"artifactUri": artifactURI,
		"artifact":   artifactBody,
	})
}

// dispatchTool maps a tool call onto an outbound message/send to the
// corresponding worker and drives it to completion via the polling loop
// (spec.md §4.5 steps 2, 5).
func (o *Orchestrator) dispatchTool(ctx context.Context, q *Query, call ToolCall) (string, error) {
	workerType := "discovery"
	if call.Name == GetRepositoryDetailsTool.Name {
		workerType = "analysis"
	}

	baseURL, ok := o.registry.BaseURL(workerType)
	if !ok {
		return "", fmt.Errorf("no worker registered for type %q", workerType)
	}

	argsJSON, err := json.Marshal(call.Arguments)
	if err != nil {
		return "", fmt.Errorf("marshal tool arguments: %w", err)
	}
	commandText := fmt.Sprintf("%s %s", call.Name, string(argsJSON))

	params := a2aserver.SendMessageParams{
		ContextID: q.ConversationID,
		Message: a2a.Message{
			MessageID: uuid.New().String(),
			Role:      a2a.RoleUser,
			ContextID: q.ConversationID,
			Parts:     []a2a.Part{{Type: a2a.PartText, Text: commandText}},
		},
	}

	task, _, err := o.client.SendMessage(ctx, baseURL, params)
	if err != nil {
		return "", fmt.Errorf("dispatch %s: %w", call.Name, err)
	}
	publish(o.bus, progressbus.EventTaskCreated, q.ConversationID, q.QueryID, map[string]any{"taskId": task.ID, "workerType": workerType})

	artifacts, err := pollUntilTerminal(ctx, o.client, o.bus, baseURL, task.ID, q.ConversationID, q.QueryID)
	if err != nil {
		return "", err
	}
	if len(artifacts) == 0 {
		return "{}", nil
	}
	data, err := artifacts[0].DecodeData()
	if err != nil {
		return "", fmt.Errorf("decode %s result artifact: %w", call.Name, err)
	}
	return string(data), nil
}

func (o *Orchestrator) fail(ctx context.Context, q *Query, err error) {
	o.mu.Lock()
	q.Status = QueryFailed
	q.Error = err.Error()
	o.mu.Unlock()
	o.log.Warn("query failed", "queryId", q.QueryID, "error", err)
	o.persistAnswer(ctx, q, "query failed: "+err.Error())
	publish(o.bus, progressbus.EventError, q.ConversationID, q.QueryID, map[string]any{"error": err.Error()})
	publish(o.bus, progressbus.EventQueryComplete, q.ConversationID, q.QueryID, map[string]any{"status": "failed", "error": err.Error()})
}

// encodeArtifact renders result as a base64 data: URI, per spec.md §4.5
// step 6 and the artifact encoding rule in §6/§9.
func encodeArtifact(result *QueryResult) (string, string) {
	body, err := json.Marshal(result)
	if err != nil {
		return "", ""
	}
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(body), string(body)
}
