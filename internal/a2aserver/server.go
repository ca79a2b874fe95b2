// Package a2aserver implements the A2A Transport: an HTTP endpoint that
// accepts JSON-RPC 2.0 requests at an agent's base URL, plus the Agent
// Card and health auxiliary endpoints (spec.md §4.2).
package a2aserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"agentmesh/internal/a2a"
	"agentmesh/internal/logger"
)

// Executor is the subset of internal/executor.Executor the transport needs:
// one call per supported RPC method.
type Executor interface {
	SendMessage(ctx context.Context, params SendMessageParams) (*a2a.Task, string, error)
	GetTask(ctx context.Context, taskID string) (*a2a.Task, error)
	CancelTask(ctx context.Context, taskID, reason string) (*a2a.Task, error)
}

// Handler adapts an Executor onto the JSON-RPC wire protocol.
type Handler struct {
	executor Executor
	card     a2a.AgentCard
	log      *slog.Logger
}

// NewHandler builds a transport Handler serving card and executing RPCs
// through executor.
func NewHandler(executor Executor, card a2a.AgentCard) *Handler {
	return &Handler{
		executor: executor,
		card:     card,
		log:      logger.WithComponent("a2a.transport"),
	}
}

// Register mounts the transport's routes on mux: the JSON-RPC endpoint at
// "/", the Agent Card at the well-known path, and a health endpoint.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/.well-known/agent-card.json", h.handleAgentCard)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/", h.handleRPC)
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	withCORS(w)
	if r.Method == http.MethodOptions {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.card)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	withCORS(w)
	if r.Method == http.MethodOptions {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"transport": "json-rpc-2.0",
		"methods":   []string{"message/send", "tasks/get", "tasks/cancel"},
	})
}

func withCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
