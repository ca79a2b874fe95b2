package facade

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"agentmesh/internal/logger"
	"agentmesh/internal/orchestrator"
)

// Handlers serves the façade's two HTTP operations, per spec.md §1/§8
// scenario 1: POST /query and GET /conversations/{id}/messages.
type Handlers struct {
	store        *ConversationStore
	orchestrator *orchestrator.Orchestrator
	log          *slog.Logger
}

// NewHandlers builds façade Handlers.
func NewHandlers(store *ConversationStore, orch *orchestrator.Orchestrator) *Handlers {
	return &Handlers{store: store, orchestrator: orch, log: logger.WithComponent("facade")}
}

// Register mounts the façade's routes on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/query", h.handleQuery)
	mux.HandleFunc("/conversations/", h.handleMessages)
}

type queryRequest struct {
	Username       string `json:"username"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

type queryResponse struct {
	QueryID        string `json:"queryId"`
	ConversationID string `json:"conversationId"`
	Status         string `json:"status"`
}

// handleQuery implements POST /query, per spec.md §8 scenario 1: returns
// HTTP 202 immediately and starts orchestration asynchronously.
func (h *Handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "username and message are required")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	if err := h.store.EnsureConversation(r.Context(), conversationID, req.Username); err != nil {
		h.log.Error("failed to ensure conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start query")
		return
	}
	if err := h.store.AppendMessage(r.Context(), uuid.New().String(), conversationID, "user", req.Message); err != nil {
		h.log.Warn("failed to persist user message", "error", err)
	}

	query := h.orchestrator.ProcessQuery(r.Context(), req.Message, req.Username, conversationID)
	if err := h.store.RecordQuery(r.Context(), query.QueryID, conversationID, string(query.Status)); err != nil {
		h.log.Warn("failed to record query", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(queryResponse{
		QueryID:        query.QueryID,
		ConversationID: conversationID,
		Status:         "processing",
	})
}

// handleMessages implements GET /conversations/{id}/messages.
func (h *Handlers) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/conversations/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "messages" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	messages, err := h.store.Messages(r.Context(), parts[0])
	if err != nil {
		h.log.Error("failed to list messages", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"messages": messages})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
