package a2aserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"agentmesh/internal/a2a"
)

// envelope is the literal JSON-RPC 2.0 request shape, per spec.md §6.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// response is the literal JSON-RPC 2.0 response shape. Result and Error are
// mutually exclusive, never both set.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// SendMessageParams is the decoded params shape for "message/send".
type SendMessageParams struct {
	Message   a2a.Message `json:"message"`
	TaskID    string      `json:"taskId,omitempty"`
	ContextID string      `json:"contextId,omitempty"`
	Metadata  any         `json:"metadata,omitempty"`
}

type getTaskParams struct {
	TaskID string `json:"taskId"`
}

type cancelTaskParams struct {
	TaskID string `json:"taskId"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleRPC(w http.ResponseWriter, r *http.Request) {
	withCORS(w)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		// Malformed JSON is a protocol-level error surfaced with HTTP 400,
		// distinct from a well-formed-but-invalid envelope (spec.md §4.2).
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "malformed json"})
		return
	}

	if env.JSONRPC != "2.0" || env.Method == "" {
		h.writeError(w, env.ID, a2a.NewProtocolError(a2a.CodeInvalidRequest, "invalid request: missing jsonrpc or method"))
		return
	}

	switch env.Method {
	case "message/send":
		h.dispatchSendMessage(w, r, env)
	case "tasks/get":
		h.dispatchGetTask(w, r, env)
	case "tasks/cancel":
		h.dispatchCancelTask(w, r, env)
	default:
		h.writeError(w, env.ID, a2a.NewProtocolError(a2a.CodeMethodNotFound, "unknown method: "+env.Method))
	}
}

func (h *Handler) dispatchSendMessage(w http.ResponseWriter, r *http.Request, env envelope) {
	var params SendMessageParams
	if err := json.Unmarshal(env.Params, &params); err != nil || len(params.Message.Parts) == 0 {
		h.writeError(w, env.ID, a2a.NewProtocolError(a2a.CodeInvalidParams, "invalid params for message/send"))
		return
	}

	task, messageID, err := h.executor.SendMessage(r.Context(), params)
	if err != nil {
		h.writeDomainError(w, env.ID, err)
		return
	}
	h.writeResult(w, env.ID, map[string]any{"task": task, "messageId": messageID})
}

func (h *Handler) dispatchGetTask(w http.ResponseWriter, r *http.Request, env envelope) {
	var params getTaskParams
	if err := json.Unmarshal(env.Params, &params); err != nil || params.TaskID == "" {
		h.writeError(w, env.ID, a2a.NewProtocolError(a2a.CodeInvalidParams, "invalid params for tasks/get"))
		return
	}

	task, err := h.executor.GetTask(r.Context(), params.TaskID)
	if err != nil {
		h.writeDomainError(w, env.ID, err)
		return
	}
	h.writeResult(w, env.ID, map[string]any{"task": task})
}

func (h *Handler) dispatchCancelTask(w http.ResponseWriter, r *http.Request, env envelope) {
	var params cancelTaskParams
	if err := json.Unmarshal(env.Params, &params); err != nil || params.TaskID == "" {
		h.writeError(w, env.ID, a2a.NewProtocolError(a2a.CodeInvalidParams, "invalid params for tasks/cancel"))
		return
	}

	task, err := h.executor.CancelTask(r.Context(), params.TaskID, params.Reason)
	if err != nil {
		h.writeDomainError(w, env.ID, err)
		return
	}
	h.writeResult(w, env.ID, map[string]any{"task": task})
}

func (h *Handler) writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, id json.RawMessage, err error) {
	var perr *a2a.ProtocolError
	if errors.As(err, &perr) {
		h.writeError(w, id, perr)
		return
	}
	h.writeError(w, id, a2a.ToProtocolError(err))
}

func (h *Handler) writeError(w http.ResponseWriter, id json.RawMessage, perr *a2a.ProtocolError) {
	h.log.Warn("rpc error", "code", perr.Code, "message", perr.Message)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &wireError{Code: perr.Code, Message: perr.Message, Data: perr.Data},
	})
}
