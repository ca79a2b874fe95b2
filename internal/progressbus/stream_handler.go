package progressbus

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"agentmesh/internal/logger"
	"agentmesh/internal/streaming"
)

// StreamHandler exposes a Bus over SSE at GET /stream/{conversationId},
// per spec.md §6's progress-stream interface: late joiners get no replay,
// only events published after Join.
type StreamHandler struct {
	bus *Bus
	log *slog.Logger
}

// NewStreamHandler builds a StreamHandler over bus.
func NewStreamHandler(bus *Bus) *StreamHandler {
	return &StreamHandler{bus: bus, log: logger.WithComponent("progressbus.stream")}
}

// Register mounts the handler on mux.
func (h *StreamHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/stream/", h.handleStream)
}

func (h *StreamHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimPrefix(r.URL.Path, "/stream/")
	if conversationID == "" {
		http.Error(w, "conversation id required", http.StatusBadRequest)
		return
	}

	events, leave := h.bus.Join(conversationID)
	defer leave()

	writer, err := streaming.NewWriter(w)
	if err != nil {
		h.log.Warn("client does not support streaming", "error", err)
		http.Error(w, "streaming unsupported", http.StatusBadRequest)
		return
	}
	defer writer.Close()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.log.Warn("failed to marshal event for stream", "error", err)
				continue
			}
			if err := writer.WriteEvent(streaming.Event{Event: string(event.Type), Data: string(payload)}); err != nil {
				h.log.Debug("client disconnected from stream", "conversationId", conversationID)
				return
			}
		}
	}
}
