// Command orchestrator runs the tool-driven supervision loop: it accepts
// queries (normally routed in-process from the façade, but also exposed
// over HTTP for standalone operation), dispatches A2A message/send calls
// to workers, and fans out lifecycle events over the progress bus
// (spec.md §1, §4.5, §6).
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"agentmesh/internal/a2aclient"
	"agentmesh/internal/cache"
	"agentmesh/internal/config"
	"agentmesh/internal/logger"
	"agentmesh/internal/orchestrator"
	"agentmesh/internal/progressbus"
)

func main() {
	logger.Init(logger.DefaultConfig())
	log := logger.WithComponent("orchestrator.main")

	cfg := config.Load("orchestrator")
	log.Info("starting orchestrator", "config", cfg.Snapshot())

	bus := progressbus.New(nil)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		sink, err := progressbus.NewKafkaSink([]string{brokers}, "agentmesh-progress-events")
		if err != nil {
			log.Warn("kafka sink unavailable, continuing in-memory only", "error", err)
		} else {
			bus = progressbus.New(sink)
			log.Info("kafka progress sink enabled", "brokers", brokers)
		}
	}

	registry := orchestrator.NewWorkerRegistry(map[string]string{
		"discovery":    getenv("DISCOVERY_WORKER_URL", "http://localhost:3002"),
		"analysis":     getenv("ANALYSIS_WORKER_URL", "http://localhost:3003"),
		"relationship": getenv("RELATIONSHIP_WORKER_URL", "http://localhost:3004"),
	})

	var cardCache *cache.AgentCardCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cardCache = cache.NewAgentCardCache(cache.NewRedisCache(addr, os.Getenv("REDIS_PASSWORD"), 0, "agentmesh"), cfg.AgentCardCacheTTL)
		log.Info("redis agent card cache enabled", "addr", addr)
	} else {
		cardCache = cache.NewAgentCardCache(cache.NewMemoryCache(), cfg.AgentCardCacheTTL)
	}

	clientCfg := a2aclient.Config{
		Timeout:           cfg.Timeout,
		PollTimeout:       5 * time.Minute,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		MaxSockets:        cfg.MaxSockets,
		KeepAlive:         cfg.KeepAlive,
		AgentCardCacheTTL: cfg.AgentCardCacheTTL,
	}
	client := a2aclient.New(clientCfg, cardCache)
	defer client.Destroy()

	orch := orchestrator.New(registry, client, orchestrator.NewMockLLM(), bus, nil)

	mux := http.NewServeMux()
	registerHandlers(mux, orch, bus, log.With("component", "orchestrator.http"))

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Info("orchestrator listening", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Error("orchestrator server failed", "error", err.Error())
	}
}

func registerHandlers(mux *http.ServeMux, orch *orchestrator.Orchestrator, bus *progressbus.Bus, log interface {
	Info(string, ...any)
}) {
	progressbus.NewStreamHandler(bus).Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/queries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Text           string `json:"text"`
			UserID         string `json:"userId"`
			ConversationID string `json:"conversationId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		q := orch.ProcessQuery(r.Context(), req.Text, req.UserID, req.ConversationID)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"queryId": q.QueryID, "status": string(q.Status)})
	})

	mux.HandleFunc("/queries/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/queries/"):]
		q, ok := orch.Get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(q)
	})
}

func getenv(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}
