// Command relationshipworker runs the relationship worker: an A2A agent
// returning a repository's dependency graph. It runs standalone: the
// orchestrator neither fetches its Agent Card nor dispatches work to it.
package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"agentmesh/internal/a2a"
	"agentmesh/internal/a2aserver"
	"agentmesh/internal/config"
	"agentmesh/internal/executor"
	"agentmesh/internal/logger"
	"agentmesh/internal/progressbus"
	"agentmesh/internal/worker"
)

func main() {
	logger.Init(logger.DefaultConfig())
	log := logger.WithComponent("relationshipworker.main")

	cfg := config.Load("relationship-worker")
	log.Info("starting relationship worker", "config", cfg.Snapshot())

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

	manager := a2a.NewManager(a2a.NewMemoryStore())
	exec := executor.New(manager, worker.Relationship{}, bus, "relationship-worker")

	card := a2a.AgentCard{
		ProtocolVersion: a2a.ProtocolVersion,
		Name:            "relationship-worker",
		Description:     "Returns a repository's dependency graph.",
		BaseURL:         cfg.BaseURL,
		Transports:      []a2a.AgentCardTransport{{Type: "http", URL: cfg.BaseURL, Protocol: "json-rpc-2.0"}},
		Capabilities:    a2a.Capabilities{Streaming: false, MultiModal: false},
		InputModes:      []string{"text"},
		OutputModes:     []string{"application/json"},
		Skills: []a2a.Skill{
			{ID: "graph_repository", Name: "Graph repository", Description: "Return the dependency graph fixture for owner/repo.", Tags: []string{"relationship"}},
		},
		Provider: a2a.Provider{Name: "agentmesh"},
	}

	handler := a2aserver.NewHandler(exec, card)
	mux := http.NewServeMux()
	handler.Register(mux)

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Info("relationship worker listening", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Error("relationship worker server failed", "error", err.Error())
	}
}
