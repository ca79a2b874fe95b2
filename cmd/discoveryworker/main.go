// Command discoveryworker runs the discovery worker: an A2A agent that
// answers "what repositories" queries against the fixture catalog
// (spec.md §1, §4.2, §4.4).
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
	log := logger.WithComponent("discoveryworker.main")

	cfg := config.Load("discovery-worker")
	log.Info("starting discovery worker", "config", cfg.Snapshot())

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
	exec := executor.New(manager, worker.Discovery{}, bus, "discovery-worker")

	card := a2a.AgentCard{
		ProtocolVersion: a2a.ProtocolVersion,
		Name:            "discovery-worker",
		Description:     "Lists repositories known to the platform, optionally filtered by organization and topic.",
		BaseURL:         cfg.BaseURL,
		Transports:      []a2a.AgentCardTransport{{Type: "http", URL: cfg.BaseURL, Protocol: "json-rpc-2.0"}},
		Capabilities:    a2a.Capabilities{Streaming: false, MultiModal: false},
		InputModes:      []string{"text"},
		OutputModes:     []string{"application/json"},
		Skills: []a2a.Skill{
			{ID: "list_repositories", Name: "List repositories", Description: "Filter the repository catalog by organization and topic.", Tags: []string{"discovery"}},
		},
		Provider: a2a.Provider{Name: "agentmesh"},
	}

	handler := a2aserver.NewHandler(exec, card)
	mux := http.NewServeMux()
	handler.Register(mux)

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Info("discovery worker listening", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Error("discovery worker server failed", "error", err.Error())
	}
}
