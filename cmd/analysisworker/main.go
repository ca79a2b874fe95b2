// Command analysisworker runs the analysis worker: an A2A agent that
// returns repository metadata for a given owner/name (spec.md §1, §4.2,
// §4.4).
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
	log := logger.WithComponent("analysisworker.main")

	cfg := config.Load("analysis-worker")
	log.Info("starting analysis worker", "config", cfg.Snapshot())

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
	exec := executor.New(manager, worker.Analysis{}, bus, "analysis-worker")

	card := a2a.AgentCard{
		ProtocolVersion: a2a.ProtocolVersion,
		Name:            "analysis-worker",
		Description:     "Analyzes a single repository and returns its metadata.",
		BaseURL:         cfg.BaseURL,
		Transports:      []a2a.AgentCardTransport{{Type: "http", URL: cfg.BaseURL, Protocol: "json-rpc-2.0"}},
		Capabilities:    a2a.Capabilities{Streaming: false, MultiModal: false},
		InputModes:      []string{"text"},
		OutputModes:     []string{"application/json"},
		Skills: []a2a.Skill{
			{ID: "get_repository_details", Name: "Analyze repository", Description: "Return language, stars, and description for owner/repo.", Tags: []string{"analysis"}},
		},
		Provider: a2a.Provider{Name: "agentmesh"},
	}

	handler := a2aserver.NewHandler(exec, card)
	mux := http.NewServeMux()
	handler.Register(mux)

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Info("analysis worker listening", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Error("analysis worker server failed", "error", err.Error())
	}
}
