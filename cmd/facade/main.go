// Command facade runs the façade: the external-facing REST surface that
// accepts queries and persists conversation history, driving an
// in-process Orchestrator (spec.md §1, §8 scenario 1). The orchestrator
// is composed into this same process rather than reached over the
// network, matching the façade's role as thin glue rather than a peer
// A2A agent.
package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"agentmesh/internal/a2aclient"
	"agentmesh/internal/cache"
	"agentmesh/internal/config"
	"agentmesh/internal/facade"
	"agentmesh/internal/logger"
	"agentmesh/internal/orchestrator"
	"agentmesh/internal/progressbus"
)

func main() {
	logger.Init(logger.DefaultConfig())
	log := logger.WithComponent("facade.main")

	cfg := config.Load("facade")
	log.Info("starting facade", "config", cfg.Snapshot())

	driver := getenv("AGENTMESH_DB_DRIVER", "sqlite3")
	dsn := os.Getenv("AGENTMESH_DB_DSN")
	if driver == "postgres" && dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	store, err := facade.Open(driver, dsn)
	if err != nil {
		log.Error("failed to open conversation store", "error", err.Error())
		os.Exit(1)
	}
	defer store.Close()

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

	client := a2aclient.New(a2aclient.Config{
		Timeout:           cfg.Timeout,
		PollTimeout:       5 * time.Minute,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		MaxSockets:        cfg.MaxSockets,
		KeepAlive:         cfg.KeepAlive,
		AgentCardCacheTTL: cfg.AgentCardCacheTTL,
	}, cardCache)
	defer client.Destroy()

	orch := orchestrator.New(registry, client, orchestrator.NewMockLLM(), bus, store)
	handlers := facade.NewHandlers(store, orch)

	mux := http.NewServeMux()
	handlers.Register(mux)
	progressbus.NewStreamHandler(bus).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Info("facade listening", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Error("facade server failed", "error", err.Error())
	}
}

func getenv(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}
