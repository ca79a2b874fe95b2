// Package config loads process-wide startup configuration from the
// environment, following the conventions of each A2A agent process
// (orchestrator, façade, and the discovery/analysis/relationship workers).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AgentConfig is the startup configuration for a single A2A agent process.
// Field names track spec.md §6 exactly.
type AgentConfig struct {
	// Port is the TCP port the agent's HTTP transport listens on.
	Port int
	// BaseURL is the externally reachable base URL advertised in the Agent
	// Card and used by peers to reach this agent.
	BaseURL string
	// EnableLogging toggles verbose request/response logging.
	EnableLogging bool
	// Timeout is the default per-RPC timeout for outbound calls.
	Timeout time.Duration
	// MaxRetries bounds the A2A Client's retry attempts.
	MaxRetries int
	// RetryDelay is the initial backoff delay before the first retry.
	RetryDelay time.Duration
	// MaxSockets bounds the number of pooled connections per host.
	MaxSockets int
	// KeepAlive enables HTTP keep-alive on the outbound client.
	KeepAlive bool
	// AgentCardCacheTTL is how long a fetched Agent Card remains valid.
	AgentCardCacheTTL time.Duration
}

// DefaultPorts enumerates the well-known default port for each named agent,
// per spec.md §6.
var DefaultPorts = map[string]int{
	"facade":              3000,
	"orchestrator":        3001,
	"discovery-worker":    3002,
	"analysis-worker":     3003,
	"relationship-worker": 3004,
}

// Load reads AgentConfig for the named agent from the environment, applying
// the agent's well-known default port when AGENTMESH_PORT is unset.
func Load(agentName string) AgentConfig {
	port := DefaultPorts[agentName]
	cfg := AgentConfig{
		Port:              getenvInt("AGENTMESH_PORT", port),
		BaseURL:           getenv("AGENTMESH_BASE_URL", defaultBaseURL(port)),
		EnableLogging:     getenv("AGENTMESH_ENABLE_LOGGING", "true") == "true",
		Timeout:           getenvDuration("AGENTMESH_TIMEOUT", 30*time.Second),
		MaxRetries:        getenvInt("AGENTMESH_MAX_RETRIES", 3),
		RetryDelay:        getenvDuration("AGENTMESH_RETRY_DELAY", 100*time.Millisecond),
		MaxSockets:        getenvInt("AGENTMESH_MAX_SOCKETS", 10),
		KeepAlive:         getenv("AGENTMESH_KEEP_ALIVE", "true") == "true",
		AgentCardCacheTTL: getenvDuration("AGENTMESH_AGENT_CARD_CACHE_TTL", 5*time.Minute),
	}
	return cfg
}

// Snapshot renders the configuration as a loggable map, omitting nothing
// sensitive (this configuration carries no secrets).
func (c AgentConfig) Snapshot() map[string]any {
	return map[string]any{
		"port":              c.Port,
		"baseUrl":           c.BaseURL,
		"enableLogging":     c.EnableLogging,
		"timeout":           c.Timeout.String(),
		"maxRetries":        c.MaxRetries,
		"retryDelay":        c.RetryDelay.String(),
		"maxSockets":        c.MaxSockets,
		"keepAlive":         c.KeepAlive,
		"agentCardCacheTtl": c.AgentCardCacheTTL.String(),
	}
}

func defaultBaseURL(port int) string {
	return "http://localhost:" + strconv.Itoa(port)
}

func getenv(k, fallback string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func getenvDuration(k string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
