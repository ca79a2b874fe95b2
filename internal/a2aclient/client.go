// Package a2aclient implements the outbound A2A Client: JSON-RPC calls to a
// worker's base URL, Agent Card discovery with a TTL cache, retry with
// exponential backoff, and a pooled HTTP transport, per spec.md §4.3.
package a2aclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"agentmesh/internal/a2a"
	"agentmesh/internal/a2aserver"
	"agentmesh/internal/cache"
	"agentmesh/internal/logger"
	"agentmesh/internal/retry"
)

// Config bounds a Client's behavior, sourced from internal/config in
// practice.
type Config struct {
	Timeout           time.Duration
	PollTimeout       time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	MaxSockets        int
	KeepAlive         bool
	AgentCardCacheTTL time.Duration
}

// DefaultConfig matches spec.md §4.3/§6's documented defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		PollTimeout:       5 * time.Minute,
		MaxRetries:        3,
		RetryDelay:        100 * time.Millisecond,
		MaxSockets:        10,
		KeepAlive:         true,
		AgentCardCacheTTL: 5 * time.Minute,
	}
}

// Client is the A2A Client (outbound), per spec.md §4.3.
type Client struct {
	cfg       Config
	http      *http.Client
	cardCache *cache.AgentCardCache
	nextID    atomic.Int64
	log       *slog.Logger
}

// New builds a Client. cardCache may be nil, in which case an in-memory
// cache is constructed with cfg.AgentCardCacheTTL.
func New(cfg Config, cardCache *cache.AgentCardCache) *Client {
	transport := &http.Transport{
		MaxConnsPerHost:     cfg.MaxSockets,
		MaxIdleConnsPerHost: cfg.MaxSockets,
		DisableKeepAlives:   !cfg.KeepAlive,
	}
	if cardCache == nil {
		cardCache = cache.NewAgentCardCache(cache.NewMemoryCache(), cfg.AgentCardCacheTTL)
	}
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cardCache: cardCache,
		log:       logger.WithComponent("a2a.client"),
	}
}

type rpcEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *rpcError) toProtocolError() *a2a.ProtocolError {
	return &a2a.ProtocolError{Code: e.Code, Message: e.Message, Data: e.Data}
}

// call issues one JSON-RPC request with monotonic ids and retry, per
// spec.md §4.3: response id must match the request id or the client
// raises.
func (c *Client) call(ctx context.Context, baseURL, method string, params any, timeout time.Duration, out any) error {
	id := c.nextID.Add(1)
	body, err := json.Marshal(rpcEnvelope{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// callCtx carries this call's timeout, so the client-wide
	// http.Client.Timeout must not cap it.
	httpClient := *c.http
	httpClient.Timeout = 0

	var rpcResp rpcResponse
	err = retry.Do(callCtx, retry.Config{MaxRetries: c.cfg.MaxRetries, BaseDelay: c.cfg.RetryDelay}, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build %s request: %w", method, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return err // network-level; retry.Retryable inspects this
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%s: server error %d: %w", method, resp.StatusCode, retry.ErrTransient)
		}
		rpcResp = rpcResponse{}
		if jerr := json.Unmarshal(raw, &rpcResp); jerr != nil {
			return fmt.Errorf("decode %s response: %w", method, jerr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s call to %s: %w", method, baseURL, err)
	}

	if rpcResp.ID != id {
		return fmt.Errorf("%s call to %s: response id %d does not match request id %d", method, baseURL, rpcResp.ID, id)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error.toProtocolError()
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// SendMessage wraps message/send.
func (c *Client) SendMessage(ctx context.Context, baseURL string, params a2aserver.SendMessageParams) (*a2a.Task, string, error) {
	var result struct {
		Task      *a2a.Task `json:"task"`
		MessageID string    `json:"messageId"`
	}
	if err := c.call(ctx, baseURL, "message/send", params, c.cfg.Timeout, &result); err != nil {
		return nil, "", err
	}
	return result.Task, result.MessageID, nil
}

// GetTask wraps tasks/get. timeout overrides the client's default when
// non-zero, used by the orchestrator's 5-minute polling envelope
// (spec.md §4.3/§5).
func (c *Client) GetTask(ctx context.Context, baseURL, taskID string, timeout time.Duration) (*a2a.Task, error) {
	if timeout == 0 {
		timeout = c.cfg.Timeout
	}
	var result struct {
		Task *a2a.Task `json:"task"`
	}
	if err := c.call(ctx, baseURL, "tasks/get", map[string]string{"taskId": taskID}, timeout, &result); err != nil {
		return nil, err
	}
	return result.Task, nil
}

// CancelTask wraps tasks/cancel.
func (c *Client) CancelTask(ctx context.Context, baseURL, taskID, reason string) (*a2a.Task, error) {
	var result struct {
		Task *a2a.Task `json:"task"`
	}
	params := map[string]string{"taskId": taskID}
	if reason != "" {
		params["reason"] = reason
	}
	if err := c.call(ctx, baseURL, "tasks/cancel", params, c.cfg.Timeout, &result); err != nil {
		return nil, err
	}
	return result.Task, nil
}

// GetAgentCard fetches the Agent Card at baseURL, TTL-cached. forceRefresh
// bypasses the cache and re-populates it (spec.md §4.3/§8: "Agent Card
// cache returns identical bytes within TTL; after TTL it re-fetches").
func (c *Client) GetAgentCard(ctx context.Context, baseURL string, forceRefresh bool) (*a2a.AgentCard, error) {
	if !forceRefresh {
		if cached, err := c.cardCache.Get(ctx, baseURL); err == nil && cached != nil {
			return cached, nil
		}
	}

	url := baseURL + "/.well-known/agent-card.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build agent card request: %w", err)
	}

	var card *a2a.AgentCard
	err = retry.Do(ctx, retry.Config{MaxRetries: c.cfg.MaxRetries, BaseDelay: c.cfg.RetryDelay}, func(ctx context.Context) error {
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch agent card %s: status %d", url, resp.StatusCode)
		}
		var decoded a2a.AgentCard
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("decode agent card %s: %w", url, err)
		}
		card = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if serr := c.cardCache.Set(ctx, baseURL, card, c.cfg.AgentCardCacheTTL); serr != nil {
		c.log.Warn("failed to cache agent card", "baseUrl", baseURL, "error", serr)
	}
	return card, nil
}

// HealthCheck reports whether baseURL's /health endpoint is reachable and
// healthy.
func (c *Client) HealthCheck(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ClearCache evicts every cached Agent Card.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cardCache.Clear(ctx)
}

// Destroy releases the client's pooled connections and cache resources.
func (c *Client) Destroy() error {
	c.http.CloseIdleConnections()
	return c.cardCache.Close()
}
