package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ChatMessage is one turn of the LLM conversation; Role is "system",
// "user", "assistant", or "tool".
type ChatMessage struct {
	Role       string
	Content    string
	ToolCallID string // set on Role == "tool"
}

// ToolCall is a single tool invocation the model requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolSpec describes a tool available to the model.
type ToolSpec struct {
	Name        string
	Description string
}

// ChatResult is the opaque LLM capability's response shape, per spec.md
// §1: "an opaque chat(messages, tools) → {content, tool_calls[]}
// capability".
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// LLM is the out-of-scope chat capability (spec.md §1 Non-goals list it as
// an external collaborator). This package depends only on the interface;
// the commands in cmd/ pass NewMockLLM().
type LLM interface {
	Chat(ctx context.Context, messages []ChatMessage, tools []ToolSpec) (ChatResult, error)
}

// ListRepositoriesTool and GetRepositoryDetailsTool are the two tools the
// orchestrator registers on every LLM handle, per spec.md §4.5 step 2.
var (
	ListRepositoriesTool = ToolSpec{
		Name:        "list_repositories",
		Description: "List repositories known to the discovery worker, optionally filtered by organization and/or topic.",
	}
	GetRepositoryDetailsTool = ToolSpec{
		Name:        "get_repository_details",
		Description: "Get analysis details for a single repository by owner and name.",
	}
)

// SystemPrompt biases the model to always call list_repositories for
// generic "what repositories?" queries with empty parameters, per
// spec.md §4.5 step 3.
const SystemPrompt = "When the user asks a general question about what repositories exist or are known, " +
	"always call list_repositories with empty parameters rather than answering from memory."

// mockLLM is a deterministic stand-in for the real chat capability,
// present so internal/orchestrator is runnable and testable without a
// live model (spec.md §1 treats the LLM as an opaque external
// collaborator; this is the collaborator's reference double).
type mockLLM struct{}

// NewMockLLM returns an LLM whose behavior approximates the rules spec.md
// §4.5 describes: it calls list_repositories for generic discovery
// queries, get_repository_details for analysis queries naming an
// owner/repo, and otherwise answers directly.
func NewMockLLM() LLM {
	return mockLLM{}
}

var (
	repoQuestion   = regexp.MustCompile(`(?i)what repositories`)
	orgMention     = regexp.MustCompile(`(?i)\b([\w.-]+)\s+organization\b`)
	analyzeRequest = regexp.MustCompile(`(?i)analyze\s+([\w.-]+)/([\w.-]+)`)
)

func (mockLLM) Chat(_ context.Context, messages []ChatMessage, _ []ToolSpec) (ChatResult, error) {
	var toolResults []ChatMessage
	var userText string
	for _, m := range messages {
		if m.Role == "tool" {
			toolResults = append(toolResults, m)
		}
		if m.Role == "user" {
			userText = m.Content
		}
	}

	if len(toolResults) > 0 {
		return ChatResult{Content: summarize(userText, toolResults)}, nil
	}

	if m := analyzeRequest.FindStringSubmatch(userText); m != nil {
		return ChatResult{ToolCalls: []ToolCall{{
			ID:   "call-1",
			Name: GetRepositoryDetailsTool.Name,
			Arguments: map[string]any{
				"owner": m[1],
				"name":  m[2],
			},
		}}}, nil
	}

	if repoQuestion.MatchString(userText) {
		args := map[string]any{"organization": "", "topic": ""}
		if m := orgMention.FindStringSubmatch(userText); m != nil {
			args["organization"] = m[1]
		}
		return ChatResult{ToolCalls: []ToolCall{{
			ID:        "call-1",
			Name:      ListRepositoriesTool.Name,
			Arguments: args,
		}}}, nil
	}

	return ChatResult{Content: "I don't have information relevant to that question."}, nil
}

func summarize(userText string, toolResults []ChatMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the available data, here is what I found for %q: ", strings.TrimSpace(userText))
	for i, r := range toolResults {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(r.Content)
	}
	return b.String()
}
