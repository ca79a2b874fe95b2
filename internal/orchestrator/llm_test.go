package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLLMCallsListRepositoriesForGenericQuestion(t *testing.T) {
	llm := NewMockLLM()
	result, err := llm.Chat(context.Background(), []ChatMessage{
		{Role: "user", Content: "what repositories do we have?"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, ListRepositoriesTool.Name, result.ToolCalls[0].Name)
}

func TestMockLLMExtractsOrganizationMention(t *testing.T) {
	llm := NewMockLLM()
	result, err := llm.Chat(context.Background(), []ChatMessage{
		{Role: "user", Content: "what repositories does the cortside organization have?"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "cortside", result.ToolCalls[0].Arguments["organization"])
}

func TestMockLLMCallsGetRepositoryDetailsForAnalyzeRequest(t *testing.T) {
	llm := NewMockLLM()
	result, err := llm.Chat(context.Background(), []ChatMessage{
		{Role: "user", Content: "please analyze cortside/cortside.rest for me"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, GetRepositoryDetailsTool.Name, result.ToolCalls[0].Name)
	assert.Equal(t, "cortside", result.ToolCalls[0].Arguments["owner"])
	assert.Equal(t, "cortside.rest", result.ToolCalls[0].Arguments["name"])
}

func TestMockLLMSecondTurnSummarizesToolResults(t *testing.T) {
	llm := NewMockLLM()
	result, err := llm.Chat(context.Background(), []ChatMessage{
		{Role: "user", Content: "what repositories do we have?"},
		{Role: "tool", Content: `[{"name":"cortside.rest"}]`},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Content, "cortside.rest")
}

func TestMockLLMFallsBackWhenUnrecognized(t *testing.T) {
	llm := NewMockLLM()
	result, err := llm.Chat(context.Background(), []ChatMessage{
		{Role: "user", Content: "what's the weather like"},
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.ToolCalls)
	assert.Equal(t, "I don't have information relevant to that question.", result.Content)
}
