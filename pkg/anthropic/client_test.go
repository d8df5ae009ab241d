package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient is a testify mock of Client shared by the package tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func (m *MockClient) CreateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BatchResponse), args.Error(1)
}

func (m *MockClient) GetBatch(ctx context.Context, batchID string) (*BatchResponse, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BatchResponse), args.Error(1)
}

func (m *MockClient) GetBatchResults(ctx context.Context, batchID string) (BatchResultIterator, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(BatchResultIterator), args.Error(1)
}

// sliceIterator feeds canned results to CollectBatchResults tests.
type sliceIterator struct {
	items []BatchResultItem
	pos   int
	err   error
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.items) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Item() BatchResultItem { return it.items[it.pos-1] }
func (it *sliceIterator) Err() error            { return it.err }
func (it *sliceIterator) Close() error          { return nil }

func TestMessageParams_RolesAndSystem(t *testing.T) {
	t.Parallel()

	temp := 0.3
	params := messageParams(MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 256,
		System: []SystemBlock{
			{Text: "plain"},
			{Text: "cached", CacheControl: &CacheControl{TTL: "1h"}},
		},
		Messages: []Message{
			{Role: "user", Content: "question"},
			{Role: "assistant", Content: "answer"},
			{Role: "tool", Content: "unknown roles fall back to user"},
		},
		Temperature: &temp,
	})

	assert.Equal(t, sdk.Model("claude-haiku-4-5-20251001"), params.Model)
	assert.Equal(t, int64(256), params.MaxTokens)
	require.Len(t, params.Messages, 3)
	require.Len(t, params.System, 2)
	assert.Equal(t, "plain", params.System[0].Text)
	assert.Equal(t, "cached", params.System[1].Text)
	assert.NotNil(t, params.System[1].CacheControl)
}

func TestMessageParams_NoSystem(t *testing.T) {
	t.Parallel()

	params := messageParams(MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 64,
		Messages:  []Message{{Role: "user", Content: "hi"}},
	})

	assert.Empty(t, params.System)
	require.Len(t, params.Messages, 1)
}

func TestDecodeMessage(t *testing.T) {
	t.Parallel()

	msg := &sdk.Message{
		ID:         "msg_1",
		Model:      "claude-haiku-4-5-20251001",
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "hello"},
		},
		Usage: sdk.Usage{InputTokens: 12, OutputTokens: 7, CacheReadInputTokens: 900},
	}

	out := decodeMessage(msg)
	assert.Equal(t, "msg_1", out.ID)
	assert.Equal(t, "end_turn", out.StopReason)
	require.Len(t, out.Content, 1)
	assert.Equal(t, "hello", out.Content[0].Text)
	assert.Equal(t, int64(900), out.Usage.CacheReadInputTokens)
}

func TestDecodeBatchResult(t *testing.T) {
	t.Parallel()

	t.Run("succeeded carries message", func(t *testing.T) {
		item := decodeBatchResult(sdk.MessageBatchIndividualResponse{
			CustomID: "acme.com",
			Result: sdk.MessageBatchResultUnion{
				Type: "succeeded",
				Message: sdk.Message{
					ID:      "msg_ok",
					Content: []sdk.ContentBlockUnion{{Type: "text", Text: "briefing"}},
				},
			},
		})
		assert.Equal(t, "acme.com", item.CustomID)
		require.NotNil(t, item.Message)
		assert.Equal(t, "msg_ok", item.Message.ID)
	})

	t.Run("errored has no message", func(t *testing.T) {
		item := decodeBatchResult(sdk.MessageBatchIndividualResponse{
			CustomID: "bad.com",
			Result:   sdk.MessageBatchResultUnion{Type: "errored"},
		})
		assert.Equal(t, "errored", item.Type)
		assert.Nil(t, item.Message)
	})
}

func TestEstimateCost(t *testing.T) {
	t.Parallel()

	t.Run("haiku input and output", func(t *testing.T) {
		u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
		assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
	})

	t.Run("cache write premium and read discount", func(t *testing.T) {
		u := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}
		// 0.80*1.25 + 0.80*0.1
		assert.InDelta(t, 1.08, u.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
	})

	t.Run("unknown model costs zero", func(t *testing.T) {
		u := TokenUsage{InputTokens: 5_000_000}
		assert.Zero(t, u.EstimateCost("claude-instant-1"))
	})

	t.Run("zero usage", func(t *testing.T) {
		assert.Zero(t, TokenUsage{}.EstimateCost("claude-haiku-4-5-20251001"))
	})
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	t.Parallel()

	TokenUsage{InputTokens: 10, OutputTokens: 5}.LogCost("claude-haiku-4-5-20251001", "insights")
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, NewClient("test-key"))
}
