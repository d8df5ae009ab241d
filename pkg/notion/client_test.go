package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient is a testify mock of Client shared by the package tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	c := NewClient("secret-token")
	require.NotNil(t, c)
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("override", func(t *testing.T) {
		c := &apiClient{}
		WithRateLimit(5)(c)
		require.NotNil(t, c.limiter)
		assert.Equal(t, 5, c.limiter.Burst())
	})

	t.Run("disable", func(t *testing.T) {
		c := &apiClient{limiter: nil}
		WithRateLimit(3)(c)
		WithRateLimit(0)(c)
		assert.Nil(t, c.limiter)
	})
}

func TestThrottle_CancelledContext(t *testing.T) {
	t.Parallel()

	c := &apiClient{}
	WithRateLimit(1)(c)
	require.NoError(t, c.throttle(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.throttle(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
