package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	queryFn  func(ctx context.Context, soql string, out any) error
	insertFn func(ctx context.Context, object string, fields map[string]any) (string, error)
	updateFn func(ctx context.Context, object, id string, fields map[string]any) error
}

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	if m.queryFn == nil {
		return nil
	}
	return m.queryFn(ctx, soql, out)
}

func (m *mockClient) InsertOne(ctx context.Context, object string, fields map[string]any) (string, error) {
	if m.insertFn == nil {
		return "", nil
	}
	return m.insertFn(ctx, object, fields)
}

func (m *mockClient) UpdateOne(ctx context.Context, object, id string, fields map[string]any) error {
	if m.updateFn == nil {
		return nil
	}
	return m.updateFn(ctx, object, id, fields)
}

func TestFindAccountByWebsite(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, soql string, out any) error {
				assert.Contains(t, soql, "Website LIKE 'acme.com'")
				assert.Contains(t, soql, "LIMIT 1")
				*out.(*[]Account) = []Account{{ID: "001xx", Name: "Acme Corp", Website: "acme.com"}}
				return nil
			},
		}

		acct, err := FindAccountByWebsite(context.Background(), mock, "acme.com")
		require.NoError(t, err)
		require.NotNil(t, acct)
		assert.Equal(t, "001xx", acct.ID)
	})

	t.Run("absent returns nil without error", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, _ string, out any) error {
				*out.(*[]Account) = nil
				return nil
			},
		}

		acct, err := FindAccountByWebsite(context.Background(), mock, "nobody.example")
		require.NoError(t, err)
		assert.Nil(t, acct)
	})

	t.Run("query failure propagates", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, _ string, _ any) error {
				return errors.New("connection refused")
			},
		}

		acct, err := FindAccountByWebsite(context.Background(), mock, "acme.com")
		require.Error(t, err)
		assert.Nil(t, acct)
		assert.Contains(t, err.Error(), "find account by website")
	})

	t.Run("domain with quote is escaped", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, soql string, _ any) error {
				assert.Contains(t, soql, `o\'brien.com`)
				return nil
			},
		}

		_, err := FindAccountByWebsite(context.Background(), mock, "o'brien.com")
		require.NoError(t, err)
	})
}

func TestSoqlEscape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain.com", soqlEscape("plain.com"))
	assert.Equal(t, `it\'s`, soqlEscape("it's"))
	assert.Equal(t, `\'\'`, soqlEscape("''"))
}
