package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase/mocks"
)

type countingDirectory struct {
	*mocks.InMemoryDirectory
	tellerCalls int
}

func (c *countingDirectory) GetTeller(ctx context.Context, id string) (*domain.Teller, error) {
	c.tellerCalls++
	return c.InMemoryDirectory.GetTeller(ctx, id)
}

func newDirectoryFixture(t *testing.T) (*DirectoryCache, *countingDirectory, *Cache) {
	t.Helper()
	client, mr := newTestRedisClient(t)
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	source := &countingDirectory{InMemoryDirectory: mocks.NewInMemoryDirectory()}
	source.PutBranch(&domain.Branch{ID: "BR1", Code: "001", Name: "Main", Active: true})
	source.PutTeller(&domain.Teller{
		ID:       "T-P",
		BranchID: "BR1",
		Name:     "Primary desk",
		Kind:     domain.TellerKindPrimary,
		Ceiling:  decimal.NewFromInt(500000),
		Active:   true,
	})

	cache := NewCache(client, "dir:")
	return NewDirectoryCache(source, cache, time.Minute, zerolog.Nop()), source, cache
}

func TestDirectoryCache_ReadsThrough(t *testing.T) {
	dir, source, _ := newDirectoryFixture(t)
	ctx := context.Background()

	first, err := dir.GetTeller(ctx, "T-P")
	require.NoError(t, err)
	second, err := dir.GetTeller(ctx, "T-P")
	require.NoError(t, err)

	assert.Equal(t, 1, source.tellerCalls)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Ceiling.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, domain.TellerKindPrimary, second.Kind)
}

func TestDirectoryCache_DoesNotCacheMisses(t *testing.T) {
	dir, _, cache := newDirectoryFixture(t)
	ctx := context.Background()

	_, err := dir.GetTeller(ctx, "nobody")
	assert.True(t, errors.Is(err, domain.ErrTellerNotFound))

	_, err = cache.Get(ctx, "teller:nobody")
	assert.Error(t, err)
}

func TestDirectoryCache_IgnoresCorruptEntries(t *testing.T) {
	dir, source, cache := newDirectoryFixture(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "teller:T-P", "{not json", time.Minute))

	teller, err := dir.GetTeller(ctx, "T-P")
	require.NoError(t, err)
	assert.Equal(t, "T-P", teller.ID)
	assert.Equal(t, 1, source.tellerCalls)
}

func TestDirectoryCache_Invalidate(t *testing.T) {
	dir, source, _ := newDirectoryFixture(t)
	ctx := context.Background()

	_, err := dir.GetTeller(ctx, "T-P")
	require.NoError(t, err)
	require.NoError(t, dir.Invalidate(ctx, "teller", "T-P"))
	_, err = dir.GetTeller(ctx, "T-P")
	require.NoError(t, err)

	assert.Equal(t, 2, source.tellerCalls)
}

func TestDirectoryCache_Branch(t *testing.T) {
	dir, _, _ := newDirectoryFixture(t)

	branch, err := dir.GetBranch(context.Background(), "BR1")
	require.NoError(t, err)
	assert.Equal(t, "001", branch.Code)
	assert.True(t, branch.Active)
}
