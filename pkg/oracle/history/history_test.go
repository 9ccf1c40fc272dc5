package history

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AppendAndWindow(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Append(ctx, "BTC", decimal.NewFromInt(int64(i))))
	}

	window, err := store.Window(ctx, "BTC", 5)
	require.NoError(t, err)
	require.Len(t, window, 3)

	// Oldest first
	assert.True(t, window[0].Equal(decimal.NewFromInt(1)))
	assert.True(t, window[2].Equal(decimal.NewFromInt(3)))
}

func TestMemoryStore_EvictsOldestBeyondWindow(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		require.NoError(t, store.Append(ctx, "BTC", decimal.NewFromInt(int64(i))))
	}

	window, err := store.Window(ctx, "BTC", 10)
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.True(t, window[0].Equal(decimal.NewFromInt(8)))
	assert.True(t, window[1].Equal(decimal.NewFromInt(9)))
	assert.True(t, window[2].Equal(decimal.NewFromInt(10)))
}

func TestMemoryStore_WindowLimitsToN(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		require.NoError(t, store.Append(ctx, "ETH", decimal.NewFromInt(int64(i))))
	}

	window, err := store.Window(ctx, "ETH", 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.True(t, window[0].Equal(decimal.NewFromInt(5)))
	assert.True(t, window[1].Equal(decimal.NewFromInt(6)))
}

func TestMemoryStore_AssetsIsolated(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "BTC", decimal.NewFromInt(50000)))
	require.NoError(t, store.Append(ctx, "ETH", decimal.NewFromInt(3000)))

	btc, err := store.Window(ctx, "BTC", 5)
	require.NoError(t, err)
	require.Len(t, btc, 1)
	assert.True(t, btc[0].Equal(decimal.NewFromInt(50000)))

	eth, err := store.Window(ctx, "ETH", 5)
	require.NoError(t, err)
	require.Len(t, eth, 1)
	assert.True(t, eth[0].Equal(decimal.NewFromInt(3000)))
}

func TestMemoryStore_UnknownAssetEmptyWindow(t *testing.T) {
	store := NewMemoryStore(5)

	window, err := store.Window(context.Background(), "UNKNOWN", 5)
	require.NoError(t, err)
	assert.Empty(t, window)
}

func TestMemoryStore_ConcurrentAppendsLoseNothing(t *testing.T) {
	const writers = 50
	store := NewMemoryStore(writers)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			price := decimal.RequireFromString("1." + strconv.Itoa(i))
			assert.NoError(t, store.Append(ctx, "USTC", price))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, writers, store.Len("USTC"))
}

func TestMemoryStore_WindowReturnsCopy(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "BTC", decimal.NewFromInt(1)))

	window, err := store.Window(ctx, "BTC", 5)
	require.NoError(t, err)
	window[0] = decimal.NewFromInt(999)

	again, err := store.Window(ctx, "BTC", 5)
	require.NoError(t, err)
	assert.True(t, again[0].Equal(decimal.NewFromInt(1)))
}
