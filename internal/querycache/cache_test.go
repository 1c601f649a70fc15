package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(calls *atomic.Int32, value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestGetCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	c := New()
	var calls atomic.Int32
	key := NewKey(AllItemCopies, int64(2))

	v, err := Get(ctx, c, key, counter(&calls, "first"))
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = Get(ctx, c, key, counter(&calls, "second"))
	require.NoError(t, err)
	assert.Equal(t, "first", v)
	assert.Equal(t, int32(1), calls.Load())

	c.Invalidate(AfterCheckout...)

	v, err = Get(ctx, c, key, counter(&calls, "second"))
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvalidateLeavesOtherQueries(t *testing.T) {
	ctx := context.Background()
	c := New()
	var calls atomic.Int32

	_, err := Get(ctx, c, NewKey(Patrons), counter(&calls, "patrons"))
	require.NoError(t, err)
	_, err = Get(ctx, c, NewKey(UnshelvedItemCopies, int64(1)), counter(&calls, "unshelved"))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	c.Invalidate(AfterReshelve...)
	assert.Equal(t, 1, c.Len())

	_, err = Get(ctx, c, NewKey(Patrons), counter(&calls, "patrons"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	c := New()
	key := NewKey(Stats)

	_, err := Get(ctx, c, key, func(context.Context) (int, error) {
		return 0, errors.New("unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	v, err := Get(ctx, c, key, func(context.Context) (int, error) { return 8, nil })
	require.NoError(t, err)
	assert.Equal(t, 8, v)
}

func TestConcurrentMissesShareFetch(t *testing.T) {
	ctx := context.Background()
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "copies", nil
	}

	var wg sync.WaitGroup
	var started sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			v, err := Get(ctx, c, NewKey(ItemCopies, int64(9)), fetch)
			assert.NoError(t, err)
			assert.Equal(t, "copies", v)
		}()
	}
	started.Wait()
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.Equal(t, 1, c.Len())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "transactions", NewKey(Transactions).String())
	assert.Equal(t, "transactions/patron/7", NewKey(Transactions, "patron", 7).String())
}

func TestInvalidateDetachesInFlightFetch(t *testing.T) {
	ctx := context.Background()
	c := New()
	key := NewKey(Stats)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string, 1)
	go func() {
		v, err := Get(ctx, c, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "before-commit", nil
		})
		assert.NoError(t, err)
		done <- v
	}()
	<-started

	c.Invalidate(AfterCheckout...)

	v, err := Get(ctx, c, key, func(context.Context) (string, error) { return "after-commit", nil })
	require.NoError(t, err)
	assert.Equal(t, "after-commit", v)

	close(release)
	assert.Equal(t, "before-commit", <-done)

	v, err = Get(ctx, c, key, func(context.Context) (string, error) { return "unused", nil })
	require.NoError(t, err)
	assert.Equal(t, "after-commit", v)
}
