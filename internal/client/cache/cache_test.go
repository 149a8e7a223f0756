package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/credlink/credlink/internal/client/repositories/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

func newTestCache(t *testing.T) (*Resource[record], kv.Repository) {
	t.Helper()
	repo := kv.NewMemoryRepository()
	return New[record]("test", repo, nil, nil), repo
}

func TestGet_CacheHitSkipsFetch(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestCache(t)

	require.NoError(t, repo.Set(ctx, "k", []byte(`{"id":"1","uri":"local"}`)))

	var fetches int32
	got, err := c.Get(ctx, "k", func(ctx context.Context) (*record, error) {
		atomic.AddInt32(&fetches, 1)
		return &record{ID: "remote"}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1", got.ID)
	assert.Zero(t, atomic.LoadInt32(&fetches))
}

func TestGet_MissFetchesAndWritesThrough(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestCache(t)

	got, err := c.Get(ctx, "k", func(ctx context.Context) (*record, error) {
		return &record{ID: "1", URI: "remote"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "remote", got.URI)

	data, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","uri":"remote"}`, string(data))
}

func TestGet_ConcurrentMissesShareOneFetch(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	var fetches int32
	release := make(chan struct{})

	const n = 8
	results := make([]*record, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.Get(ctx, "k", func(ctx context.Context) (*record, error) {
				atomic.AddInt32(&fetches, 1)
				<-release
				return &record{ID: "1"}, nil
			})
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "1", r.ID)
	}
}

func TestGet_CorruptEntryRecovered(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestCache(t)

	require.NoError(t, repo.Set(ctx, "k", []byte(`{{{not json`)))

	got, err := c.Get(ctx, "k", func(ctx context.Context) (*record, error) {
		return &record{ID: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.ID)

	// corrupt bytes replaced by the fetched value
	data, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"fresh","uri":""}`, string(data))
}

func TestGet_AbsentRemote(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestCache(t)

	got, err := c.Get(ctx, "k", func(ctx context.Context) (*record, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, got)

	data, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestPutAndClear(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestCache(t)

	require.NoError(t, c.Put(ctx, "k", &record{ID: "1"}))

	var fetches int32
	got, err := c.Get(ctx, "k", func(ctx context.Context) (*record, error) {
		atomic.AddInt32(&fetches, 1)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.Zero(t, fetches)

	require.NoError(t, c.Clear(ctx, "k"))
	data, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStaleFetchDoesNotOverwritePut(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestCache(t)

	inFetch := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Get(ctx, "k", func(ctx context.Context) (*record, error) {
			close(inFetch)
			<-release
			return &record{ID: "stale"}, nil
		})
	}()

	<-inFetch
	// A mutation lands while the fetch is still in flight.
	require.NoError(t, c.Put(ctx, "k", &record{ID: "newer"}))
	close(release)
	<-done

	data, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"newer","uri":""}`, string(data))
}
