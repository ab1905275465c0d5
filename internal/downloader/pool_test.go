package downloader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igvision/pkg/logger"
	"igvision/pkg/post"
)

// mockFetcher records calls and fails URLs containing "fail"
type mockFetcher struct {
	delay   func(url string) time.Duration
	calls   int32
	active  int32
	maxSeen int32
	mu      sync.Mutex
	urls    []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url, dest string) (int64, error) {
	atomic.AddInt32(&m.calls, 1)
	cur := atomic.AddInt32(&m.active, 1)
	defer atomic.AddInt32(&m.active, -1)
	for {
		prev := atomic.LoadInt32(&m.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&m.maxSeen, prev, cur) {
			break
		}
	}

	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()

	if m.delay != nil {
		time.Sleep(m.delay(url))
	}
	if strings.Contains(url, "fail") {
		return 0, fmt.Errorf("simulated network error for %s", url)
	}
	return int64(len(url)), nil
}

func makeJobs(urls ...string) []Job {
	jobs := make([]Job, len(urls))
	for i, u := range urls {
		jobs[i] = Job{
			Item: post.MediaItem{SourceURL: u, Kind: post.KindImage, PostIndex: i + 1},
			Dest: fmt.Sprintf("/tmp/post_%d.jpg", i+1),
		}
	}
	return jobs
}

func TestWorkerPoolSequentialByDefault(t *testing.T) {
	fetcher := &mockFetcher{}
	pool := NewWorkerPool(0, fetcher, logger.NewNopLogger())

	results := pool.Run(context.Background(), makeJobs("a", "b", "c"))

	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, fetcher.urls)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.maxSeen))
	for _, r := range results {
		assert.True(t, r.Success())
	}
}

func TestWorkerPoolFailureDoesNotStopLaterJobs(t *testing.T) {
	fetcher := &mockFetcher{}
	tl := logger.NewTestLogger()
	pool := NewWorkerPool(1, fetcher, tl)

	results := pool.Run(context.Background(), makeJobs("a", "fail-b", "c"))

	require.Len(t, results, 3)
	assert.True(t, results[0].Success())
	assert.False(t, results[1].Success())
	assert.Contains(t, results[1].Err.Error(), "fail-b")
	assert.True(t, results[2].Success())
	assert.Equal(t, int64(1), results[2].Bytes)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fetcher.calls))
	assert.True(t, tl.HasMessage("error", "Failed to download media"))
}

func TestWorkerPoolPreservesOrderUnderConcurrency(t *testing.T) {
	fetcher := &mockFetcher{
		// earlier jobs take longer so they finish last
		delay: func(url string) time.Duration {
			var n int
			fmt.Sscanf(url, "job-%d", &n)
			return time.Duration(10-n) * 5 * time.Millisecond
		},
	}
	pool := NewWorkerPool(4, fetcher, nil)

	var urls []string
	for i := 0; i < 10; i++ {
		urls = append(urls, fmt.Sprintf("job-%d", i))
	}
	results := pool.Run(context.Background(), makeJobs(urls...))

	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, urls[i], r.Job.Item.SourceURL)
		assert.True(t, r.Success())
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.maxSeen), int32(4))
	assert.Greater(t, atomic.LoadInt32(&fetcher.maxSeen), int32(1))
}

func TestWorkerPoolCancelledContext(t *testing.T) {
	fetcher := &mockFetcher{}
	pool := NewWorkerPool(2, fetcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := pool.Run(ctx, makeJobs("a", "b"))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Zero(t, atomic.LoadInt32(&fetcher.calls))
}

func TestWorkerPoolEmpty(t *testing.T) {
	pool := NewWorkerPool(3, &mockFetcher{}, nil)
	assert.Empty(t, pool.Run(context.Background(), nil))
}
