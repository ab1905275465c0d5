package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igvision/pkg/config"
	errs "igvision/pkg/errors"
	"igvision/pkg/logger"
)

func testFetcher(maxAttempts int) *Fetcher {
	return NewFetcher(
		config.DownloadConfig{Timeout: 5 * time.Second, UserAgent: "igvision-test"},
		config.RetryConfig{MaxAttempts: maxAttempts, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1},
		logger.NewNopLogger(),
	)
}

func TestFetchWritesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "igvision-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "post_1.jpg")
	n, err := testFetcher(1).Fetch(context.Background(), server.URL+"/a.jpg", dest)

	require.NoError(t, err)
	assert.Equal(t, int64(len("jpeg-bytes")), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFetchOverwritesExistingFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "post_1.jpg")
	require.NoError(t, os.WriteFile(dest, []byte("old content"), 0644))

	_, err := testFetcher(1).Fetch(context.Background(), server.URL, dest)
	require.NoError(t, err)

	data, _ := os.ReadFile(dest)
	assert.Equal(t, "new", string(data))
}

func TestFetchStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   errs.Kind
	}{
		{http.StatusNotFound, errs.KindNotFound},
		{http.StatusForbidden, errs.KindAuth},
		{http.StatusTooManyRequests, errs.KindRateLimit},
		{http.StatusBadGateway, errs.KindServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			dest := filepath.Join(t.TempDir(), "post_1.jpg")
			_, err := testFetcher(1).Fetch(context.Background(), server.URL, dest)

			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
			_, statErr := os.Stat(dest)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := testFetcher(1).Fetch(context.Background(), url, filepath.Join(t.TempDir(), "x.jpg"))
	require.Error(t, err)
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))
}

func TestFetchIOError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "missing-dir", "x.jpg")
	_, err := testFetcher(1).Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.Equal(t, errs.KindIO, errs.KindOf(err))
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "x.jpg")
	_, err := testFetcher(3).Fetch(context.Background(), server.URL, dest)

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testFetcher(1).Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "x.jpg"))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func slowFetcher(timeout time.Duration) *Fetcher {
	return NewFetcher(
		config.DownloadConfig{Timeout: timeout},
		config.RetryConfig{MaxAttempts: 1},
		logger.NewNopLogger(),
	)
}

func TestFetchSlowSteadyStreamOutlastsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 6; i++ {
			w.Write([]byte("chunk"))
			flusher.Flush()
			time.Sleep(100 * time.Millisecond)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "post_1.mp4")
	n, err := slowFetcher(300*time.Millisecond).Fetch(context.Background(), server.URL, dest)

	require.NoError(t, err)
	assert.Equal(t, int64(6*len("chunk")), n)
}

func TestFetchStalledStreamTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "post_1.mp4")
	start := time.Now()
	_, err := slowFetcher(200*time.Millisecond).Fetch(context.Background(), server.URL, dest)

	require.Error(t, err)
	assert.ErrorIs(t, err, errIdleTimeout)
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))
	assert.Less(t, time.Since(start), 3*time.Second)

	_, statErr := os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

type countingLimiter struct {
	waits int32
}

func (l *countingLimiter) Allow() bool { return true }

func (l *countingLimiter) Wait(ctx context.Context) error {
	atomic.AddInt32(&l.waits, 1)
	return ctx.Err()
}

func TestFetchPacesEveryAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	f := testFetcher(3)
	f.limiter = limiter

	_, err := f.Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "x.jpg"))

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&limiter.waits))
}
