package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igvision/pkg/config"
	errs "igvision/pkg/errors"
	"igvision/pkg/logger"
	"igvision/pkg/retry"
)

const datasetJSON = `[{"displayUrl":"https://cdn/a.jpg"},{"videoUrl":"https://cdn/b.mp4"}]`

// mockApify serves the three endpoints a scrape uses
type mockApify struct {
	t           *testing.T
	pollsBefore int32
	finalStatus string
	polls       int32
	datasetHits int32
	lastInput   ScrapeInput
	datasetCode int
}

func (m *mockApify) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/acts/apify~instagram-scraper/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(m.t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(m.t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(m.t, json.NewDecoder(r.Body).Decode(&m.lastInput))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"run-1","status":"READY","defaultDatasetId":"ds-1"}}`)
	})
	mux.HandleFunc("GET /v2/actor-runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(m.t, r.URL.Query().Get("waitForFinish"))
		n := atomic.AddInt32(&m.polls, 1)
		status := StatusRunning
		if n > m.pollsBefore {
			status = m.finalStatus
		}
		fmt.Fprintf(w, `{"data":{"id":"run-1","status":%q,"statusMessage":"done","defaultDatasetId":"ds-1"}}`, status)
	})
	mux.HandleFunc("GET /v2/datasets/ds-1/items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(m.t, "json", r.URL.Query().Get("format"))
		assert.False(m.t, r.URL.Query().Has("clean"), "dataset items must be returned unfiltered")
		assert.False(m.t, r.URL.Query().Has("skipEmpty"))
		n := atomic.AddInt32(&m.datasetHits, 1)
		if m.datasetCode != 0 && n == 1 {
			w.WriteHeader(m.datasetCode)
			fmt.Fprint(w, `{"error":{"type":"internal","message":"dataset temporarily unavailable"}}`)
			return
		}
		fmt.Fprint(w, datasetJSON)
	})
	return mux
}

func newTestClient(server *httptest.Server, opts ...Option) *Client {
	base := []Option{WithBaseURL(server.URL + "/v2"), WithLogger(logger.NewNopLogger())}
	return NewClient("secret-token", append(base, opts...)...)
}

func TestScrapePostsSuccess(t *testing.T) {
	mock := &mockApify{t: t, pollsBefore: 2, finalStatus: StatusSucceeded}
	server := httptest.NewServer(mock.handler())
	defer server.Close()

	raw, err := newTestClient(server).ScrapePosts(context.Background(), "natgeo", 5)

	require.NoError(t, err)
	assert.JSONEq(t, datasetJSON, string(raw))
	assert.Equal(t, ScrapeInput{
		DirectURLs:   []string{"https://www.instagram.com/natgeo/"},
		ResultsType:  "posts",
		ResultsLimit: 5,
	}, mock.lastInput)
	assert.Equal(t, int32(3), atomic.LoadInt32(&mock.polls))
}

func TestScrapePostsActorFailed(t *testing.T) {
	for _, status := range []string{StatusFailed, StatusAborted, StatusTimedOut} {
		t.Run(status, func(t *testing.T) {
			mock := &mockApify{t: t, finalStatus: status}
			server := httptest.NewServer(mock.handler())
			defer server.Close()

			_, err := newTestClient(server).ScrapePosts(context.Background(), "natgeo", 5)

			require.Error(t, err)
			assert.Equal(t, errs.KindActorFailed, errs.KindOf(err))
			assert.Contains(t, err.Error(), status)
			assert.Zero(t, atomic.LoadInt32(&mock.datasetHits))
		})
	}
}

func TestScrapePostsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"type":"token-not-valid","message":"Authentication token is not valid."}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server).ScrapePosts(context.Background(), "natgeo", 5)

	require.Error(t, err)
	assert.Equal(t, errs.KindAuth, errs.KindOf(err))
	assert.Contains(t, err.Error(), "Authentication token is not valid.")
}

func TestScrapePostsRetriesDatasetFetch(t *testing.T) {
	mock := &mockApify{t: t, finalStatus: StatusSucceeded, datasetCode: http.StatusBadGateway}
	server := httptest.NewServer(mock.handler())
	defer server.Close()

	policy := &retry.Policy{MaxAttempts: 2, Backoff: &retry.ConstantBackoff{Delay: time.Millisecond}}
	raw, err := newTestClient(server, WithRetryPolicy(policy)).ScrapePosts(context.Background(), "natgeo", 5)

	require.NoError(t, err)
	assert.JSONEq(t, datasetJSON, string(raw))
	assert.Equal(t, int32(2), atomic.LoadInt32(&mock.datasetHits))
}

func TestScrapePostsDatasetErrorWithoutRetry(t *testing.T) {
	mock := &mockApify{t: t, finalStatus: StatusSucceeded, datasetCode: http.StatusBadGateway}
	server := httptest.NewServer(mock.handler())
	defer server.Close()

	_, err := newTestClient(server).ScrapePosts(context.Background(), "natgeo", 5)

	require.Error(t, err)
	assert.Equal(t, errs.KindServerError, errs.KindOf(err))
	assert.Contains(t, err.Error(), "dataset temporarily unavailable")
}

func TestDatasetItemsRejectsNonArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer server.Close()

	_, err := newTestClient(server).DatasetItems(context.Background(), "ds-1")
	require.Error(t, err)
	assert.Equal(t, errs.KindParsing, errs.KindOf(err))
}

func TestScrapePostsValidation(t *testing.T) {
	client := NewClient("token")
	ctx := context.Background()

	_, err := client.ScrapePosts(ctx, "", 5)
	assert.Equal(t, errs.KindConfig, errs.KindOf(err))

	_, err = client.ScrapePosts(ctx, "natgeo", 0)
	assert.Equal(t, errs.KindConfig, errs.KindOf(err))

	_, err = NewClient("").ScrapePosts(ctx, "natgeo", 5)
	assert.Equal(t, errs.KindAuth, errs.KindOf(err))
}

func TestScrapePostsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := newTestClient(server).ScrapePosts(context.Background(), "natgeo", 5)
	require.Error(t, err)
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Apify.Token = "tok"
	cfg.Apify.PollInterval = 2 * time.Minute

	c := NewClientFromConfig(cfg.Apify, cfg.Retry, logger.NewNopLogger())
	assert.Equal(t, "tok", c.token)
	assert.Equal(t, "https://api.apify.com/v2", c.baseURL)
	assert.Equal(t, MaxWaitForFinish, c.pollWait)
	assert.Equal(t, 30*time.Second, c.timeout)
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "https://api.apify.com/v2/acts/apify~instagram-scraper/runs", runsURL(DefaultBaseURL+"/", DefaultActor))
	assert.Equal(t, "https://api.apify.com/v2/actor-runs/abc?waitForFinish=60", runURL(DefaultBaseURL, "abc", 60))
	assert.Equal(t, "https://api.apify.com/v2/datasets/ds/items?format=json", datasetItemsURL(DefaultBaseURL, "ds"))
	assert.Equal(t, "https://www.instagram.com/nat.geo/", ProfileURL("nat.geo"))
	assert.True(t, IsTerminal(StatusTimedOut))
	assert.False(t, IsTerminal(StatusRunning))
}
