package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"igvision/pkg/config"
	errs "igvision/pkg/errors"
	"igvision/pkg/logger"
	"igvision/pkg/retry"
)

// Client talks to the Apify REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	actor      string
	pollWait   int
	timeout    time.Duration
	policy     *retry.Policy
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API root
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithActor overrides the actor to run
func WithActor(actor string) Option {
	return func(c *Client) { c.actor = actor }
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// WithRetryPolicy sets the policy used for idempotent requests
func WithRetryPolicy(p *retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithPollWait sets how long, in seconds, each status request waits for the run to finish
func WithPollWait(seconds int) Option {
	return func(c *Client) { c.pollWait = seconds }
}

// WithTimeout sets the per-request timeout, not counting the poll wait
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a new Apify API client
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		token:      token,
		actor:      DefaultActor,
		pollWait:   MaxWaitForFinish,
		timeout:    30 * time.Second,
		policy:     retry.NoRetry(),
		logger:     logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pollWait < 1 {
		c.pollWait = 1
	}
	if c.pollWait > MaxWaitForFinish {
		c.pollWait = MaxWaitForFinish
	}
	return c
}

// NewClientFromConfig creates a client from the apify and retry configuration
func NewClientFromConfig(cfg config.ApifyConfig, retryCfg config.RetryConfig, log logger.Logger) *Client {
	opts := []Option{
		WithLogger(log),
		WithRetryPolicy(retry.FromConfig(retryCfg, log)),
		WithPollWait(int(cfg.PollInterval / time.Second)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Actor != "" {
		opts = append(opts, WithActor(cfg.Actor))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewClient(cfg.Token, opts...)
}

// ScrapePosts runs the actor for username and returns the raw JSON array of
// post records from the run's dataset
func (c *Client) ScrapePosts(ctx context.Context, username string, limit int) ([]byte, error) {
	if username == "" {
		return nil, errs.New(errs.KindConfig, "apify.scrape", "username is required")
	}
	if limit <= 0 {
		return nil, errs.New(errs.KindConfig, "apify.scrape", "post limit must be positive, got %d", limit)
	}
	if c.token == "" {
		return nil, errs.New(errs.KindAuth, "apify.scrape", "API token is not set")
	}

	run, err := c.StartRun(ctx, ScrapeInput{
		DirectURLs:   []string{ProfileURL(username)},
		ResultsType:  "posts",
		ResultsLimit: limit,
	})
	if err != nil {
		return nil, err
	}

	run, err = c.WaitForRun(ctx, run)
	if err != nil {
		return nil, err
	}
	if run.Status != StatusSucceeded {
		msg := fmt.Sprintf("run %s finished with status %s", run.ID, run.Status)
		if run.StatusMessage != "" {
			msg += ": " + run.StatusMessage
		}
		return nil, errs.New(errs.KindActorFailed, "apify.run", "%s", msg)
	}

	return c.DatasetItems(ctx, run.DefaultDatasetID)
}

// StartRun starts the actor with input and returns the created run.
// Starting is never retried so a flaky connection cannot launch duplicate runs.
func (c *Client) StartRun(ctx context.Context, input ScrapeInput) (*Run, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, errs.Wrap(errs.KindParsing, "apify.start", err)
	}

	c.logger.InfoWithFields("Starting actor run", map[string]interface{}{
		"actor":   c.actor,
		"targets": input.DirectURLs,
		"limit":   input.ResultsLimit,
	})

	body, err := c.do(ctx, http.MethodPost, runsURL(c.baseURL, c.actor), payload, c.timeout, "apify.start")
	if err != nil {
		return nil, err
	}
	return decodeRun(body, "apify.start")
}

// WaitForRun polls the run until it reaches a terminal status
func (c *Client) WaitForRun(ctx context.Context, run *Run) (*Run, error) {
	for !IsTerminal(run.Status) {
		c.logger.DebugWithFields("Waiting for actor run", map[string]interface{}{
			"run_id": run.ID,
			"status": run.Status,
		})

		body, err := retry.DoWithResult(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
			timeout := c.timeout + time.Duration(c.pollWait)*time.Second
			return c.do(ctx, http.MethodGet, runURL(c.baseURL, run.ID, c.pollWait), nil, timeout, "apify.poll")
		})
		if err != nil {
			return nil, err
		}

		next, err := decodeRun(body, "apify.poll")
		if err != nil {
			return nil, err
		}
		if next.DefaultDatasetID == "" {
			next.DefaultDatasetID = run.DefaultDatasetID
		}
		run = next
	}

	c.logger.InfoWithFields("Actor run finished", map[string]interface{}{
		"run_id":     run.ID,
		"status":     run.Status,
		"dataset_id": run.DefaultDatasetID,
	})
	return run, nil
}

// DatasetItems fetches all items of a dataset as a raw JSON array
func (c *Client) DatasetItems(ctx context.Context, datasetID string) ([]byte, error) {
	if datasetID == "" {
		return nil, errs.New(errs.KindParsing, "apify.dataset", "run has no default dataset")
	}

	body, err := retry.DoWithResult(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, datasetItemsURL(c.baseURL, datasetID), nil, c.timeout, "apify.dataset")
	})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' || !json.Valid(trimmed) {
		return nil, errs.New(errs.KindParsing, "apify.dataset", "dataset items are not a JSON array")
	}
	return trimmed, nil
}

// do performs one authenticated request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, url string, payload []byte, timeout time.Duration, op string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnknown, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"op":       op,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errs.Wrap(errs.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, op, fmt.Errorf("failed to read response body: %w", err))
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   method,
		"op":       op,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errs.FromStatus(op, resp.StatusCode)
		var envelope errorEnvelope
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
		return nil, apiErr
	}
	return body, nil
}

func decodeRun(body []byte, op string) (*Run, error) {
	var envelope runEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errs.Wrap(errs.KindParsing, op, fmt.Errorf("failed to parse run: %w", err))
	}
	if envelope.Data.ID == "" {
		return nil, errs.New(errs.KindParsing, op, "response has no run id")
	}
	return &envelope.Data, nil
}
