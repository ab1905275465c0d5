package downloader

import (
	"context"
	"sync"
	"time"

	"igvision/pkg/logger"
	"igvision/pkg/post"
)

// Job is one media item paired with its destination path
type Job struct {
	Item post.MediaItem
	Dest string
}

// Result is the outcome of a single job
type Result struct {
	Job      Job
	Bytes    int64
	Err      error
	Duration time.Duration
}

// Success reports whether the job produced a complete file
func (r Result) Success() bool {
	return r.Err == nil
}

// MediaFetcher downloads a URL to a local path
type MediaFetcher interface {
	Fetch(ctx context.Context, url, dest string) (int64, error)
}

// WorkerPool runs download jobs on a fixed number of workers
type WorkerPool struct {
	numWorkers int
	fetcher    MediaFetcher
	logger     logger.Logger
}

// NewWorkerPool creates a new download worker pool. Fewer than one worker
// is treated as one, which downloads strictly in submission order.
func NewWorkerPool(numWorkers int, fetcher MediaFetcher, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &WorkerPool{
		numWorkers: numWorkers,
		fetcher:    fetcher,
		logger:     log,
	}
}

// Run executes all jobs and returns one result per job in submission order.
// A failed job never stops the others. Jobs not started before ctx is done
// report ctx's error.
func (wp *WorkerPool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	workers := wp.numWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": workers,
		"jobs":        len(jobs),
	})

	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range queue {
				results[i] = wp.processJob(ctx, jobs[i], id)
			}
		}(w)
	}
	wg.Wait()

	return results
}

// processJob handles a single download job
func (wp *WorkerPool) processJob(ctx context.Context, job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	n, err := wp.fetcher.Fetch(ctx, job.Item.SourceURL, job.Dest)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		wp.logger.ErrorWithFields("Failed to download media", map[string]interface{}{
			"worker_id": workerID,
			"post":      job.Item.PostIndex,
			"carousel":  job.Item.CarouselIndex,
			"url":       job.Item.SourceURL,
			"error":     err.Error(),
		})
		return result
	}

	result.Bytes = n
	wp.logger.InfoWithFields("Downloaded media", map[string]interface{}{
		"worker_id": workerID,
		"post":      job.Item.PostIndex,
		"carousel":  job.Item.CarouselIndex,
		"kind":      string(job.Item.Kind),
		"path":      job.Dest,
		"bytes":     n,
		"duration":  result.Duration,
	})
	return result
}
