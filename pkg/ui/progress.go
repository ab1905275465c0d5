package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"igvision/internal/downloader"
	"igvision/pkg/pipeline"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// stageOrder lists the stages a successful run passes through
var stageOrder = []pipeline.Stage{
	pipeline.StageInit,
	pipeline.StageDirectoriesReady,
	pipeline.StagePostsFetched,
	pipeline.StageMediaDownloaded,
	pipeline.StageImagesAnnotated,
	pipeline.StageSummarized,
}

var stageLabels = map[pipeline.Stage]string{
	pipeline.StageInit:             "STARTING",
	pipeline.StageDirectoriesReady: "PREPARED",
	pipeline.StagePostsFetched:     "SCRAPED",
	pipeline.StageMediaDownloaded:  "DOWNLOADED",
	pipeline.StageImagesAnnotated:  "ANNOTATED",
	pipeline.StageSummarized:       "DONE",
	pipeline.StageErrored:          "FAILED",
}

// StageReporter prints pipeline progress. It implements pipeline.Observer.
type StageReporter struct {
	printer *Printer
	now     func() time.Time

	mu         sync.Mutex
	startTime  time.Time
	stage      pipeline.Stage
	downloaded int
	failed     int
	bytes      int64
}

// NewStageReporter creates a reporter printing through p
func NewStageReporter(p *Printer) *StageReporter {
	return &StageReporter{
		printer:   p,
		now:       time.Now,
		startTime: time.Now(),
	}
}

// OnStage prints the stage with an overall progress bar
func (r *StageReporter) OnStage(stage pipeline.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = stage
	if stage == pipeline.StageInit {
		r.startTime = r.now()
	}

	s := r.printer.Styles()
	label := fmt.Sprintf("[%s]", stageLabels[stage])
	if stage == pipeline.StageErrored {
		fmt.Fprintln(r.printer.Writer(), s.Error.Render(label))
		return
	}
	fmt.Fprintf(r.printer.Writer(), "%s %s\n", s.Stage.Render(label), r.stageBar(stage))
}

// OnDownload prints the outcome of one download
func (r *StageReporter) OnDownload(res downloader.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.printer.Styles()
	name := filepath.Base(res.Job.Dest)
	if !res.Success() {
		r.failed++
		fmt.Fprintf(r.printer.Writer(), "  %s %s: %v\n", s.Warning.Render("[SKIPPED]"), name, res.Err)
		return
	}

	r.downloaded++
	r.bytes += res.Bytes
	fmt.Fprintf(r.printer.Writer(), "  %s %s %s\n",
		s.Success.Render("[EXTRACTED]"),
		name,
		s.Dim.Render(fmt.Sprintf("(%d bytes, %s)", res.Bytes, res.Duration.Round(time.Millisecond))))
}

// Downloaded returns the number of successful downloads seen
func (r *StageReporter) Downloaded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.downloaded
}

// Failed returns the number of failed downloads seen
func (r *StageReporter) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Stage returns the last reported stage
func (r *StageReporter) Stage() pipeline.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// Elapsed returns the time since the run started
func (r *StageReporter) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now().Sub(r.startTime)
}

// DownloadRate returns successful downloads per minute
func (r *StageReporter) DownloadRate() float64 {
	elapsed := r.Elapsed().Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(r.Downloaded()) / elapsed
}

func (r *StageReporter) stageBar(stage pipeline.Stage) string {
	done := 0
	for i, st := range stageOrder {
		if st == stage {
			done = i + 1
			break
		}
	}
	filled := done * barWidth / len(stageOrder)

	s := r.printer.Styles()
	bar := s.Bar.Render(strings.Repeat(ProgressBar, filled)) +
		s.Empty.Render(strings.Repeat(ProgressEmpty, barWidth-filled))
	return fmt.Sprintf("[%s] %d/%d", bar, done, len(stageOrder))
}
