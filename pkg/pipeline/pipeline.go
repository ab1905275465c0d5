package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"igvision/internal/downloader"
	"igvision/pkg/logger"
	"igvision/pkg/post"
	"igvision/pkg/storage"
	"igvision/pkg/vision"
)

// DefaultOutputRoot is where runs are written when no root is configured
const DefaultOutputRoot = "instagram_downloads"

// Scraper returns the raw JSON array of an account's most recent posts
type Scraper interface {
	ScrapePosts(ctx context.Context, username string, limit int) ([]byte, error)
}

// MediaDownloader fetches every job and returns results in job order
type MediaDownloader interface {
	Run(ctx context.Context, jobs []downloader.Job) []downloader.Result
}

// ImageAnnotator returns one record per image path in input order
type ImageAnnotator interface {
	Annotate(ctx context.Context, paths []string) []vision.Record
}

// Observer is notified as a run progresses
type Observer interface {
	OnStage(stage Stage)
	OnDownload(result downloader.Result)
}

// Options are the collaborators of a Pipeline
type Options struct {
	Scraper    Scraper
	Downloader MediaDownloader
	Annotator  ImageAnnotator
	OutputRoot string
	Logger     logger.Logger
	Observer   Observer
}

// Pipeline scrapes one account, downloads its media and annotates its images
type Pipeline struct {
	scraper    Scraper
	downloader MediaDownloader
	annotator  ImageAnnotator
	outputRoot string
	logger     logger.Logger
	observer   Observer
	stage      atomic.Int32
}

// New creates a Pipeline
func New(opts Options) (*Pipeline, error) {
	var errs []error
	if opts.Scraper == nil {
		errs = append(errs, errors.New("scraper is required"))
	}
	if opts.Downloader == nil {
		errs = append(errs, errors.New("downloader is required"))
	}
	if opts.Annotator == nil {
		errs = append(errs, errors.New("annotator is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid pipeline options: %w", err)
	}

	root := opts.OutputRoot
	if root == "" {
		root = DefaultOutputRoot
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Pipeline{
		scraper:    opts.Scraper,
		downloader: opts.Downloader,
		annotator:  opts.Annotator,
		outputRoot: root,
		logger:     log,
		observer:   opts.Observer,
	}, nil
}

// Stage returns the last stage the pipeline reached
func (p *Pipeline) Stage() Stage {
	return Stage(p.stage.Load())
}

func (p *Pipeline) enter(stage Stage) {
	p.stage.Store(int32(stage))
	if p.observer != nil {
		p.observer.OnStage(stage)
	}
}

func (p *Pipeline) fail(log logger.Logger, msg string, err error) Summary {
	log.WithError(err).Error(msg)
	p.enter(StageErrored)
	return errorResult(err)
}

// Run processes up to postLimit posts of username. It never returns an
// error; unrecoverable failures produce a Summary with status "error".
func (p *Pipeline) Run(ctx context.Context, username string, postLimit int) Summary {
	start := time.Now()
	log := p.logger.WithField("username", username)
	p.enter(StageInit)

	if postLimit <= 0 {
		return p.fail(log, "Invalid post limit", fmt.Errorf("post limit must be positive, got %d", postLimit))
	}

	layout, err := storage.NewLayout(p.outputRoot, username)
	if err != nil {
		return p.fail(log, "Failed to create download directories", err)
	}
	p.enter(StageDirectoriesReady)

	log.InfoWithFields("Scraping posts", map[string]interface{}{"limit": postLimit})
	raw, err := p.scraper.ScrapePosts(ctx, username, postLimit)
	if err != nil {
		return p.fail(log, "Failed to scrape posts", err)
	}
	records, err := post.SplitRecords(raw)
	if err != nil {
		return p.fail(log, "Failed to read scraped posts", err)
	}
	p.enter(StagePostsFetched)

	if err := storage.WriteJSON(layout.MetadataPath(), records); err != nil {
		return p.fail(log, "Failed to save metadata", err)
	}
	log.InfoWithFields("Metadata saved", map[string]interface{}{
		"path":  layout.MetadataPath(),
		"posts": len(records),
	})

	summary := Summary{
		Status:         StatusSuccess,
		BaseDirectory:  layout.BaseDir(),
		PostsProcessed: len(records),
		MetadataPath:   layout.MetadataPath(),
		AnalysisPath:   layout.AnalysisPath(),
	}

	var jobs []downloader.Job
	for i, rec := range records {
		index := i + 1
		d, err := post.Decode(rec)
		if err != nil {
			summary.PostsFailed++
			log.WithError(err).WithField("post", index).Error("Skipping post")
			continue
		}
		for item := range post.Items(index, d) {
			jobs = append(jobs, downloader.Job{Item: item, Dest: layout.Plan(item)})
		}
	}

	results := p.downloader.Run(ctx, jobs)
	var images []string
	for _, res := range results {
		if p.observer != nil {
			p.observer.OnDownload(res)
		}
		if !res.Success() {
			summary.DownloadsFailed++
			continue
		}
		switch res.Job.Item.Kind {
		case post.KindImage:
			summary.ImagesDownloaded++
			images = append(images, res.Job.Dest)
		case post.KindVideo:
			summary.VideosDownloaded++
		}
	}
	p.enter(StageMediaDownloaded)
	log.InfoWithFields("Media downloaded", map[string]interface{}{
		"images": summary.ImagesDownloaded,
		"videos": summary.VideosDownloaded,
		"failed": summary.DownloadsFailed,
	})

	if err := ctx.Err(); err != nil {
		return p.fail(log, "Run cancelled", fmt.Errorf("run cancelled: %w", err))
	}

	analysis := p.annotator.Annotate(ctx, images)
	if analysis == nil {
		analysis = []vision.Record{}
	}
	if err := ctx.Err(); err != nil {
		return p.fail(log, "Run cancelled", fmt.Errorf("run cancelled: %w", err))
	}
	p.enter(StageImagesAnnotated)

	if err := storage.WriteJSON(layout.AnalysisPath(), analysis); err != nil {
		return p.fail(log, "Failed to save analysis results", err)
	}
	summary.ImagesAnalyzed = len(analysis)
	p.enter(StageSummarized)

	log.InfoWithFields("Run completed", map[string]interface{}{
		"posts":           summary.PostsProcessed,
		"images_analyzed": summary.ImagesAnalyzed,
		"duration":        time.Since(start),
	})
	return summary
}
