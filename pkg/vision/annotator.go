package vision

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	errs "igvision/pkg/errors"
	"igvision/pkg/logger"
)

// Detector runs the three image analyses against an annotation service
type Detector interface {
	DetectFaces(ctx context.Context, image []byte) ([]FaceResult, error)
	DetectLabels(ctx context.Context, image []byte) ([]LabelResult, error)
	DetectSafeSearch(ctx context.Context, image []byte) (SafeSearchResult, error)
}

// Annotator produces one Record per stored image
type Annotator struct {
	detector    Detector
	concurrency int
	logger      logger.Logger
}

// NewAnnotator creates an annotator that analyzes up to concurrency images
// at once; values below one mean one image at a time
func NewAnnotator(detector Detector, concurrency int, log logger.Logger) *Annotator {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Annotator{detector: detector, concurrency: concurrency, logger: log}
}

// Annotate analyzes every path and returns records in the same order.
// A failure on one image becomes an error record for that image only.
func (a *Annotator) Annotate(ctx context.Context, paths []string) []Record {
	records := make([]Record, len(paths))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			records[i] = a.annotateOne(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	return records
}

func (a *Annotator) annotateOne(ctx context.Context, path string) Record {
	start := time.Now()

	rec, err := a.analyze(ctx, path)
	if err != nil {
		a.logger.ErrorWithFields("Failed to analyze image", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return Record{ImagePath: path, Error: err.Error()}
	}

	a.logger.InfoWithFields("Analyzed image", map[string]interface{}{
		"path":     path,
		"faces":    len(rec.Faces),
		"labels":   len(rec.Labels),
		"duration": time.Since(start),
	})
	return rec
}

func (a *Annotator) analyze(ctx context.Context, path string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Record{}, errs.Wrap(errs.KindIO, "annotate", err)
	}

	faces, err := a.detector.DetectFaces(ctx, content)
	if err != nil {
		return Record{}, fmt.Errorf("face detection: %w", err)
	}
	labels, err := a.detector.DetectLabels(ctx, content)
	if err != nil {
		return Record{}, fmt.Errorf("label detection: %w", err)
	}
	safe, err := a.detector.DetectSafeSearch(ctx, content)
	if err != nil {
		return Record{}, fmt.Errorf("safe search detection: %w", err)
	}

	return Record{
		ImagePath:  path,
		Faces:      faces,
		Labels:     labels,
		SafeSearch: safe,
	}, nil
}
