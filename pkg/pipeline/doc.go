// Package pipeline runs one scrape-download-annotate pass for an account.
//
// A run moves through the stages init, directories_ready, posts_fetched,
// media_downloaded, images_annotated and summarized, or stops in errored
// when the scrape, the post list or an output file cannot be produced.
// Failures of single downloads, single posts or single images are logged
// and counted but never stop the run.
//
// All collaborators are passed to New; the package holds no global state:
//
//	p, err := pipeline.New(pipeline.Options{
//	    Scraper:    apify.NewClientFromConfig(cfg.Apify, cfg.Retry, log),
//	    Downloader: downloader.NewWorkerPool(cfg.Download.Concurrency, fetcher, log),
//	    Annotator:  vision.NewAnnotator(detector, cfg.Vision.Concurrency, log),
//	    OutputRoot: cfg.Output.BaseDirectory,
//	    Logger:     log,
//	})
//	summary := p.Run(ctx, "natgeo", 10)
package pipeline
