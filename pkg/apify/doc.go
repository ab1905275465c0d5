// Package apify runs the Instagram scraper actor on Apify and returns the
// scraped post records.
//
// A scrape is three calls: start the actor run, poll it with waitForFinish
// until it reaches a terminal status, then download the run's default
// dataset as a JSON array.
//
//	client := apify.NewClientFromConfig(cfg.Apify, cfg.Retry, log)
//	raw, err := client.ScrapePosts(ctx, "natgeo", 10)
//
// Errors are *errors.Error values; a run that ends in any status other than
// SUCCEEDED yields kind actor_failed.
package apify
