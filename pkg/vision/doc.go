// Package vision annotates downloaded images with faces, labels and
// safe-search signals.
//
// Annotator drives any Detector over a batch of image paths and always
// returns exactly one Record per path, in input order. GoogleDetector is the
// Cloud Vision implementation; tests substitute their own Detector.
//
//	detector, err := vision.NewGoogleDetector(ctx, cfg.Vision.CredentialsFile)
//	if err != nil {
//	    return err
//	}
//	defer detector.Close()
//
//	records := vision.NewAnnotator(detector, cfg.Vision.Concurrency, log).Annotate(ctx, paths)
package vision
