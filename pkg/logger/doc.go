// Package logger provides a structured logging interface backed by zerolog.
//
// Loggers are built from config.LoggingConfig and handed to each component
// explicitly; there is no package-level logger.
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//	log.WithField("username", "natgeo").Info("Run started")
//	log.InfoWithFields("Media downloaded", map[string]interface{}{
//	    "path":  "instagram_downloads/natgeo/images/post_1.jpg",
//	    "bytes": 183422,
//	})
//
// Tests use NewNopLogger to discard output or NewTestLogger to capture and
// assert on messages.
package logger
