// Package retry wraps network operations in a bounded retry loop with
// exponential backoff.
//
// Policies are built from config.RetryConfig. A MaxAttempts of 1, the
// default, runs each operation exactly once:
//
//	policy := retry.FromConfig(cfg.Retry, log)
//	body, err := retry.DoWithResult(ctx, policy, func(ctx context.Context) ([]byte, error) {
//		return client.get(ctx, url)
//	})
//
// Typed errors from igvision/pkg/errors are retried only when their kind is
// transient (network, rate_limit, server_error). Context cancellation is
// never retried and interrupts the wait between attempts.
package retry
