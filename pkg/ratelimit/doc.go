// Package ratelimit throttles outbound media downloads.
//
// SlidingWindow admits at most N requests in any rolling window; PerMinute
// builds one from the download.requests_per_minute setting and returns
// Unlimited when the setting is zero.
package ratelimit
