package apify

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the Apify REST API root
	DefaultBaseURL = "https://api.apify.com/v2"

	// DefaultActor is the actor that scrapes Instagram profiles
	DefaultActor = "apify/instagram-scraper"

	// ProfileBaseURL is prefixed to a username to form its profile URL
	ProfileBaseURL = "https://www.instagram.com/"

	// MaxWaitForFinish is the longest the API will hold a run status request open
	MaxWaitForFinish = 60
)

// Run statuses reported by the API
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
)

// IsTerminal reports whether a run status is final
func IsTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusTimedOut:
		return true
	default:
		return false
	}
}

// ProfileURL returns the public profile URL for username
func ProfileURL(username string) string {
	return ProfileBaseURL + url.PathEscape(username) + "/"
}

// actorID converts "owner/name" into the "owner~name" form used in API paths
func actorID(actor string) string {
	return strings.Replace(actor, "/", "~", 1)
}

func runsURL(baseURL, actor string) string {
	return fmt.Sprintf("%s/acts/%s/runs", strings.TrimRight(baseURL, "/"), url.PathEscape(actorID(actor)))
}

func runURL(baseURL, runID string, waitSeconds int) string {
	params := url.Values{}
	params.Set("waitForFinish", fmt.Sprint(waitSeconds))
	return fmt.Sprintf("%s/actor-runs/%s?%s", strings.TrimRight(baseURL, "/"), url.PathEscape(runID), params.Encode())
}

func datasetItemsURL(baseURL, datasetID string) string {
	params := url.Values{}
	params.Set("format", "json")
	return fmt.Sprintf("%s/datasets/%s/items?%s", strings.TrimRight(baseURL, "/"), url.PathEscape(datasetID), params.Encode())
}
