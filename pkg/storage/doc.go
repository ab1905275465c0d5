// Package storage decides where fetched media and run outputs live on disk.
//
// A Layout is rooted at {root}/{username} and owns three locations:
//
//	{root}/{username}/images/post_{i}[_carousel_{j}]{ext}
//	{root}/{username}/videos/post_{i}[_carousel_{j}]{ext}
//	{root}/{username}/metadata.json and analysis_results.json
//
// Paths are derived only from the post index, carousel index, media kind and
// the URL's extension, so distinct media items never share a path within a
// run. WriteJSON persists run outputs atomically through a temporary file.
package storage
