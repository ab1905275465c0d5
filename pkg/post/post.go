// Package post turns raw post descriptors returned by the scraping service
// into the concrete media items that need to be fetched.
package post

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Kind is the media type of a single item
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// SidecarItem is one element of a carousel
type SidecarItem struct {
	VideoURL   string `json:"videoUrl,omitempty"`
	DisplayURL string `json:"displayUrl,omitempty"`
}

// Descriptor is the subset of a scraped post record the pipeline reads.
// Empty strings mean the field is absent.
type Descriptor struct {
	VideoURL     string        `json:"videoUrl,omitempty"`
	DisplayURL   string        `json:"displayUrl,omitempty"`
	SidecarItems []SidecarItem `json:"sidecarItems,omitempty"`
}

// MediaItem is a resolved unit of download work
type MediaItem struct {
	SourceURL string
	Kind      Kind
	PostIndex int
	// CarouselIndex is 1-based; 0 means top-level media
	CarouselIndex int
}

// IsCarousel reports whether the item came from a sidecar
func (m MediaItem) IsCarousel() bool {
	return m.CarouselIndex > 0
}

// Items lazily yields the media items of a post in download order.
//
// Top-level media is resolved first: a video URL wins over a display URL.
// Sidecar items are then yielded independently of the top-level media, each
// preferring its video URL and skipped when it has neither URL.
func Items(postIndex int, d Descriptor) iter.Seq[MediaItem] {
	return func(yield func(MediaItem) bool) {
		switch {
		case d.VideoURL != "":
			if !yield(MediaItem{SourceURL: d.VideoURL, Kind: KindVideo, PostIndex: postIndex}) {
				return
			}
		case d.DisplayURL != "":
			if !yield(MediaItem{SourceURL: d.DisplayURL, Kind: KindImage, PostIndex: postIndex}) {
				return
			}
		}

		for i, side := range d.SidecarItems {
			item := MediaItem{PostIndex: postIndex, CarouselIndex: i + 1}
			switch {
			case side.VideoURL != "":
				item.SourceURL, item.Kind = side.VideoURL, KindVideo
			case side.DisplayURL != "":
				item.SourceURL, item.Kind = side.DisplayURL, KindImage
			default:
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

// Decompose returns all media items of a post as a slice
func Decompose(postIndex int, d Descriptor) []MediaItem {
	var items []MediaItem
	for item := range Items(postIndex, d) {
		items = append(items, item)
	}
	return items
}

// SplitRecords decodes a JSON array of post records without interpreting
// them, so they can be persisted verbatim and decoded one at a time
func SplitRecords(raw []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode post list: %w", err)
	}
	return records, nil
}

// Decode reads the media fields of a single post record
func Decode(record json.RawMessage) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(record, &d); err != nil {
		return Descriptor{}, fmt.Errorf("failed to decode post record: %w", err)
	}
	return d, nil
}
