package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"igvision/pkg/post"
)

const (
	imagesDir    = "images"
	videosDir    = "videos"
	metadataFile = "metadata.json"
	analysisFile = "analysis_results.json"

	// DefaultExtension is used when a media URL has no usable extension
	DefaultExtension = ".jpg"
)

// StoredFile is a media item that was fetched to local disk
type StoredFile struct {
	Path string
	Kind post.Kind
}

// Layout maps one account's media items onto the output directory tree
type Layout struct {
	baseDir string
}

// NewLayout creates the directory tree for username under root
func NewLayout(root, username string) (*Layout, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if strings.ContainsAny(username, `/\`) || username == "." || username == ".." {
		return nil, fmt.Errorf("invalid username: %q", username)
	}

	l := &Layout{baseDir: filepath.Join(root, username)}
	if err := l.EnsureDirs(); err != nil {
		return nil, err
	}
	return l, nil
}

// EnsureDirs creates the base, images and videos directories. Safe to call repeatedly.
func (l *Layout) EnsureDirs() error {
	for _, dir := range []string{l.baseDir, l.ImagesDir(), l.VideosDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// BaseDir returns {root}/{username}
func (l *Layout) BaseDir() string { return l.baseDir }

// ImagesDir returns the directory images are written to
func (l *Layout) ImagesDir() string { return filepath.Join(l.baseDir, imagesDir) }

// VideosDir returns the directory videos are written to
func (l *Layout) VideosDir() string { return filepath.Join(l.baseDir, videosDir) }

// MetadataPath returns the path of the raw post list
func (l *Layout) MetadataPath() string { return filepath.Join(l.baseDir, metadataFile) }

// AnalysisPath returns the path of the annotation results
func (l *Layout) AnalysisPath() string { return filepath.Join(l.baseDir, analysisFile) }

// Plan returns the destination path for a media item:
// {images|videos}/post_{i}[_carousel_{j}]{ext}
func (l *Layout) Plan(item post.MediaItem) string {
	dir := l.ImagesDir()
	if item.Kind == post.KindVideo {
		dir = l.VideosDir()
	}

	name := fmt.Sprintf("post_%d", item.PostIndex)
	if item.IsCarousel() {
		name = fmt.Sprintf("post_%d_carousel_%d", item.PostIndex, item.CarouselIndex)
	}
	return filepath.Join(dir, name+Extension(item.SourceURL))
}

// Extension returns the lowercased extension of the URL's path component,
// or DefaultExtension when there is none or the URL cannot be parsed
func Extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultExtension
	}

	base := path.Base(u.Path)
	// dotfiles such as "/.jpg" have no extension
	if strings.LastIndex(base, ".") <= 0 {
		return DefaultExtension
	}
	ext := strings.ToLower(path.Ext(base))
	if ext == "." {
		return DefaultExtension
	}
	return ext
}

// WriteJSON writes v as 2-space indented JSON through a temporary file and rename
func WriteJSON(dest string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(dest), err)
	}

	tempFile := dest + ".tmp"
	if err := os.WriteFile(tempFile, buf.Bytes(), 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
