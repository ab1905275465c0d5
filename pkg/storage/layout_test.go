package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igvision/pkg/post"
)

func TestNewLayoutCreatesTree(t *testing.T) {
	root := t.TempDir()

	layout, err := NewLayout(root, "natgeo")
	require.NoError(t, err)

	for _, dir := range []string{layout.BaseDir(), layout.ImagesDir(), layout.VideosDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, filepath.Join(root, "natgeo", "metadata.json"), layout.MetadataPath())
	assert.Equal(t, filepath.Join(root, "natgeo", "analysis_results.json"), layout.AnalysisPath())

	// idempotent
	assert.NoError(t, layout.EnsureDirs())
	_, err = NewLayout(root, "natgeo")
	assert.NoError(t, err)
}

func TestNewLayoutRejectsBadUsernames(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := NewLayout(root, name)
		assert.Error(t, err, name)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/p/abc.JPG?sig=1", ".jpg"},
		{"https://cdn.example.com/v/clip.mp4", ".mp4"},
		{"https://cdn.example.com/p/photo.webp#frag", ".webp"},
		{"https://cdn.example.com/p/noext", ".jpg"},
		{"https://cdn.example.com/", ".jpg"},
		{"https://cdn.example.com/p/.hidden", ".jpg"},
		{"https://cdn.example.com/p/trailing.", ".jpg"},
		{"://bad url", ".jpg"},
		{"", ".jpg"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Extension(tt.url), tt.url)
	}
}

func TestPlan(t *testing.T) {
	root := t.TempDir()
	layout, err := NewLayout(root, "user")
	require.NoError(t, err)
	base := filepath.Join(root, "user")

	tests := []struct {
		item post.MediaItem
		want string
	}{
		{post.MediaItem{SourceURL: "a.jpg", Kind: post.KindImage, PostIndex: 1}, "images/post_1.jpg"},
		{post.MediaItem{SourceURL: "b.mp4", Kind: post.KindVideo, PostIndex: 2}, "videos/post_2.mp4"},
		{post.MediaItem{SourceURL: "c.jpg", Kind: post.KindImage, PostIndex: 2, CarouselIndex: 1}, "images/post_2_carousel_1.jpg"},
		{post.MediaItem{SourceURL: "d.mp4", Kind: post.KindVideo, PostIndex: 2, CarouselIndex: 2}, "videos/post_2_carousel_2.mp4"},
	}

	for _, tt := range tests {
		assert.Equal(t, filepath.Join(base, filepath.FromSlash(tt.want)), layout.Plan(tt.item))
	}
}

func TestPlanIsInjective(t *testing.T) {
	layout, err := NewLayout(t.TempDir(), "user")
	require.NoError(t, err)

	seen := map[string]post.MediaItem{}
	for p := 1; p <= 12; p++ {
		for c := 0; c <= 12; c++ {
			for _, kind := range []post.Kind{post.KindImage, post.KindVideo} {
				item := post.MediaItem{SourceURL: "https://cdn/x", Kind: kind, PostIndex: p, CarouselIndex: c}
				path := layout.Plan(item)
				if prev, dup := seen[path]; dup {
					t.Fatalf("%+v and %+v both map to %s", prev, item, path)
				}
				seen[path] = item
			}
		}
	}
}

func TestWriteJSON(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.json")

	payload := []map[string]interface{}{{"image_path": "images/post_1.jpg", "labels": []string{"dog & cat"}}}
	require.NoError(t, WriteJSON(dest, payload))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"image_path\"")
	assert.Contains(t, string(data), "dog & cat")

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 1)

	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteJSONUnencodable(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.json")
	assert.Error(t, WriteJSON(dest, map[string]interface{}{"ch": make(chan int)}))

	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}
