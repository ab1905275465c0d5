package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igvision/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.LoggingConfig
		wantErr bool
	}{
		{"text format", &config.LoggingConfig{Level: "info", Format: "text"}, false},
		{"json format", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "verbose", Format: "text"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	log, err := New(&config.LoggingConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	log.InfoWithFields("Run finished", map[string]interface{}{"posts": 3})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Run finished")
	assert.Contains(t, string(data), `"posts":3`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestFieldsAreEmitted(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.WithField("username", "natgeo").
		WithError(errors.New("boom")).
		InfoWithFields("Downloaded", map[string]interface{}{
			"bytes":    int64(42),
			"duration": 1500 * time.Millisecond,
			"video":    true,
		})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "igvision", entry["app"])
	assert.Equal(t, "natgeo", entry["username"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(42), entry["bytes"])
	assert.Equal(t, true, entry["video"])
	assert.Equal(t, "Downloaded", entry["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestChildLoggerDoesNotLeakFields(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, zerolog.InfoLevel)
	_ = parent.WithField("stage", "download")

	parent.Info("plain")
	assert.NotContains(t, buf.String(), "stage")
}

func TestTestLoggerCapture(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("post", 2)

	tl.Info("starting")
	child.WarnWithFields("download failed", map[string]interface{}{"url": "https://cdn/x.jpg"})

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.True(t, tl.HasMessage("warn", "download failed"))
	assert.False(t, tl.HasMessage("error", "download failed"))

	warn := tl.GetMessagesByLevel("warn")[0]
	assert.Equal(t, 2, warn.Fields["post"])
	assert.Equal(t, "https://cdn/x.jpg", warn.Fields["url"])
	assert.Contains(t, tl.String(), "[WARN] download failed")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.WithField("a", 1).WithError(errors.New("x")).Error("nothing")
}
