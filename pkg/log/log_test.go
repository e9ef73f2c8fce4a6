package log

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewConfigSelectsEncodingAndLevel(t *testing.T) {
	cfg := newConfig("debug", "console", "")
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zap.DebugLevel, cfg.Level.Level())
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)

	cfg = newConfig("nonsense", "json", "")
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, zap.InfoLevel, cfg.Level.Level())
}

func TestNewConfigAddsLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := newConfig("info", "json", dir)
	assert.Equal(t, []string{"stdout", filepath.Join(dir, "app.log")}, cfg.OutputPaths)
}
