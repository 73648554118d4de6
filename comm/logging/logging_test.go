package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestInit_WritesRollingFile(t *testing.T) {
	log := GetDefaultLogger()
	file := filepath.Join(t.TempDir(), "sigmatcp.log")
	Init(Config{Level: "debug", Format: "json", File: FileConfig{Filename: file, MaxSizeMB: 1}})
	defer Init(Config{Level: "info"})

	assert.True(t, log.Enabled(DebugLevel))
	log.Debugf("[%-9s] hello %d", "Test", 42)
	_ = log.Sync()

	bts, err := os.ReadFile(file)
	require.NoError(t, err)
	t.Logf("%s", bts)
	assert.Contains(t, string(bts), "hello 42")
}

func TestSetLevel(t *testing.T) {
	log := GetDefaultLogger()
	log.SetLevel(ErrorLevel)
	defer log.SetLevel(InfoLevel)
	assert.False(t, log.Enabled(WarnLevel))
	assert.True(t, log.Enabled(ErrorLevel))
}
