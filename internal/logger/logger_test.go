package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	log, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNewDebugOverridesLevel(t *testing.T) {
	log, err := New(Config{Level: "error", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "shouty"})
	assert.Error(t, err)
}

func TestNewDefaultsToInfo(t *testing.T) {
	log, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
