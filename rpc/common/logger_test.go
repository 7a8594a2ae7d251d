package common

import (
	"bytes"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug": logger.DEBUG,
		"INFO":  logger.INFO,
		"":      logger.INFO,
		"warn":  logger.WARNING,
		"error": logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestPackageLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := Output.Out
	Output.SetOutput(&buf)
	t.Cleanup(func() { Output.SetOutput(prev) })

	l := CreateLogger("kvvfs")
	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), "pkg=kvvfs")

	l.SetLevel(logger.ERROR)
	l.Warningf("also hidden")
	assert.NotContains(t, buf.String(), "also hidden")
}
