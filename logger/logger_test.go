package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func TestLogger_IncludesStackAndServiceOnError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test-service")
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(lastLine(buf.String())), &payload))

	assert.Equal(t, "test-service", payload["service"])
	assert.Equal(t, "boom", payload["error"])
	assert.Contains(t, payload, "stack")
	assert.Contains(t, payload, "time")
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	assert.Equal(t, zerolog.DebugLevel, SetLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, SetLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, SetLevel("chatty"))
	assert.Equal(t, zerolog.InfoLevel, SetLevel(""))
}
