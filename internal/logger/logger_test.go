package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Info("APP", "hidden")
	l.Warn("APP", "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "[APP")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("something-else"))
}

func TestFileOutputIsJSON(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir, "debug")
	l.LogTicket("ISSUE", "abc", "issued")
	l.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "qr-ticketing-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()

	var found bool
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry LogEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		if entry.Category == "TICKET" {
			found = true
			assert.Equal(t, "INFO", entry.Level)
			assert.Equal(t, "[ISSUE] abc - issued", entry.Message)
		}
	}
	assert.True(t, found, "ticket entry should be in the log file")
}
