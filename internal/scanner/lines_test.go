package scanner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineSourceSplitsPayloads(t *testing.T) {
	src := NewReaderSource(strings.NewReader("TICKET-1\r\n\nTICKET-2\n  padded  \n"))

	r, err := src.Open(context.Background(), Config{})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()

	p, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TICKET-1", p)

	_, err = r.Read(ctx)
	assert.ErrorIs(t, err, ErrNoCode)

	p, err = r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TICKET-2", p)

	p, err = r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "  padded  ", p, "payloads are delivered verbatim")

	_, err = r.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDeviceSourceMissingDevice(t *testing.T) {
	s := New(NewDeviceSource(filepath.Join(t.TempDir(), "missing")), Config{})

	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrCaptureStart)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeviceSourceEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scans.txt")
	require.NoError(t, os.WriteFile(path, []byte("A\nA\nB\n"), 0o600))

	s := New(NewDeviceSource(path), Config{})
	ch, err := s.Start(context.Background())
	require.NoError(t, err)

	var got []string
	for p := range ch {
		got = append(got, p)
	}
	assert.Equal(t, []string{"A", "A", "B"}, got)
	assert.NoError(t, s.Err())
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(SourceLines, "-", "")
	require.NoError(t, err)
	assert.IsType(t, &LineSource{}, src)

	src, err = NewSource(SourceFrames, "", "frame.jpg")
	require.NoError(t, err)
	assert.IsType(t, &FrameSource{}, src)

	_, err = NewSource("webcam", "", "")
	assert.Error(t, err)
}
