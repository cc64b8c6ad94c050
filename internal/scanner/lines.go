package scanner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

// LineSource reads payloads from a keyboard-wedge or serial scanner that
// writes one decoded code per line.
type LineSource struct {
	open func() (io.ReadCloser, error)
}

// NewDeviceSource reads lines from a device node or file. "-" reads stdin.
func NewDeviceSource(path string) *LineSource {
	return &LineSource{open: func() (io.ReadCloser, error) {
		if path == "-" {
			return io.NopCloser(os.Stdin), nil
		}
		return os.Open(path)
	}}
}

// NewReaderSource reads lines from r. Closing the reader closes r when it
// implements io.Closer.
func NewReaderSource(r io.Reader) *LineSource {
	return &LineSource{open: func() (io.ReadCloser, error) {
		if rc, ok := r.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(r), nil
	}}
}

func (l *LineSource) Open(ctx context.Context, _ Config) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := l.open()
	if err != nil {
		return nil, err
	}
	return &lineReader{rc: rc, lines: bufio.NewScanner(rc)}, nil
}

type lineReader struct {
	rc    io.ReadCloser
	lines *bufio.Scanner
	once  sync.Once
}

func (r *lineReader) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !r.lines.Scan() {
		if err := r.lines.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	line := strings.TrimRight(r.lines.Text(), "\r")
	if line == "" {
		return "", ErrNoCode
	}
	return line, nil
}

func (r *lineReader) Close() error {
	var err error
	r.once.Do(func() { err = r.rc.Close() })
	return err
}

func isEndOfInput(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, context.Canceled)
}
