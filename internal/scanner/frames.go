package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

const (
	defaultFPS       = 10
	minFrameInterval = time.Millisecond
)

// FrameGrabber captures still frames from a camera. Grab returns ErrNoCode
// when no new frame is available.
type FrameGrabber interface {
	Grab(ctx context.Context) (image.Image, error)
	Close() error
}

// FrameSource polls a FrameGrabber at the configured rate and decodes the
// centred region of every frame.
type FrameSource struct {
	open func() (FrameGrabber, error)
}

func NewFrameSource(open func() (FrameGrabber, error)) *FrameSource {
	return &FrameSource{open: open}
}

// NewFileFrameSource watches an image file that a capture tool keeps
// overwriting with the latest camera frame.
func NewFileFrameSource(path string) *FrameSource {
	return NewFrameSource(func() (FrameGrabber, error) {
		return OpenFileGrabber(path)
	})
}

func (f *FrameSource) Open(ctx context.Context, cfg Config) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grabber, err := f.open()
	if err != nil {
		return nil, err
	}

	fps := cfg.FPS
	if fps <= 0 {
		fps = defaultFPS
	}

	interval := time.Second / time.Duration(fps)
	if interval < minFrameInterval {
		interval = minFrameInterval
	}

	return &frameReader{
		grabber: grabber,
		qrBox:   cfg.QRBox,
		ticker:  time.NewTicker(interval),
		closed:  make(chan struct{}),
	}, nil
}

type frameReader struct {
	grabber FrameGrabber
	qrBox   int
	ticker  *time.Ticker
	closed  chan struct{}
	once    sync.Once
}

func (r *frameReader) Read(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.closed:
		return "", os.ErrClosed
	case <-r.ticker.C:
	}

	frame, err := r.grabber.Grab(ctx)
	if err != nil {
		return "", err
	}
	return DecodeFrame(frame, r.qrBox)
}

func (r *frameReader) Close() error {
	var err error
	r.once.Do(func() {
		r.ticker.Stop()
		close(r.closed)
		err = r.grabber.Close()
	})
	return err
}

// DecodeFrame looks for a QR code inside the centred qrBox square of img.
// Anything that does not decode yields ErrNoCode.
func DecodeFrame(img image.Image, qrBox int) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(cropCenter(img, qrBox))
	if err != nil {
		return "", ErrNoCode
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", ErrNoCode
	}
	return result.GetText(), nil
}

func cropCenter(img image.Image, box int) image.Image {
	bounds := img.Bounds()
	side := min(box, bounds.Dx(), bounds.Dy())
	if box <= 0 || (side == bounds.Dx() && side == bounds.Dy()) {
		return img
	}

	x := bounds.Min.X + (bounds.Dx()-side)/2
	y := bounds.Min.Y + (bounds.Dy()-side)/2

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(x, y), draw.Src)
	return dst
}

// FileGrabber reads the latest frame from an image file on disk.
type FileGrabber struct {
	path    string
	lastMod time.Time
	lastLen int64
}

func OpenFileGrabber(path string) (*FileGrabber, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame file: %w", err)
	}
	f.Close()
	return &FileGrabber{path: path}, nil
}

func (g *FileGrabber) Grab(ctx context.Context) (image.Image, error) {
	info, err := os.Stat(g.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// capture tools often replace the file by rename
			return nil, ErrNoCode
		}
		return nil, err
	}
	if info.ModTime().Equal(g.lastMod) && info.Size() == g.lastLen {
		return nil, ErrNoCode
	}

	f, err := os.Open(g.path)
	if err != nil {
		return nil, ErrNoCode
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		// half written frame, retry on the next tick
		return nil, ErrNoCode
	}
	g.lastMod, g.lastLen = info.ModTime(), info.Size()
	return img, nil
}

func (g *FileGrabber) Close() error { return nil }
