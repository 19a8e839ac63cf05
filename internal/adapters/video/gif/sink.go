// Package gif encodes capture clips as animated GIFs, the format the social
// targets accept for short loops.
package gif

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	stdgif "image/gif"
	"os"
	"sync"
	"time"

	"github.com/bnema/petminion/internal/ports"
)

const (
	defaultFrameDelay = 500 * time.Millisecond
	defaultMaxWidth   = 480
)

var ErrSinkClosed = errors.New("frame sink closed")

type Factory struct {
	// FrameDelay is the playback delay between frames.
	FrameDelay time.Duration
	// MaxWidth downsamples wider frames; 0 keeps the default.
	MaxWidth int
}

var _ ports.FrameSinkFactory = Factory{}

func (f Factory) Create(dir string) (ports.FrameSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture directory: %w", err)
	}
	file, err := os.CreateTemp(dir, "capture-*.gif")
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}

	delay := f.FrameDelay
	if delay <= 0 {
		delay = defaultFrameDelay
	}
	maxWidth := f.MaxWidth
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}

	return &Sink{
		file:     file,
		delay:    int(delay / (10 * time.Millisecond)),
		maxWidth: maxWidth,
	}, nil
}

// Sink buffers paletted frames and writes the whole animation on Close.
type Sink struct {
	file     *os.File
	delay    int
	maxWidth int

	mu     sync.Mutex
	anim   stdgif.GIF
	closed bool
}

var _ ports.FrameSink = (*Sink)(nil)

func (s *Sink) Path() string {
	return s.file.Name()
}

func (s *Sink) AddFrame(img image.Image) error {
	if img == nil {
		return fmt.Errorf("add gif frame: nil image")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	s.anim.Image = append(s.anim.Image, s.quantize(img))
	s.anim.Delay = append(s.anim.Delay, s.delay)
	return nil
}

// Frames reports how many frames have been buffered.
func (s *Sink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.anim.Image)
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var encodeErr error
	if len(s.anim.Image) > 0 {
		encodeErr = stdgif.EncodeAll(s.file, &s.anim)
		if encodeErr != nil {
			encodeErr = fmt.Errorf("encode gif: %w", encodeErr)
		}
	}
	s.anim = stdgif.GIF{}

	if err := s.file.Close(); err != nil {
		return errors.Join(encodeErr, fmt.Errorf("close capture file: %w", err))
	}
	return encodeErr
}

func (s *Sink) quantize(img image.Image) *image.Paletted {
	src := img.Bounds()
	bounds := image.Rect(0, 0, src.Dx(), src.Dy())
	step := 1
	for bounds.Dx()/step > s.maxWidth {
		step++
	}
	if step > 1 {
		bounds = image.Rect(0, 0, src.Dx()/step, src.Dy()/step)
		img = downsample(img, step, bounds)
	}

	out := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(out, bounds, img, img.Bounds().Min)
	return out
}

// downsample keeps every step-th pixel.
func downsample(img image.Image, step int, bounds image.Rectangle) image.Image {
	src := img.Bounds()
	out := image.NewRGBA(bounds)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.Set(x, y, img.At(src.Min.X+x*step, src.Min.Y+y*step))
		}
	}
	return out
}
