package sim

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
	"github.com/jonboulle/clockwork"
)

const (
	defaultWidth  = 320
	defaultHeight = 240
)

type Config struct {
	Width  int
	Height int
	// MaxFrames ends the stream with domain.ErrCameraDisconnected; 0 streams forever.
	MaxFrames int
}

// Camera synthesizes frames so the whole loop can run without a device.
type Camera struct {
	cfg   Config
	clock clockwork.Clock

	mu  sync.Mutex
	seq uint64
}

var _ ports.Camera = (*Camera)(nil)

func New(cfg Config, clock clockwork.Clock) *Camera {
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Camera{cfg: cfg, clock: clock}
}

func (c *Camera) ReadImage(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxFrames > 0 && c.seq >= uint64(c.cfg.MaxFrames) {
		return domain.Frame{}, fmt.Errorf("simulated camera after %d frames: %w", c.seq, domain.ErrCameraDisconnected)
	}
	c.seq++

	return domain.Frame{
		Seq:        c.seq,
		CapturedAt: c.clock.Now(),
		Image:      c.render(c.seq),
	}, nil
}

// render draws a gradient whose hue drifts with seq so consecutive frames differ.
func (c *Camera) render(seq uint64) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, c.cfg.Width, c.cfg.Height))
	shift := uint8(seq * 7)
	for y := 0; y < c.cfg.Height; y++ {
		for x := 0; x < c.cfg.Width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x*255/c.cfg.Width) + shift,
				G: uint8(y * 255 / c.cfg.Height),
				B: shift,
				A: 255,
			})
		}
	}
	return img
}
