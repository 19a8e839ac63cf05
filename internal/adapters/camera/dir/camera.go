package dir

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
	"github.com/jonboulle/clockwork"
)

var supportedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// Camera replays still images from a directory in name order, standing in
// for a device when testing recognition on recorded footage.
type Camera struct {
	files []string
	loop  bool
	clock clockwork.Clock

	mu   sync.Mutex
	next int
	seq  uint64
}

var _ ports.Camera = (*Camera)(nil)

func New(root string, loop bool, clock clockwork.Clock) (*Camera, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read camera directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(root, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("camera directory %s has no images", root)
	}
	sort.Strings(files)

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Camera{files: files, loop: loop, clock: clock}, nil
}

func (c *Camera) ReadImage(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.next >= len(c.files) {
		if !c.loop {
			return domain.Frame{}, fmt.Errorf("replayed %d images: %w", len(c.files), domain.ErrCameraDisconnected)
		}
		c.next = 0
	}

	path := c.files[c.next]
	c.next++

	img, err := decode(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Frame{}, fmt.Errorf("image %s vanished: %w", path, domain.ErrCameraDisconnected)
		}
		return domain.Frame{}, err
	}

	c.seq++
	return domain.Frame{Seq: c.seq, CapturedAt: c.clock.Now(), Image: img}, nil
}

func decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}

	return img, nil
}
