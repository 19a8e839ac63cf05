package ports

import (
	"context"
	"image"
)

type SocialPoster interface {
	Post(ctx context.Context, videoPath string, status string) error
}

type FrameSink interface {
	Path() string
	AddFrame(img image.Image) error
	Close() error
}

type FrameSinkFactory interface {
	Create(dir string) (FrameSink, error)
}
