package domain

import (
	"image"
	"time"
)

type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Image      image.Image
}

func (f Frame) Empty() bool {
	return f.Image == nil
}
