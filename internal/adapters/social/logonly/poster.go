package logonly

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/bnema/petminion/internal/ports"
)

type Post struct {
	VideoPath string
	Status    string
	Bytes     int64
}

// Poster logs what would have been posted. Used when no social account is
// configured and in simulation.
type Poster struct {
	logger *slog.Logger

	mu    sync.Mutex
	posts []Post
}

var _ ports.SocialPoster = (*Poster)(nil)

func New(logger *slog.Logger) *Poster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poster{logger: logger.With("component", "social")}
}

func (p *Poster) Post(ctx context.Context, videoPath string, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	post := Post{VideoPath: videoPath, Status: status}
	if info, err := os.Stat(videoPath); err == nil {
		post.Bytes = info.Size()
	}

	p.mu.Lock()
	p.posts = append(p.posts, post)
	p.mu.Unlock()

	p.logger.Info("social post skipped", "status", status, "video", videoPath, "bytes", post.Bytes)
	return nil
}

func (p *Poster) Posts() []Post {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Post, len(p.posts))
	copy(out, p.posts)
	return out
}
