// Package snapshots writes labeled training images and the live preview frame.
package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
	"github.com/google/uuid"
)

const (
	trainingDir = "training"
	jpegQuality = 90
	fileMode    = 0o644
)

type sidecar struct {
	ID         string             `json:"id"`
	Label      string             `json:"label"`
	FrameSeq   uint64             `json:"frame_seq"`
	CapturedAt time.Time          `json:"captured_at"`
	Detections []domain.Detection `json:"detections"`
}

// Store lays snapshots out as <root>/training/<label>/<uuid>.jpg with a
// <uuid>.json sidecar holding the detections.
type Store struct {
	root string
}

var _ ports.SnapshotStore = (*Store)(nil)

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("snapshot directory is empty")
	}
	return &Store{root: root}, nil
}

func (s *Store) Dir(label domain.SnapshotLabel) string {
	return filepath.Join(s.root, trainingDir, string(label))
}

func (s *Store) Save(ctx context.Context, label domain.SnapshotLabel, frame domain.Frame, detections []domain.Detection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if frame.Empty() {
		return fmt.Errorf("save %s snapshot: frame %d has no image", label, frame.Seq)
	}

	dir := s.Dir(label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	id := uuid.NewString()
	img, err := encodeJPEG(frame.Image)
	if err != nil {
		return fmt.Errorf("save %s snapshot: %w", label, err)
	}
	if err := writeAtomic(filepath.Join(dir, id+".jpg"), img); err != nil {
		return fmt.Errorf("save %s snapshot: %w", label, err)
	}

	if detections == nil {
		detections = []domain.Detection{}
	}
	meta, err := json.MarshalIndent(sidecar{
		ID:         id,
		Label:      string(label),
		FrameSeq:   frame.Seq,
		CapturedAt: frame.CapturedAt,
		Detections: detections,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot sidecar: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, id+".json"), append(meta, '\n')); err != nil {
		return fmt.Errorf("save %s snapshot sidecar: %w", label, err)
	}

	return nil
}

// LiveWriter keeps a single preview image current. Readers never see a
// partially written file.
type LiveWriter struct {
	path string
}

var _ ports.LiveFrameWriter = (*LiveWriter)(nil)

// DefaultLivePath is petminion-live.jpg in the system temp directory.
func DefaultLivePath() string {
	return filepath.Join(os.TempDir(), "petminion-live.jpg")
}

func NewLiveWriter(path string) *LiveWriter {
	if path == "" {
		path = DefaultLivePath()
	}
	return &LiveWriter{path: path}
}

func (w *LiveWriter) Path() string {
	return w.path
}

func (w *LiveWriter) Write(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if img == nil {
		return fmt.Errorf("write live frame: nil image")
	}

	data, err := encodeJPEG(img)
	if err != nil {
		return fmt.Errorf("write live frame: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create live frame directory: %w", err)
	}
	if err := writeAtomic(w.path, data); err != nil {
		return fmt.Errorf("write live frame: %w", err)
	}
	return nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
