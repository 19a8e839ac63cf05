package snapshots

import (
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bnema/petminion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() domain.Frame {
	return domain.Frame{
		Seq:        12,
		CapturedAt: time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
		Image:      image.NewRGBA(image.Rect(0, 0, 16, 16)),
	}
}

func TestStoreSaveWritesImageAndSidecar(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	detections := []domain.Detection{{Name: "cat", Probability: 0.9, Box: &domain.BoundingBox{X1: 1, Y1: 2, X2: 3, Y2: 4}}}
	require.NoError(t, store.Save(context.Background(), domain.SnapshotSuccess, testFrame(), detections))

	entries, err := os.ReadDir(store.Dir(domain.SnapshotSuccess))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var jpgPath, jsonPath string
	for _, entry := range entries {
		path := filepath.Join(store.Dir(domain.SnapshotSuccess), entry.Name())
		switch filepath.Ext(entry.Name()) {
		case ".jpg":
			jpgPath = path
		case ".json":
			jsonPath = path
		}
	}
	require.NotEmpty(t, jpgPath)
	require.NotEmpty(t, jsonPath)
	assert.Equal(t, strings.TrimSuffix(jpgPath, ".jpg"), strings.TrimSuffix(jsonPath, ".json"))

	file, err := os.Open(jpgPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })
	_, err = jpeg.Decode(file)
	require.NoError(t, err)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var meta sidecar
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "success", meta.Label)
	assert.Equal(t, uint64(12), meta.FrameSeq)
	assert.Equal(t, detections, meta.Detections)
	assert.Equal(t, strings.TrimSuffix(filepath.Base(jpgPath), ".jpg"), meta.ID)
}

func TestStoreSaveSeparatesLabels(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), domain.SnapshotFailure, testFrame(), nil))
	require.NoError(t, store.Save(context.Background(), domain.SnapshotCheating, testFrame(), nil))

	for _, label := range []domain.SnapshotLabel{domain.SnapshotFailure, domain.SnapshotCheating} {
		entries, err := os.ReadDir(store.Dir(label))
		require.NoError(t, err)
		assert.Len(t, entries, 2, string(label))
	}
}

func TestStoreSaveRejectsEmptyFrame(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	err = store.Save(context.Background(), domain.SnapshotFailure, domain.Frame{Seq: 4}, nil)
	require.ErrorContains(t, err, "frame 4 has no image")

	_, err = NewStore("")
	require.Error(t, err)
}

func TestLiveWriterReplacesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "live", "petminion-live.jpg")
	writer := NewLiveWriter(path)

	require.NoError(t, writer.Write(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))))
	require.NoError(t, writer.Write(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4))))

	file, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })
	cfg, err := jpeg.DecodeConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLiveWriterDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultLivePath(), NewLiveWriter("").Path())
	require.ErrorContains(t, NewLiveWriter(filepath.Join(t.TempDir(), "x.jpg")).Write(context.Background(), nil), "nil image")
}
