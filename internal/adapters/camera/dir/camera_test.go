package dir

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/petminion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, c)
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, img))
	require.NoError(t, file.Close())
}

func TestCameraReplaysInNameOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePNG(t, filepath.Join(root, "b.png"), color.RGBA{G: 255, A: 255})
	writePNG(t, filepath.Join(root, "a.png"), color.RGBA{R: 255, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("skip"), 0o600))

	camera, err := New(root, false, nil)
	require.NoError(t, err)

	first, err := camera.ReadImage(context.Background())
	require.NoError(t, err)
	r, _, _, _ := first.Image.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint64(1), first.Seq)

	second, err := camera.ReadImage(context.Background())
	require.NoError(t, err)
	_, g, _, _ := second.Image.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), g)

	_, err = camera.ReadImage(context.Background())
	require.ErrorIs(t, err, domain.ErrCameraDisconnected)
}

func TestCameraLoops(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePNG(t, filepath.Join(root, "only.png"), color.White)

	camera, err := New(root, true, nil)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		frame, err := camera.ReadImage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), frame.Seq)
	}
}

func TestCameraRejectsEmptyDirectory(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir(), false, nil)
	require.ErrorContains(t, err, "has no images")
}

func TestCameraCorruptImage(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.jpg"), []byte("nope"), 0o600))

	camera, err := New(root, false, nil)
	require.NoError(t, err)

	_, err = camera.ReadImage(context.Background())
	require.ErrorContains(t, err, "decode image broken.jpg")
	assert.NotErrorIs(t, err, domain.ErrCameraDisconnected)
}
