package recording

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	calls atomic.Int64
	fail  bool
}

func (s *stubSource) ScreenshotBytes() ([]byte, error) {
	n := s.calls.Add(1)
	if s.fail {
		return nil, errors.New("capture failed")
	}
	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	// Vary the content slightly so frames are distinct.
	img.Set(int(n)%80, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func TestRecorderProducesGIF(t *testing.T) {
	src := &stubSource{}
	rec := Start(src, Options{Interval: 10 * time.Millisecond, MaxWidth: 40}, zap.NewNop())

	time.Sleep(120 * time.Millisecond)

	out := filepath.Join(t.TempDir(), "session.gif")
	size, err := rec.Stop(out)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.NotEmpty(t, decoded.Image)
	assert.LessOrEqual(t, decoded.Image[0].Bounds().Dx(), 40)
}

func TestRecorderWithNoFramesWritesNothing(t *testing.T) {
	src := &stubSource{fail: true}
	rec := Start(src, Options{Interval: 5 * time.Millisecond}, zap.NewNop())

	time.Sleep(30 * time.Millisecond)

	out := filepath.Join(t.TempDir(), "empty.gif")
	size, err := rec.Stop(out)
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.NoFileExists(t, out)
}

func TestRecorderStopIsIdempotentPerRecorder(t *testing.T) {
	src := &stubSource{}
	rec := Start(src, Options{Interval: 10 * time.Millisecond}, zap.NewNop())
	time.Sleep(35 * time.Millisecond)

	out := filepath.Join(t.TempDir(), "once.gif")
	_, err := rec.Stop(out)
	require.NoError(t, err)

	// No captures happen after Stop returns.
	before := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, src.calls.Load())
}
