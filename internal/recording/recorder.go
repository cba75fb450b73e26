package recording

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	_ "image/png"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// FrameSource yields still captures of a live browser window.
type FrameSource interface {
	ScreenshotBytes() ([]byte, error)
}

// Options configures a session recorder
type Options struct {
	Interval time.Duration // time between captures
	MaxWidth uint          // output width; frames are downscaled to this
}

// Recorder captures frames from a browser session in the background and
// encodes them into an animated GIF when stopped. A failed capture drops that
// frame and keeps recording.
type Recorder struct {
	source FrameSource
	opts   Options
	log    *zap.Logger

	mu     sync.Mutex
	frames []image.Image

	stop chan struct{}
	done chan struct{}
}

// Start begins capturing frames until Stop is called.
func Start(source FrameSource, opts Options, log *zap.Logger) *Recorder {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.MaxWidth == 0 {
		opts.MaxWidth = 640
	}
	r := &Recorder{
		source: source,
		opts:   opts,
		log:    log,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Recorder) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.capture()
		}
	}
}

func (r *Recorder) capture() {
	data, err := r.source.ScreenshotBytes()
	if err != nil {
		r.log.Debug("frame capture failed", zap.Error(err))
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		r.log.Debug("frame decode failed", zap.Error(err))
		return
	}
	r.mu.Lock()
	r.frames = append(r.frames, img)
	r.mu.Unlock()
}

// Stop halts capture and writes the collected frames to outputPath. Returns
// the encoded file size. When no frames were captured, nothing is written.
func (r *Recorder) Stop(outputPath string) (int64, error) {
	close(r.stop)
	<-r.done

	r.mu.Lock()
	frames := r.frames
	r.frames = nil
	r.mu.Unlock()

	if len(frames) == 0 {
		return 0, nil
	}
	return encode(frames, outputPath, r.opts)
}

func encode(frames []image.Image, outputPath string, opts Options) (int64, error) {
	// GIF frame delay is in 100ths of a second.
	delay := int(opts.Interval.Milliseconds() / 10)
	if delay < 2 {
		delay = 2
	}

	bounds := frames[0].Bounds()
	outputWidth := opts.MaxWidth
	if uint(bounds.Dx()) < outputWidth {
		outputWidth = uint(bounds.Dx())
	}
	aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
	outputHeight := uint(float64(outputWidth) * aspectRatio)

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0, // infinite loop
	}

	palette := buildPalette(frames[0])

	for i, frame := range frames {
		resized := resize.Resize(outputWidth, outputHeight, frame, resize.Lanczos3)
		paletted := image.NewPaletted(resized.Bounds(), palette)
		draw.FloydSteinberg.Draw(paletted, resized.Bounds(), resized, image.Point{})
		g.Image[i] = paletted
		g.Delay[i] = delay
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create recording: %w", err)
	}
	defer f.Close()

	if err := gif.EncodeAll(f, g); err != nil {
		return 0, fmt.Errorf("encode recording: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// buildPalette derives a 256-color palette from the most frequent colors of a
// reference frame.
func buildPalette(img image.Image) color.Palette {
	bounds := img.Bounds()
	colorMap := make(map[color.RGBA]int)

	// Sample every 4th pixel for speed.
	const step = 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			c := color.RGBA{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(b >> 8),
				A: uint8(a >> 8),
			}
			colorMap[c]++
		}
	}

	type colorCount struct {
		c     color.RGBA
		count int
	}
	colors := make([]colorCount, 0, len(colorMap))
	for c, count := range colorMap {
		colors = append(colors, colorCount{c, count})
	}
	sort.Slice(colors, func(i, j int) bool { return colors[i].count > colors[j].count })

	palette := make(color.Palette, 0, 256)
	palette = append(palette, color.RGBA{0, 0, 0, 0})
	for i := 0; i < len(colors) && len(palette) < 256; i++ {
		palette = append(palette, colors[i].c)
	}
	return palette
}
