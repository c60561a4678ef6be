// Package upload turns untrusted image uploads into bounded, web-optimized
// WebP files with generated names.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // decoder registration
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // decoder registration
	_ "golang.org/x/image/tiff" // decoder registration
	_ "golang.org/x/image/webp" // decoder registration

	"github.com/iliyamo/myway/internal/metrics"
)

var (
	// ErrNoImage means the form part was absent or carried no filename.
	// Callers skip it without logging.
	ErrNoImage = errors.New("no image")
	// ErrDecode means the bytes were not a supported raster image.
	ErrDecode = errors.New("image could not be decoded")
	// ErrTooLarge means the upload exceeded the byte or pixel bounds.
	ErrTooLarge = errors.New("image too large")
)

const (
	maxInputBytes  = 20 << 20
	maxInputPixels = 50_000_000
	fileExt        = ".webp"
)

// Pipeline normalizes uploads.  The zero value is not usable; build one
// with New.
type Pipeline struct {
	Dir        string
	MaxWidth   int
	Quality    int
	Timeout    time.Duration
	Background color.Color // fill behind transparent pixels
	Log        *zap.Logger
}

// New returns a Pipeline writing into dir, creating it if needed.
func New(dir string, maxWidth, quality int, timeout time.Duration, log *zap.Logger) (*Pipeline, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		Dir:        dir,
		MaxWidth:   maxWidth,
		Quality:    quality,
		Timeout:    timeout,
		Background: color.White,
		Log:        log,
	}, nil
}

// Save processes one multipart file and returns the generated filename.
func (p *Pipeline) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", ErrNoImage
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return p.SaveReader(ctx, f)
}

type result struct {
	name string
	err  error
}

// SaveReader processes raw image bytes.  Processing is bounded by Timeout;
// on expiry the caller gets context.DeadlineExceeded and the worker removes
// whatever it had written when it finishes.
func (p *Pipeline) SaveReader(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxInputBytes {
		metrics.ImagesProcessed.WithLabelValues("rejected").Inc()
		return "", ErrTooLarge
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		name, err := p.process(ctx, data)
		done <- result{name, err}
	}()

	select {
	case res := <-done:
		switch {
		case res.err == nil:
			metrics.ImagesProcessed.WithLabelValues("stored").Inc()
		case errors.Is(res.err, context.DeadlineExceeded), errors.Is(res.err, context.Canceled):
			metrics.ImagesProcessed.WithLabelValues("timeout").Inc()
		default:
			metrics.ImagesProcessed.WithLabelValues("rejected").Inc()
		}
		return res.name, res.err
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				p.Remove(res.name)
			}
		}()
		metrics.ImagesProcessed.WithLabelValues("timeout").Inc()
		return "", fmt.Errorf("process image: %w", ctx.Err())
	}
}

func (p *Pipeline) process(ctx context.Context, data []byte) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width*cfg.Height > maxInputPixels {
		return "", ErrTooLarge
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img = p.flatten(img)
	if p.MaxWidth > 0 && img.Bounds().Dx() > p.MaxWidth {
		img = imaging.Resize(img, p.MaxWidth, 0, imaging.Lanczos)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(p.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := webp.Encode(tmp, img, &webp.Options{Quality: float32(p.Quality)}); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("encode webp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + fileExt
	if err := os.Rename(tmpName, filepath.Join(p.Dir, name)); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return name, nil
}

// flatten draws images with an alpha channel or a palette onto an opaque
// background.  The lossy encoder is given plain RGB.
func (p *Pipeline) flatten(img image.Image) image.Image {
	_, paletted := img.(*image.Paletted)
	opaque := false
	if o, ok := img.(interface{ Opaque() bool }); ok {
		opaque = o.Opaque()
	}
	if opaque && !paletted {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), p.Background)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// SaveAll processes files independently.  Names of stored images are
// returned in submission order; failures are returned alongside and never
// stop the remaining files.  Absent parts are skipped silently.
func (p *Pipeline) SaveAll(ctx context.Context, files []*multipart.FileHeader) ([]string, []error) {
	var (
		names []string
		errs  []error
	)
	for i, fh := range files {
		name, err := p.Save(ctx, fh)
		if errors.Is(err, ErrNoImage) {
			continue
		}
		if err != nil {
			filename := ""
			if fh != nil {
				filename = fh.Filename
			}
			p.Log.Warn("upload: image skipped",
				zap.Int("index", i), zap.String("filename", filename), zap.Error(err))
			errs = append(errs, fmt.Errorf("file %d: %w", i, err))
			continue
		}
		names = append(names, name)
	}
	return names, errs
}

// Remove deletes stored images by generated name.  Names containing path
// separators are ignored.
func (p *Pipeline) Remove(names ...string) {
	for _, n := range names {
		if n == "" || filepath.Base(n) != n {
			continue
		}
		if err := os.Remove(filepath.Join(p.Dir, n)); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.Log.Warn("upload: remove failed", zap.String("name", n), zap.Error(err))
		}
	}
}
