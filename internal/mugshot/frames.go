package mugshot

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"

	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// FrameSource returns the video frame of a medium closest to a timestamp.
type FrameSource interface {
	Frame(ctx context.Context, medium store.Medium, at float64) (image.Image, error)
}

// DirFrames reads frames extracted ahead of time into
// <Root>/<medium url>/<milliseconds>.<png|jpg|webp>.
type DirFrames struct {
	Root string
}

var frameExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// Frame decodes the frame nearest to at.
func (d DirFrames) Frame(ctx context.Context, medium store.Medium, at float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if medium.URL == "" || strings.Contains(medium.URL, "..") {
		return nil, services.Wrap(services.ErrValidation, "mugshot", "frame", fmt.Sprintf("medium %s has no usable url", medium.ID), nil)
	}
	dir := filepath.Join(d.Root, filepath.FromSlash(medium.URL))
	path, err := nearestFrame(dir, int64(math.Round(at*1000)))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "mugshot", "frame", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "mugshot", "decode frame", path, err)
	}
	return img, nil
}

func nearestFrame(dir string, millis int64) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "mugshot", "frame", "no frames for "+dir, err)
	}
	best := ""
	var bestDistance int64 = math.MaxInt64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !frameExtensions[ext] {
			continue
		}
		stamp, err := strconv.ParseInt(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())), 10, 64)
		if err != nil {
			continue
		}
		distance := stamp - millis
		if distance < 0 {
			distance = -distance
		}
		if distance < bestDistance {
			best, bestDistance = entry.Name(), distance
		}
	}
	if best == "" {
		return "", services.Wrap(services.ErrNotFound, "mugshot", "frame", "no frames in "+dir, nil)
	}
	return filepath.Join(dir, best), nil
}
