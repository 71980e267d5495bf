package mugshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	"persondiscovery/internal/config"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// Crop scales frame to the reference frame size, cuts the relative bounding
// box out of it, and scales the result to a size×size square.
func Crop(frame image.Image, box store.BoundingBox, cfg config.Mugshot) (image.Image, error) {
	reference := image.NewRGBA(image.Rect(0, 0, cfg.FrameWidth, cfg.FrameHeight))
	draw.ApproxBiLinear.Scale(reference, reference.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	w, h := float64(cfg.FrameWidth), float64(cfg.FrameHeight)
	region := image.Rect(
		int(box.X*w), int(box.Y*h),
		int((box.X+box.W)*w), int((box.Y+box.H)*h),
	).Intersect(reference.Bounds())
	if region.Empty() {
		return nil, services.Wrap(services.ErrValidation, "mugshot", "crop",
			fmt.Sprintf("bounding box %+v is outside the frame", box), nil)
	}

	out := image.NewRGBA(image.Rect(0, 0, cfg.Size, cfg.Size))
	draw.CatmullRom.Scale(out, out.Bounds(), reference, region, draw.Src, nil)
	return out, nil
}

// Strip places crops side by side, left to right.
func Strip(crops []image.Image) image.Image {
	width, height := 0, 0
	for _, c := range crops {
		width += c.Bounds().Dx()
		height = max(height, c.Bounds().Dy())
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	x := 0
	for _, c := range crops {
		b := c.Bounds()
		draw.Draw(out, image.Rect(x, 0, x+b.Dx(), b.Dy()), c, b.Min, draw.Src)
		x += b.Dx()
	}
	return out
}

// EncodePNG returns img as base64-encoded PNG.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", services.Wrap(services.ErrValidation, "mugshot", "encode png", "", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
