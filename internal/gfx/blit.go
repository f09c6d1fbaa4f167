package gfx

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// WrapRaw wraps raw 4-byte-per-pixel rows as an image suitable for blitting.
// The byte order of the pixels is preserved as-is; the RGBA container is used
// purely as a strided pixel grid.
func WrapRaw(data []byte, pitch, width, height int) *image.RGBA {
	return &image.RGBA{
		Pix:    data,
		Stride: pitch,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// BlitRegion copies the clip rectangle of src into the top-left corner of
// dst. The clip is intersected with src's bounds first; an empty
// intersection is an error.
func BlitRegion(dst, src *image.RGBA, clip Box) error {
	sr := image.Rect(clip.Left, clip.Top, clip.Right, clip.Bottom).Intersect(src.Rect)
	if sr.Empty() {
		return fmt.Errorf("clip region %+v does not intersect surface %v", clip, src.Rect)
	}
	xdraw.Copy(dst, image.Point{}, src, sr, xdraw.Src, nil)
	return nil
}
