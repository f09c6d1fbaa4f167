// Package x11 implements the gfx collaborator interfaces over an X11
// connection. Window contents are snapshotted through the Composite
// extension when available, so obscured windows still capture correctly.
package x11

import (
	"fmt"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FrameTap/internal/gfx"
	"github.com/bryanchriswhite/FrameTap/internal/logger"
)

// DefaultFrameInterval approximates a 60 Hz compositor cadence.
const DefaultFrameInterval = 16 * time.Millisecond

// Bootstrap creates an X11-backed device/context pair.
type Bootstrap struct {
	// FrameInterval is the cadence of the snapshot loop standing in for
	// compositor frame notifications. Zero means DefaultFrameInterval.
	FrameInterval time.Duration
}

// CreateDevice connects to the X server and initializes the Composite
// extension. Missing Composite degrades to direct drawable capture.
func (b Bootstrap) CreateDevice() (gfx.Device, gfx.Context, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	interval := b.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	dev := &Device{
		conn:     conn,
		screen:   xproto.Setup(conn).DefaultScreen(conn),
		interval: interval,
	}

	log := logger.WithComponent("x11-device")
	if err := composite.Init(conn); err != nil {
		log.Warn().
			Err(err).
			Msg("Composite extension not available - capture of obscured windows may fail")
	} else {
		dev.compositeEnabled = true
		log.Debug().Msg("Composite extension initialized")
	}

	return dev, &Context{}, nil
}

// Device owns the X connection used for snapshots and allocates pools and
// staging buffers.
type Device struct {
	conn             *xgb.Conn
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	interval         time.Duration
}

// CreateFramePool allocates a pool of pending-surface slots at the given
// size. Only BGRA8 is negotiated; X11 ZPixmap data at depth 24/32 is BGRX.
func (d *Device) CreateFramePool(format gfx.PixelFormat, capacity int, size gfx.Size) (gfx.FramePool, error) {
	if format != gfx.FormatBGRA8 {
		return nil, fmt.Errorf("unsupported pixel format %q", format)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("frame pool capacity must be at least 1, got %d", capacity)
	}
	return &framePool{dev: d, format: format, size: size}, nil
}

// AllocStaging allocates a CPU-resident staging buffer.
func (d *Device) AllocStaging(width, height int, format gfx.PixelFormat) (gfx.StagingBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid staging dimensions %dx%d", width, height)
	}
	pitch := width * format.BytesPerPixel()
	return &staging{
		width:  width,
		height: height,
		format: format,
		pitch:  pitch,
		pix:    make([]byte, pitch*height),
	}, nil
}

// Close tears down the X connection.
func (d *Device) Close() error {
	d.conn.Close()
	return nil
}

// snapshot grabs up to size pixels of the target drawable, preferring a
// Composite-named pixmap for window targets. Returns the pixel rows, the
// captured extent, and the drawable's current geometry.
func (d *Device) snapshot(t *Target, size gfx.Size) ([]byte, gfx.Size, gfx.Size, error) {
	geom, err := xproto.GetGeometry(d.conn, t.Drawable).Reply()
	if err != nil {
		return nil, gfx.Size{}, gfx.Size{}, fmt.Errorf("failed to get geometry: %w", err)
	}
	content := gfx.Size{Width: int(geom.Width), Height: int(geom.Height)}

	// The pool's surfaces keep their negotiated size; a shrunken drawable
	// yields a smaller image until the pool is recreated.
	w := min(size.Width, content.Width)
	h := min(size.Height, content.Height)
	if w <= 0 || h <= 0 {
		return nil, gfx.Size{}, gfx.Size{}, fmt.Errorf("drawable has no visible area")
	}

	drawable := t.Drawable
	if d.compositeEnabled && t.Window != 0 {
		if err := composite.RedirectWindowChecked(d.conn, t.Window, composite.RedirectAutomatic).Check(); err == nil {
			defer composite.UnredirectWindow(d.conn, t.Window, composite.RedirectAutomatic)

			if pixmap, err := xproto.NewPixmapId(d.conn); err == nil {
				if composite.NameWindowPixmapChecked(d.conn, t.Window, pixmap).Check() == nil {
					drawable = xproto.Drawable(pixmap)
					defer xproto.FreePixmap(d.conn, pixmap)
				}
			}
		}
	}

	reply, err := xproto.GetImage(
		d.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		uint16(w), uint16(h),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, gfx.Size{}, gfx.Size{}, fmt.Errorf("failed to get image: %w", err)
	}

	return reply.Data, gfx.Size{Width: w, Height: h}, content, nil
}

// Context issues CPU copies against x11-owned resources.
type Context struct{}

// CopyRegion blits the clip rectangle of src into the staging buffer.
func (c *Context) CopyRegion(dst gfx.StagingBuffer, src gfx.Surface, clip gfx.Box) error {
	st, ok := dst.(*staging)
	if !ok {
		return fmt.Errorf("staging buffer %T was not allocated by this device", dst)
	}
	surf, ok := src.(*surface)
	if !ok {
		return fmt.Errorf("surface %T was not produced by this device", src)
	}

	dstImg := gfx.WrapRaw(st.pix, st.pitch, st.width, st.height)
	srcImg := gfx.WrapRaw(surf.pix, surf.pitch, surf.size.Width, surf.size.Height)
	return gfx.BlitRegion(dstImg, srcImg, clip)
}

// MapRead exposes the staging buffer's pixels. The view aliases the buffer
// and stays valid until the next CopyRegion into it.
func (c *Context) MapRead(dst gfx.StagingBuffer) (gfx.Mapped, error) {
	st, ok := dst.(*staging)
	if !ok {
		return gfx.Mapped{}, fmt.Errorf("staging buffer %T was not allocated by this device", dst)
	}
	return gfx.Mapped{Data: st.pix, RowPitch: st.pitch}, nil
}

type staging struct {
	width  int
	height int
	format gfx.PixelFormat
	pitch  int
	pix    []byte
}

func (s *staging) Bounds() (int, int)      { return s.width, s.height }
func (s *staging) Format() gfx.PixelFormat { return s.format }

type surface struct {
	pix    []byte
	pitch  int
	size   gfx.Size
	format gfx.PixelFormat
}

func (s *surface) Format() gfx.PixelFormat { return s.format }
func (s *surface) Size() gfx.Size          { return s.size }
