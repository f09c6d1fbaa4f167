// Package gfx defines the graphics-collaborator boundary of the capture
// pipeline: device bootstrap, frame pools and sessions, and CPU-mappable
// staging buffers. The capture core depends only on these interfaces;
// concrete implementations live in subpackages (x11) or in test doubles.
package gfx

// PixelFormat identifies the byte layout of a surface.
type PixelFormat string

const (
	// FormatBGRA8 is the fixed format negotiated for frame pools: 8 bits
	// per channel, blue first, premultiplied alpha ignored.
	FormatBGRA8 PixelFormat = "bgra8"
)

// BytesPerPixel returns the per-pixel byte width of the format. Only 32-bit
// formats are negotiated today.
func (f PixelFormat) BytesPerPixel() int {
	return 4
}

// Size is a surface extent in pixels.
type Size struct {
	Width  int
	Height int
}

// Box is a clip rectangle in source pixel coordinates. Right and Bottom are
// exclusive.
type Box struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Dx returns the box width.
func (b Box) Dx() int { return b.Right - b.Left }

// Dy returns the box height.
func (b Box) Dy() int { return b.Bottom - b.Top }

// Mapped is a CPU-visible view into a staging buffer. Data holds RowPitch
// bytes per row; RowPitch may exceed width*BytesPerPixel.
type Mapped struct {
	Data     []byte
	RowPitch int
}

// CaptureTarget is a handle to a subscribable compositor item (a window or a
// display) together with its current extent.
type CaptureTarget interface {
	// Size returns the target's current extent in pixels.
	Size() (Size, error)
}

// Surface is a single composited texture retrieved from a frame.
type Surface interface {
	Format() PixelFormat
	Size() Size
}

// Frame is one composited frame handed out by a frame pool.
type Frame interface {
	Surface() (Surface, error)
	ContentSize() (Size, error)
	// Release returns the frame's backing surface to the pool. Call once
	// the surface contents have been copied out.
	Release()
}

// FramePool owns the fixed-depth buffer of pending composited surfaces.
type FramePool interface {
	// CreateSession subscribes the pool to the target's compositor output.
	CreateSession(target CaptureTarget) (Session, error)

	// SetFrameArrived registers the notification callback invoked once per
	// composited frame, on a thread owned by the capture runtime. A non-nil
	// error returned by the callback is surfaced through the runtime.
	SetFrameArrived(fn func() error)

	// TryGetNextFrame pops the next pending frame without blocking.
	TryGetNextFrame() (Frame, error)

	// Recreate replaces the pool's surfaces with ones of the given size.
	// Pending frames are discarded; the registered callback is kept.
	Recreate(format PixelFormat, capacity int, size Size) error

	Close() error
}

// Session controls frame delivery for a subscribed capture target.
type Session interface {
	SetCursorCapture(enabled bool) error
	Start() error
	Close() error
}

// StagingBuffer is a CPU-mappable destination texture.
type StagingBuffer interface {
	Bounds() (width, height int)
	Format() PixelFormat
}

// Device allocates pools and staging buffers.
type Device interface {
	CreateFramePool(format PixelFormat, capacity int, size Size) (FramePool, error)
	AllocStaging(width, height int, format PixelFormat) (StagingBuffer, error)
}

// Context issues copy and map operations against device resources.
type Context interface {
	// CopyRegion copies the clip region of src into dst at origin (0,0).
	CopyRegion(dst StagingBuffer, src Surface, clip Box) error

	// MapRead exposes dst's pixels for CPU reads. The returned view stays
	// valid until the next CopyRegion into the same buffer.
	MapRead(dst StagingBuffer) (Mapped, error)
}

// Bootstrap produces a device/context pair.
type Bootstrap interface {
	CreateDevice() (Device, Context, error)
}
