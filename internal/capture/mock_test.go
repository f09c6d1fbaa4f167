package capture

import (
	"errors"
	"sync"

	"github.com/bryanchriswhite/FrameTap/internal/gfx"
)

var errNoPending = errors.New("no pending frame")

// Test doubles for the gfx collaborator boundary and the capturable source.
// mockPool.push plays the role of the compositor: it queues a frame and
// fires the registered frame-arrived callback, as the capture runtime would
// on its notification thread.

type mockTarget struct {
	size    gfx.Size
	sizeErr error
}

func (t *mockTarget) Size() (gfx.Size, error) { return t.size, t.sizeErr }

type mockSurface struct {
	format gfx.PixelFormat
	size   gfx.Size
}

func (s *mockSurface) Format() gfx.PixelFormat { return s.format }
func (s *mockSurface) Size() gfx.Size          { return s.size }

type mockFrame struct {
	surf       *mockSurface
	content    gfx.Size
	surfaceErr error
	released   bool
}

func newMockFrame(content gfx.Size) *mockFrame {
	return &mockFrame{
		surf:    &mockSurface{format: gfx.FormatBGRA8, size: content},
		content: content,
	}
}

func (f *mockFrame) Surface() (gfx.Surface, error) {
	if f.surfaceErr != nil {
		return nil, f.surfaceErr
	}
	return f.surf, nil
}

func (f *mockFrame) ContentSize() (gfx.Size, error) { return f.content, nil }
func (f *mockFrame) Release()                       { f.released = true }

type mockSession struct {
	cursor     bool
	cursorErr  error
	startErr   error
	startCalls int
	closeCalls int
}

func (s *mockSession) SetCursorCapture(enabled bool) error {
	s.cursor = enabled
	return s.cursorErr
}

func (s *mockSession) Start() error {
	s.startCalls++
	return s.startErr
}

func (s *mockSession) Close() error {
	s.closeCalls++
	return nil
}

type mockPool struct {
	mu         sync.Mutex
	next       []gfx.Frame
	fn         func() error
	session    *mockSession
	sessionErr error
	nextErr    error
	recreates  []gfx.Size
	closed     bool
}

func (p *mockPool) CreateSession(target gfx.CaptureTarget) (gfx.Session, error) {
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	if p.session == nil {
		p.session = &mockSession{}
	}
	return p.session, nil
}

func (p *mockPool) SetFrameArrived(fn func() error) {
	p.mu.Lock()
	p.fn = fn
	p.mu.Unlock()
}

func (p *mockPool) TryGetNextFrame() (gfx.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nextErr != nil {
		return nil, p.nextErr
	}
	if len(p.next) == 0 {
		return nil, errNoPending
	}
	f := p.next[0]
	p.next = p.next[1:]
	return f, nil
}

func (p *mockPool) Recreate(format gfx.PixelFormat, capacity int, size gfx.Size) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recreates = append(p.recreates, size)
	p.next = nil
	return nil
}

func (p *mockPool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// push queues a frame and fires the frame-arrived callback.
func (p *mockPool) push(f gfx.Frame) error {
	p.mu.Lock()
	p.next = append(p.next, f)
	fn := p.fn
	p.mu.Unlock()
	return fn()
}

type mockStaging struct {
	w, h   int
	format gfx.PixelFormat
	pix    []byte
}

func (s *mockStaging) Bounds() (int, int)      { return s.w, s.h }
func (s *mockStaging) Format() gfx.PixelFormat { return s.format }

type mockDevice struct {
	pool      *mockPool
	poolErr   error
	poolSizes []gfx.Size
	allocErr  error
	stagings  []*mockStaging
}

func (d *mockDevice) CreateFramePool(format gfx.PixelFormat, capacity int, size gfx.Size) (gfx.FramePool, error) {
	if d.poolErr != nil {
		return nil, d.poolErr
	}
	d.poolSizes = append(d.poolSizes, size)
	return d.pool, nil
}

func (d *mockDevice) AllocStaging(width, height int, format gfx.PixelFormat) (gfx.StagingBuffer, error) {
	if d.allocErr != nil {
		return nil, d.allocErr
	}
	st := &mockStaging{
		w:      width,
		h:      height,
		format: format,
		pix:    make([]byte, width*height*format.BytesPerPixel()),
	}
	d.stagings = append(d.stagings, st)
	return st, nil
}

type copyOp struct {
	dst  gfx.StagingBuffer
	src  gfx.Surface
	clip gfx.Box
}

type mockContext struct {
	copies   []copyOp
	copyErr  error
	mapErr   error
	mapCalls int
}

func (c *mockContext) CopyRegion(dst gfx.StagingBuffer, src gfx.Surface, clip gfx.Box) error {
	if c.copyErr != nil {
		return c.copyErr
	}
	c.copies = append(c.copies, copyOp{dst: dst, src: src, clip: clip})
	return nil
}

func (c *mockContext) MapRead(dst gfx.StagingBuffer) (gfx.Mapped, error) {
	if c.mapErr != nil {
		return gfx.Mapped{}, c.mapErr
	}
	c.mapCalls++
	st := dst.(*mockStaging)
	return gfx.Mapped{Data: st.pix, RowPitch: st.w * st.format.BytesPerPixel()}, nil
}

type mockBootstrap struct {
	device *mockDevice
	ctx    *mockContext
	err    error
}

func (b *mockBootstrap) CreateDevice() (gfx.Device, gfx.Context, error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	return b.device, b.ctx, nil
}

type mockSource struct {
	mu          sync.Mutex
	target      *mockTarget
	targetErr   error
	targetCalls int
	clip        gfx.Box
	clipErr     error
	clipCalls   int
	closed      chan struct{}
	closeOnce   sync.Once
}

func newMockSource(size gfx.Size) *mockSource {
	return &mockSource{
		target: &mockTarget{size: size},
		clip:   gfx.Box{Right: size.Width, Bottom: size.Height},
		closed: make(chan struct{}),
	}
}

func (s *mockSource) CreateCaptureTarget() (gfx.CaptureTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetCalls++
	if s.targetErr != nil {
		return nil, s.targetErr
	}
	return s.target, nil
}

func (s *mockSource) ClipRegion() (gfx.Box, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clipCalls++
	if s.clipErr != nil {
		return gfx.Box{}, s.clipErr
	}
	return s.clip, nil
}

func (s *mockSource) CloseSignal() <-chan struct{} { return s.closed }
func (s *mockSource) Name() string                 { return "mock-source" }

// closeSource simulates the window going away.
func (s *mockSource) closeSource() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// resize points the source at a new target size and clip region, as a real
// source would report after the underlying window was resized.
func (s *mockSource) resize(size gfx.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = &mockTarget{size: size}
	s.clip = gfx.Box{Right: size.Width, Bottom: size.Height}
}
