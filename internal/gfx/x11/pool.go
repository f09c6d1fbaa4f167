package x11

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FrameTap/internal/gfx"
	"github.com/bryanchriswhite/FrameTap/internal/logger"
)

// Target identifies a subscribable X11 drawable together with the size it
// had when the target was created.
type Target struct {
	Drawable xproto.Drawable
	// Window is set for window targets and zero for root/display targets;
	// only window targets go through Composite redirection.
	Window xproto.Window

	size gfx.Size
}

// NewTarget wraps an X11 drawable as a capture target.
func NewTarget(drawable xproto.Drawable, window xproto.Window, size gfx.Size) *Target {
	return &Target{Drawable: drawable, Window: window, size: size}
}

// Size returns the extent observed at target creation.
func (t *Target) Size() (gfx.Size, error) { return t.size, nil }

// framePool keeps a single pending-frame slot. A new snapshot replaces an
// uncollected one, mirroring a depth-1 compositor pool.
type framePool struct {
	dev *Device

	mu      sync.Mutex
	format  gfx.PixelFormat
	size    gfx.Size
	pending *frame
	onFrame func() error
	closed  bool
}

// CreateSession binds the pool to a target. The session owns the snapshot
// loop that stands in for the compositor's notification thread.
func (p *framePool) CreateSession(target gfx.CaptureTarget) (gfx.Session, error) {
	t, ok := target.(*Target)
	if !ok {
		return nil, fmt.Errorf("capture target %T was not created for an X11 device", target)
	}
	return &session{
		pool:     p,
		target:   t,
		interval: p.dev.interval,
		stop:     make(chan struct{}),
	}, nil
}

func (p *framePool) SetFrameArrived(fn func() error) {
	p.mu.Lock()
	p.onFrame = fn
	p.mu.Unlock()
}

func (p *framePool) TryGetNextFrame() (gfx.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("frame pool is closed")
	}
	if p.pending == nil {
		return nil, fmt.Errorf("no pending frame in pool")
	}
	f := p.pending
	p.pending = nil
	return f, nil
}

// Recreate resizes the pool's surfaces. Any pending frame is discarded; the
// registered callback survives.
func (p *framePool) Recreate(format gfx.PixelFormat, capacity int, size gfx.Size) error {
	if format != gfx.FormatBGRA8 {
		return fmt.Errorf("unsupported pixel format %q", format)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("frame pool is closed")
	}
	p.format = format
	p.size = size
	p.pending = nil
	return nil
}

func (p *framePool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.pending = nil
	p.mu.Unlock()
	return nil
}

// produce snapshots the target into the pending slot and fires the
// frame-arrived callback. Called from the session's snapshot goroutine.
func (p *framePool) produce(t *Target) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	size := p.size
	format := p.format
	p.mu.Unlock()

	pix, imgSize, content, err := p.dev.snapshot(t, size)
	if err != nil {
		return err
	}
	f := &frame{
		surf: &surface{
			pix:    pix,
			pitch:  imgSize.Width * format.BytesPerPixel(),
			size:   imgSize,
			format: format,
		},
		content: content,
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.pending = f
	fn := p.onFrame
	p.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

type frame struct {
	surf    *surface
	content gfx.Size
}

func (f *frame) Surface() (gfx.Surface, error)  { return f.surf, nil }
func (f *frame) ContentSize() (gfx.Size, error) { return f.content, nil }
func (f *frame) Release()                       {}

// session runs the snapshot loop for a subscribed target.
type session struct {
	pool     *framePool
	target   *Target
	interval time.Duration
	cursor   bool
	started  bool
	stop     chan struct{}
	once     sync.Once
}

// SetCursorCapture records the cursor flag. Core-protocol GetImage never
// composites the pointer.
// TODO overlay the cursor from XFIXES GetCursorImage when the flag is set.
func (s *session) SetCursorCapture(enabled bool) error {
	s.cursor = enabled
	return nil
}

// Start launches the snapshot loop. Calling Start again is a no-op.
func (s *session) Start() error {
	if s.started {
		return nil
	}
	s.started = true
	go s.run()
	return nil
}

func (s *session) run() {
	log := logger.WithComponent("x11-session")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.pool.produce(s.target); err != nil {
				log.Error().Err(err).Msg("snapshot failed")
			}
		}
	}
}

// Close stops the snapshot loop. Idempotent.
func (s *session) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
