// Package capture implements the core capture pipeline: an externally-driven
// frame producer feeding a bounded queue, and a pull-style consumer that
// stages composited frames into CPU-readable memory.
package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/bryanchriswhite/FrameTap/internal/gfx"
	"github.com/bryanchriswhite/FrameTap/internal/logger"
	"github.com/bryanchriswhite/FrameTap/internal/source"
	"github.com/rs/zerolog"
)

// poolDepth is the number of composited surfaces the OS retains. One is
// enough: the bounded queue, not the pool, absorbs consumer lag.
const poolDepth = 1

// FrameHandle bundles the staging buffer holding the most recent frame with
// a CPU-mapped view into it. The view stays valid until the next Grab call
// on the same pipeline.
type FrameHandle struct {
	Staging gfx.StagingBuffer
	Mapped  gfx.Mapped
}

// Pipeline drives a capture subscription from construction through frame
// delivery to shutdown. States: constructed, started, stopped (terminal).
//
// Start and Grab must be called from a single goroutine. Stop may be called
// from any goroutine (typically a signal handler); a Grab blocked on an
// empty queue then wakes up and observes the torn-down queue.
type Pipeline struct {
	device gfx.Device
	ctx    gfx.Context
	src    source.Capturable

	pool     gfx.FramePool
	session  gfx.Session
	producer *producer

	clip        gfx.Box
	closeSignal <-chan struct{}
	staging     gfx.StagingBuffer
	contentSize gfx.Size

	started bool
	stopped atomic.Bool
	log     *zerolog.Logger
}

// New constructs a pipeline over the given source. The device and context
// are bootstrapped, a depth-1 BGRA frame pool and session are created, and
// the producer is subscribed. Frame delivery does not begin until Start.
func New(boot gfx.Bootstrap, src source.Capturable, captureCursor bool) (*Pipeline, error) {
	device, ctx, err := boot.CreateDevice()
	if err != nil {
		return nil, &DeviceInitError{Err: err}
	}

	target, err := src.CreateCaptureTarget()
	if err != nil {
		return nil, &SessionCreateError{Err: fmt.Errorf("create capture target: %w", err)}
	}
	size, err := target.Size()
	if err != nil {
		return nil, &SessionCreateError{Err: fmt.Errorf("query target size: %w", err)}
	}

	pool, err := device.CreateFramePool(gfx.FormatBGRA8, poolDepth, size)
	if err != nil {
		return nil, &SessionCreateError{Err: fmt.Errorf("create frame pool: %w", err)}
	}
	session, err := pool.CreateSession(target)
	if err != nil {
		pool.Close()
		return nil, &SessionCreateError{Err: fmt.Errorf("create session: %w", err)}
	}
	if err := session.SetCursorCapture(captureCursor); err != nil {
		session.Close()
		pool.Close()
		return nil, &SessionCreateError{Err: fmt.Errorf("set cursor capture: %w", err)}
	}

	clip, err := src.ClipRegion()
	if err != nil {
		session.Close()
		pool.Close()
		return nil, &SessionCreateError{Err: fmt.Errorf("read clip region: %w", err)}
	}

	p := &Pipeline{
		device:      device,
		ctx:         ctx,
		src:         src,
		pool:        pool,
		session:     session,
		producer:    newProducer(pool),
		clip:        clip,
		closeSignal: src.CloseSignal(),
		log:         logger.WithComponent("capture-pipeline"),
	}
	p.log.Debug().
		Str("source", src.Name()).
		Int("width", size.Width).
		Int("height", size.Height).
		Bool("cursor", captureCursor).
		Msg("pipeline constructed")
	return p, nil
}

// Source returns the capturable this pipeline is subscribed to.
func (p *Pipeline) Source() source.Capturable { return p.src }

// DroppedFrames reports how many frames were discarded because the consumer
// lagged more than QueueCapacity frames behind.
func (p *Pipeline) DroppedFrames() uint64 { return p.producer.droppedFrames() }

// Start turns frame delivery on. Calling Start again while running has no
// effect, and calling it after Stop has no effect either: a stopped pipeline
// cannot be restarted.
func (p *Pipeline) Start() error {
	if p.stopped.Load() || p.started {
		return nil
	}
	if err := p.session.Start(); err != nil {
		return &SessionError{Op: "start", Err: err}
	}
	p.started = true
	return nil
}

// Grab returns the next captured frame, staged into CPU-readable memory.
//
// It blocks until a frame is available, then returns a handle whose mapped
// view is valid until the next Grab. A nil handle with a nil error means the
// stream has ended (source closed or delivery torn down); the pipeline is
// then permanently stopped and later calls keep returning (nil, nil).
func (p *Pipeline) Grab() (*FrameHandle, error) {
	ok, err := p.grabNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	mapped, err := p.ctx.MapRead(p.staging)
	if err != nil {
		return nil, &CaptureError{Op: "map", Err: err}
	}
	return &FrameHandle{Staging: p.staging, Mapped: mapped}, nil
}

// Stop halts delivery and releases the session and frame pool. The pipeline
// cannot be reused afterwards.
func (p *Pipeline) Stop() error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}
	p.producer.shutdown()

	err := p.session.Close()
	if cerr := p.pool.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &SessionError{Op: "stop", Err: err}
	}
	p.log.Debug().Str("source", p.src.Name()).Msg("pipeline stopped")
	return nil
}

// grabNext pulls the next frame from the queue and stages it. Returns false
// with a nil error when the stream has ended.
func (p *Pipeline) grabNext() (bool, error) {
	if p.stopped.Load() {
		return false, nil
	}

	item, ok := p.nextQueued()
	if !ok {
		if err := p.Stop(); err != nil {
			p.log.Warn().Err(err).Msg("stop after stream end failed")
		}
		return false, nil
	}
	defer item.frame.Release()

	surface, err := item.frame.Surface()
	if err != nil {
		return false, &CaptureError{Op: "surface", Err: err}
	}
	contentSize, err := item.frame.ContentSize()
	if err != nil {
		return false, &CaptureError{Op: "content size", Err: err}
	}

	if contentSize != p.contentSize || p.staging == nil {
		if err := p.handleResize(surface.Format()); err != nil {
			return false, err
		}
		p.contentSize = contentSize
	}

	if err := p.ctx.CopyRegion(p.staging, surface, p.clip); err != nil {
		return false, &CaptureError{Op: "copy", Err: err}
	}
	return true, nil
}

// nextQueued receives the next queue entry, draining already-buffered frames
// ahead of a pending close signal. The returned bool is false once the
// stream has ended (queue closed or source closure observed while empty).
func (p *Pipeline) nextQueued() (queued, bool) {
	select {
	case item, ok := <-p.producer.frames:
		return item, ok
	default:
	}
	select {
	case item, ok := <-p.producer.frames:
		return item, ok
	case <-p.closeSignal:
		return queued{}, false
	}
}

// handleResize is run when the observed content size changed or no staging
// buffer exists yet: the clip region is re-read, the frame pool is recreated
// at the target's new size, and a fresh staging buffer is allocated at clip
// dimensions. The previous staging buffer is never resized in place.
func (p *Pipeline) handleResize(format gfx.PixelFormat) error {
	target, err := p.src.CreateCaptureTarget()
	if err != nil {
		return &CaptureError{Op: "resize target", Err: err}
	}
	size, err := target.Size()
	if err != nil {
		return &CaptureError{Op: "resize target size", Err: err}
	}
	clip, err := p.src.ClipRegion()
	if err != nil {
		return &CaptureError{Op: "resize clip", Err: err}
	}

	if err := p.pool.Recreate(gfx.FormatBGRA8, poolDepth, size); err != nil {
		return &CaptureError{Op: "recreate pool", Err: err}
	}

	staging, err := p.device.AllocStaging(clip.Dx(), clip.Dy(), format)
	if err != nil {
		return &CaptureError{Op: "alloc staging", Err: err}
	}
	p.clip = clip
	p.staging = staging
	p.log.Debug().
		Int("width", clip.Dx()).
		Int("height", clip.Dy()).
		Msg("staging buffer recreated")
	return nil
}
