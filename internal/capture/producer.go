package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/FrameTap/internal/gfx"
	"github.com/bryanchriswhite/FrameTap/internal/logger"
	"github.com/rs/zerolog"
)

// QueueCapacity bounds the number of frames that may sit between the
// notification callback and the consumer. Overflow drops the newest arrival.
const QueueCapacity = 32

// queued is one entry in the pending-frame queue.
type queued struct {
	frame gfx.Frame
	seq   uint64
	at    time.Time
}

// producer funnels frame-arrived notifications from the capture runtime into
// a bounded FIFO read by the pipeline. It is the queue's single writer; the
// notification thread belongs to the runtime, not to us.
type producer struct {
	pool   gfx.FramePool
	frames chan queued
	log    *zerolog.Logger

	mu     sync.Mutex
	closed bool

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// newProducer registers the frame-arrived callback on the pool and returns
// the producer owning the queue's write end.
func newProducer(pool gfx.FramePool) *producer {
	p := &producer{
		pool:   pool,
		frames: make(chan queued, QueueCapacity),
		log:    logger.WithComponent("frame-producer"),
	}
	pool.SetFrameArrived(p.onFrameArrived)
	return p
}

// onFrameArrived runs on the capture runtime's notification thread, once per
// composited frame. It must not block.
func (p *producer) onFrameArrived() error {
	frame, err := p.pool.TryGetNextFrame()
	if err != nil {
		p.log.Error().Err(err).Msg("frame pool yielded no frame on notification")
		return fmt.Errorf("retrieve next frame: %w", err)
	}

	item := queued{frame: frame, seq: p.seq.Add(1), at: time.Now()}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		// Consumer side is gone; stop attempting delivery.
		frame.Release()
		return nil
	}

	select {
	case p.frames <- item:
	default:
		// Queue full: drop the newest arrival, keep the older frames.
		frame.Release()
		p.dropped.Add(1)
		p.log.Debug().
			Uint64("seq", item.seq).
			Time("arrived", item.at).
			Uint64("dropped_total", p.dropped.Load()).
			Msg("pending-frame queue full, dropping frame")
	}
	return nil
}

// shutdown closes the queue exactly once and releases any frames still
// buffered. Safe against a concurrent onFrameArrived.
func (p *producer) shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.frames)
	p.mu.Unlock()

	for item := range p.frames {
		item.frame.Release()
	}
}

// droppedFrames reports how many frames were discarded due to backpressure.
func (p *producer) droppedFrames() uint64 {
	return p.dropped.Load()
}
