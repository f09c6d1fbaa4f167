package capture

import (
	"errors"
	"testing"

	"github.com/bryanchriswhite/FrameTap/internal/gfx"
)

func TestProducerKeepsFIFOUnderOverflow(t *testing.T) {
	pool := &mockPool{}
	p := newProducer(pool)

	frames := make([]*mockFrame, QueueCapacity+3)
	for i := range frames {
		frames[i] = newMockFrame(gfx.Size{Width: 10, Height: 10})
		if err := pool.push(frames[i]); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	if got := p.droppedFrames(); got != 3 {
		t.Fatalf("droppedFrames() = %d, want 3", got)
	}
	for i := 0; i < QueueCapacity; i++ {
		item := <-p.frames
		if item.frame != gfx.Frame(frames[i]) {
			t.Fatalf("queue entry %d out of order", i)
		}
		if item.seq != uint64(i+1) {
			t.Errorf("queue entry %d has seq %d, want %d", i, item.seq, i+1)
		}
	}
	for i := QueueCapacity; i < len(frames); i++ {
		if !frames[i].released {
			t.Errorf("overflowed frame %d not released", i)
		}
	}
}

func TestProducerPropagatesPoolFailure(t *testing.T) {
	pool := &mockPool{}
	p := newProducer(pool)

	pool.nextErr = errors.New("device removed")
	err := p.onFrameArrived()
	if err == nil {
		t.Fatal("onFrameArrived() returned nil despite pool failure")
	}
	if !errors.Is(err, pool.nextErr) {
		t.Errorf("onFrameArrived() error = %v, want wrapped pool error", err)
	}
}

func TestProducerShutdownStopsDelivery(t *testing.T) {
	pool := &mockPool{}
	p := newProducer(pool)

	buffered := newMockFrame(gfx.Size{Width: 10, Height: 10})
	if err := pool.push(buffered); err != nil {
		t.Fatalf("push: %v", err)
	}

	p.shutdown()
	if !buffered.released {
		t.Error("buffered frame not released on shutdown")
	}

	// Late notifications are no-ops, never sends on the closed channel.
	late := newMockFrame(gfx.Size{Width: 10, Height: 10})
	if err := pool.push(late); err != nil {
		t.Fatalf("push after shutdown: %v", err)
	}
	if !late.released {
		t.Error("late frame not released after shutdown")
	}
	if got := p.droppedFrames(); got != 0 {
		t.Errorf("droppedFrames() = %d, late delivery must not count as drop", got)
	}

	p.shutdown() // second shutdown is a no-op
}
