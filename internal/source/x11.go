package source

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FrameTap/internal/gfx"
	x11gfx "github.com/bryanchriswhite/FrameTap/internal/gfx/x11"
	"github.com/bryanchriswhite/FrameTap/internal/logger"
)

// Window is a capturable X11 window. Its close signal fires when the window
// is destroyed or the X connection drops.
type Window struct {
	conn  *xgb.Conn
	win   xproto.Window
	title string

	closed    chan struct{}
	closeOnce sync.Once
}

// OpenWindow connects to the X server and wraps the window with the given
// ID as a capturable.
func OpenWindow(id uint32) (*Window, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	win := xproto.Window(id)

	if _, err := xproto.GetGeometry(conn, xproto.Drawable(win)).Reply(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("window 0x%x is not capturable: %w", id, err)
	}

	w := &Window{
		conn:   conn,
		win:    win,
		title:  windowTitle(conn, win),
		closed: make(chan struct{}),
	}
	w.watchClose()
	return w, nil
}

// FindWindow opens the first window whose title contains the given
// case-insensitive substring.
func FindWindow(title string) (*Window, error) {
	windows, err := ListWindows()
	if err != nil {
		return nil, err
	}
	for _, info := range windows {
		if matchTitle(info.Title, title) {
			return OpenWindow(info.ID)
		}
	}
	return nil, fmt.Errorf("no window with title matching %q", title)
}

// CreateCaptureTarget re-queries the window's geometry and wraps it as an
// X11 capture target.
func (w *Window) CreateCaptureTarget() (gfx.CaptureTarget, error) {
	geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}
	size := gfx.Size{Width: int(geom.Width), Height: int(geom.Height)}
	return x11gfx.NewTarget(xproto.Drawable(w.win), w.win, size), nil
}

// ClipRegion covers the whole window surface.
func (w *Window) ClipRegion() (gfx.Box, error) {
	geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.win)).Reply()
	if err != nil {
		return gfx.Box{}, fmt.Errorf("failed to get window geometry: %w", err)
	}
	return gfx.Box{Right: int(geom.Width), Bottom: int(geom.Height)}, nil
}

// CloseSignal fires once when the window is destroyed.
func (w *Window) CloseSignal() <-chan struct{} { return w.closed }

// Name returns the window title, falling back to the hex window ID.
func (w *Window) Name() string {
	if w.title != "" {
		return w.title
	}
	return fmt.Sprintf("window-0x%x", uint32(w.win))
}

// Close releases the source's X connection.
func (w *Window) Close() error {
	w.conn.Close()
	return nil
}

// watchClose subscribes to StructureNotify on the window and signals closure
// on DestroyNotify or connection loss.
func (w *Window) watchClose() {
	log := logger.WithComponent("x11-source")
	err := xproto.ChangeWindowAttributesChecked(
		w.conn,
		w.win,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskStructureNotify},
	).Check()
	if err != nil {
		log.Warn().Err(err).Msg("cannot watch window for destruction")
		return
	}

	go func() {
		for {
			ev, xerr := w.conn.WaitForEvent()
			if ev == nil && xerr == nil {
				// Connection gone.
				w.signalClosed()
				return
			}
			if xerr != nil {
				log.Debug().Str("error", xerr.Error()).Msg("X event error")
				continue
			}
			if destroy, ok := ev.(xproto.DestroyNotifyEvent); ok && destroy.Window == w.win {
				log.Info().Uint32("window_id", uint32(w.win)).Msg("window destroyed")
				w.signalClosed()
				return
			}
		}
	}()
}

func (w *Window) signalClosed() {
	w.closeOnce.Do(func() { close(w.closed) })
}

// Display is a capturable X11 screen. Its close signal never fires.
type Display struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	index  int
	closed chan struct{}
}

// OpenDisplay connects to the X server and wraps the screen with the given
// index as a capturable.
func OpenDisplay(index int) (*Display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	setup := xproto.Setup(conn)
	if index < 0 || index >= len(setup.Roots) {
		conn.Close()
		return nil, fmt.Errorf("no screen with index %d (have %d)", index, len(setup.Roots))
	}
	return &Display{
		conn:   conn,
		screen: &setup.Roots[index],
		index:  index,
		closed: make(chan struct{}),
	}, nil
}

func (d *Display) CreateCaptureTarget() (gfx.CaptureTarget, error) {
	size := gfx.Size{
		Width:  int(d.screen.WidthInPixels),
		Height: int(d.screen.HeightInPixels),
	}
	return x11gfx.NewTarget(xproto.Drawable(d.screen.Root), 0, size), nil
}

func (d *Display) ClipRegion() (gfx.Box, error) {
	return gfx.Box{
		Right:  int(d.screen.WidthInPixels),
		Bottom: int(d.screen.HeightInPixels),
	}, nil
}

func (d *Display) CloseSignal() <-chan struct{} { return d.closed }

func (d *Display) Name() string { return fmt.Sprintf("display-%d", d.index) }

// Close releases the source's X connection.
func (d *Display) Close() error {
	d.conn.Close()
	return nil
}
