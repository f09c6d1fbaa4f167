package source

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/FrameTap/internal/logger"
)

// WindowInfo describes a discoverable top-level window.
type WindowInfo struct {
	ID    uint32 `json:"id"`
	Title string `json:"title"`
	Class string `json:"class"`
}

// ListWindows enumerates top-level windows via EWMH _NET_CLIENT_LIST.
func ListWindows() ([]WindowInfo, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer conn.Close()

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	return listWindows(conn, root)
}

func listWindows(conn *xgb.Conn, root xproto.Window) ([]WindowInfo, error) {
	log := logger.WithComponent("x11-source")

	clientList, err := getAtom(conn, "_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(
		conn,
		false,
		root,
		clientList,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST: %w", err)
	}

	windows := make([]WindowInfo, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		win := xproto.Window(xgb.Get32(reply.Value[i:]))
		windows = append(windows, WindowInfo{
			ID:    uint32(win),
			Title: windowTitle(conn, win),
			Class: windowClass(conn, win),
		})
	}
	log.Debug().Int("count", len(windows)).Msg("enumerated windows via _NET_CLIENT_LIST")
	return windows, nil
}

func getAtom(conn *xgb.Conn, name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}

// windowTitle reads _NET_WM_NAME with a WM_NAME fallback. Empty on error.
func windowTitle(conn *xgb.Conn, win xproto.Window) string {
	if atom, err := getAtom(conn, "_NET_WM_NAME"); err == nil {
		if title := stringProperty(conn, win, atom); title != "" {
			return title
		}
	}
	return stringProperty(conn, win, xproto.AtomWmName)
}

// windowClass reads the class half of the WM_CLASS pair. Empty on error.
func windowClass(conn *xgb.Conn, win xproto.Window) string {
	raw := stringProperty(conn, win, xproto.AtomWmClass)
	// WM_CLASS is "instance\0class\0".
	parts := strings.Split(raw, "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}

func stringProperty(conn *xgb.Conn, win xproto.Window, atom xproto.Atom) string {
	reply, err := xproto.GetProperty(
		conn,
		false,
		win,
		atom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil || reply == nil {
		return ""
	}
	return strings.TrimRight(string(reply.Value), "\x00")
}

// matchTitle reports whether a window title matches a case-insensitive
// substring query.
func matchTitle(title, query string) bool {
	return query != "" && strings.Contains(strings.ToLower(title), strings.ToLower(query))
}
