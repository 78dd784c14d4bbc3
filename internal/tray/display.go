package tray

import (
	"errors"

	"github.com/jezek/xgb/xproto"
)

var (
	// ErrWindowGone reports that a window vanished while we were talking
	// to it. Docking races with client exit produce it routinely.
	ErrWindowGone = errors.New("window gone")

	ErrAlreadyDocked = errors.New("window already docked")
	ErrNotActive     = errors.New("tray manager not active")
	ErrNotOwner      = errors.New("tray selection not owned")
)

// Display is the windowing connection the tray runs on. Implementations
// must map BadWindow/BadDrawable failures to ErrWindowGone.
type Display interface {
	Root() xproto.Window
	Screen() int

	InternAtom(name string) (xproto.Atom, error)

	CreateWindow(parent xproto.Window, x, y int16, width, height uint16, class uint16, mask uint32, values []uint32) (xproto.Window, error)
	DestroyWindow(win xproto.Window) error
	ReparentWindow(win, parent xproto.Window, x, y int16) error
	ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error
	ChangeWindowAttributes(win xproto.Window, mask uint32, values []uint32) error
	// ClearArea repaints the whole window with its background.
	ClearArea(win xproto.Window) error
	MapWindow(win xproto.Window) error
	UnmapWindow(win xproto.Window) error
	ChangeSaveSet(win xproto.Window, mode byte) error
	Geometry(win xproto.Window) (width, height uint16, err error)

	GetProperty(win xproto.Window, prop, typ xproto.Atom) (*xproto.GetPropertyReply, error)
	ChangeProperty(win xproto.Window, prop, typ xproto.Atom, format byte, data []byte) error

	SelectionOwner(selection xproto.Atom) (xproto.Window, error)
	SetSelectionOwner(owner xproto.Window, selection xproto.Atom) error

	SendEvent(dest xproto.Window, mask uint32, ev xproto.ClientMessageEvent) error
	Sync()
}
