package tray

import (
	"github.com/jezek/xgb/xproto"
)

// Signals accepted by Manager.Post besides raw xproto events.
type (
	// VisibilityChange reports that the bar was shown or hidden.
	VisibilityChange struct{ Visible bool }

	// DimWindow sets the opacity of the host window, 0 to 1.
	DimWindow struct{ Opacity float64 }

	UpdateBackground struct{}

	// TrayPosChange moves the anchor of a module tray.
	TrayPosChange struct{ X int }

	TrayVisibility struct{ Visible bool }

	// SettingsChanged replaces the configured part of the settings.
	SettingsChanged struct{ Settings Settings }
)

type activationDue struct {
	gen uint64
}

type rebroadcastDue struct {
	gen uint64
}

// BalloonMessage is a SYSTEM_TRAY_BEGIN_MESSAGE request. The message text
// follows in _NET_SYSTEM_TRAY_MESSAGE_DATA events handled by the renderer.
type BalloonMessage struct {
	Window  xproto.Window
	Timeout uint32
	Length  uint32
	ID      uint32
}

// Notifier receives the tray's outbound notifications. Calls happen on the
// manager goroutine and must not block.
type Notifier interface {
	Redraw()
	VisibilityChanged(visible bool)
	BalloonMessage(msg BalloonMessage)
	CancelMessage(win xproto.Window, id uint32)
}

type nopNotifier struct{}

func (nopNotifier) Redraw()                             {}
func (nopNotifier) VisibilityChanged(bool)              {}
func (nopNotifier) BalloonMessage(BalloonMessage)       {}
func (nopNotifier) CancelMessage(xproto.Window, uint32) {}
