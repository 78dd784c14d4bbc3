package tray

import (
	"errors"

	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

func (m *Manager) handle(msg any) {
	switch e := msg.(type) {
	case activationDue:
		m.handleActivationDue(e)
	case rebroadcastDue:
		m.handleRebroadcastDue(e)

	case xproto.ExposeEvent:
		if e.Count == 0 && m.isHost(e.Window) {
			m.notify.Redraw()
		}
	case xproto.VisibilityNotifyEvent:
		if m.isHost(e.Window) {
			m.notify.Redraw()
		}
	case xproto.ClientMessageEvent:
		m.handleClientMessage(e)
	case xproto.ConfigureRequestEvent:
		m.handleConfigureRequest(e)
	case xproto.ResizeRequestEvent:
		m.handleResizeRequest(e)
	case xproto.MapRequestEvent:
		m.handleMapRequest(e)
	case xproto.SelectionClearEvent:
		m.handleSelectionClear(e)
	case xproto.PropertyNotifyEvent:
		m.handlePropertyNotify(e)
	case xproto.ReparentNotifyEvent:
		m.handleReparent(e)
	case xproto.DestroyNotifyEvent:
		m.handleDestroy(e)
	case xproto.MapNotifyEvent:
		m.handleMap(e)
	case xproto.UnmapNotifyEvent:
		m.handleUnmap(e)

	case VisibilityChange:
		m.setBarHidden(!e.Visible)
	case TrayVisibility:
		m.setHidden(!e.Visible)
	case DimWindow:
		m.setOpacity(e.Opacity)
	case UpdateBackground:
		if m.active() {
			m.setBackground()
			m.setTrayColors()
			m.notify.Redraw()
		}
	case TrayPosChange:
		m.mu.Lock()
		m.opts.Pos.X = e.X
		m.mu.Unlock()
		m.reconfigure()
	case SettingsChanged:
		m.applySettings(e.Settings)
	}
}

func (m *Manager) active() bool {
	return m.Phase() == PhaseActive
}

func (m *Manager) isHost(win xproto.Window) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == PhaseActive && win != xproto.WindowNone && win == m.tray
}

// tracked reports whether win is a docked client of an active tray.
func (m *Manager) tracked(win xproto.Window) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == PhaseActive && m.clients.Contains(win)
}

func (m *Manager) handleClientMessage(ev xproto.ClientMessageEvent) {
	if !m.active() || ev.Type != m.atoms.TrayOpcode || ev.Format != 32 {
		return
	}
	data := ev.Data.Data32
	if len(data) < 5 {
		return
	}
	switch data[1] {
	case systemTrayRequestDock:
		win := xproto.Window(data[2])
		err := m.Dock(win)
		switch {
		case err == nil:
		case errors.Is(err, ErrAlreadyDocked):
			m.log.Debug("ignoring dock request for docked window", windowField(win))
		case errors.Is(err, ErrWindowGone):
			m.log.Debug("client vanished while docking", windowField(win))
		default:
			m.log.Warn("dock request failed", windowField(win), zap.Error(err))
		}
	case systemTrayBeginMessage:
		m.notify.BalloonMessage(BalloonMessage{
			Window:  ev.Window,
			Timeout: data[2],
			Length:  data[3],
			ID:      data[4],
		})
	case systemTrayCancelMessage:
		m.notify.CancelMessage(ev.Window, data[2])
	}
}

func (m *Manager) handleConfigureRequest(ev xproto.ConfigureRequestEvent) {
	if m.tracked(ev.Window) {
		m.log.Debug("overriding client configure request", windowField(ev.Window),
			zap.Uint16("width", ev.Width), zap.Uint16("height", ev.Height))
		m.enforceGeometry(ev.Window)
	}
}

func (m *Manager) handleResizeRequest(ev xproto.ResizeRequestEvent) {
	if m.tracked(ev.Window) {
		m.enforceGeometry(ev.Window)
	}
}

// handleMapRequest honors a client mapping itself under the host window.
func (m *Manager) handleMapRequest(ev xproto.MapRequestEvent) {
	if !m.tracked(ev.Window) {
		return
	}
	if err := m.disp.MapWindow(ev.Window); err != nil && !errors.Is(err, ErrWindowGone) {
		m.log.Debug("map client", windowField(ev.Window), zap.Error(err))
	}
}

func (m *Manager) handleSelectionClear(ev xproto.SelectionClearEvent) {
	if m.selection == nil || ev.Selection != m.atoms.TraySelection {
		return
	}
	if !m.selection.OnSelectionCleared(ev.Owner) {
		return
	}
	rival := m.selection.Rival()
	m.log.Warn("lost tray selection to another manager", windowField(rival))
	m.Deactivate(false)
	m.trackRival(rival)
}

func (m *Manager) handlePropertyNotify(ev xproto.PropertyNotifyEvent) {
	if ev.Atom == m.atoms.XEmbedInfo && m.tracked(ev.Window) {
		m.refreshXEmbedInfo(ev.Window)
	}
}

func (m *Manager) handleReparent(ev xproto.ReparentNotifyEvent) {
	m.mu.Lock()
	host := m.tray
	m.mu.Unlock()
	if ev.Parent == host || !m.tracked(ev.Window) {
		return
	}
	// The client left on its own; there is nobody left to talk to.
	m.log.Debug("client reparented away", windowField(ev.Window), windowField(ev.Parent))
	m.removeClient(ev.Window)
}

func (m *Manager) handleDestroy(ev xproto.DestroyNotifyEvent) {
	if m.selection != nil && m.Phase() == PhaseInactive && ev.Window == m.selection.Rival() {
		m.log.Info("other tray manager exited, taking over", windowField(ev.Window))
		m.ActivateDelayed(m.retryDelay)
		return
	}
	if m.tracked(ev.Window) {
		m.log.Debug("client destroyed", windowField(ev.Window))
		m.removeClient(ev.Window)
	}
}

func (m *Manager) handleMap(ev xproto.MapNotifyEvent) {
	if m.setClientMapped(ev.Window, true) {
		m.reconfigure()
	}
}

func (m *Manager) handleUnmap(ev xproto.UnmapNotifyEvent) {
	if m.setClientMapped(ev.Window, false) {
		m.reconfigure()
	}
}

func (m *Manager) setClientMapped(win xproto.Window, mapped bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseActive {
		return false
	}
	return m.clients.Update(win, func(c *Client) { c.Mapped = mapped })
}

func (m *Manager) removeClient(win xproto.Window) {
	m.mu.Lock()
	removed := m.clients.Remove(win)
	m.mu.Unlock()
	if removed {
		m.reconfigure()
	}
}

// setHidden records the user's request to show or hide the tray.
func (m *Manager) setHidden(hidden bool) {
	m.mu.Lock()
	changed := m.hidden != hidden
	m.hidden = hidden
	m.mu.Unlock()
	if changed {
		m.reconfigure()
	}
}

// setBarHidden follows the bar. A tray the user hid stays hidden when the
// bar comes back.
func (m *Manager) setBarHidden(hidden bool) {
	m.mu.Lock()
	changed := m.barHidden != hidden
	m.barHidden = hidden
	m.mu.Unlock()
	if changed {
		m.reconfigure()
	}
}

// applySettings swaps in reloaded configuration, keeping live state.
func (m *Manager) applySettings(s Settings) {
	m.mu.Lock()
	prev := m.opts
	m.opts = s.withLiveState(prev)
	m.mu.Unlock()

	if s.Position == PositionNone {
		m.Deactivate(true)
		return
	}
	if m.active() {
		if s.Orientation != prev.Orientation {
			m.setOrientation()
		}
		if s.Foreground != prev.Foreground {
			m.setTrayColors()
		}
		if s.Background != prev.Background {
			m.setBackground()
		}
		m.reconfigure()
	}
}
