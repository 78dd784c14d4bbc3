package tray

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

const (
	xembedEmbeddedNotify = 0
	xembedVersion        = 0
	xembedMapped         = 1
)

// Dock embeds win into the host window. ErrWindowGone means the client
// exited mid-handshake and nothing was registered.
func (m *Manager) Dock(win xproto.Window) error {
	m.mu.Lock()
	phase := m.phase
	host := m.tray
	known := win == host || m.clients.Contains(win)
	opts := m.opts
	m.mu.Unlock()

	if phase != PhaseActive {
		return ErrNotActive
	}
	if known {
		return ErrAlreadyDocked
	}
	if !m.selection.Owned() {
		return ErrNotOwner
	}

	version, flags, hasInfo := m.readXEmbedInfo(win)
	width, height, err := m.disp.Geometry(win)
	if err != nil {
		return fmt.Errorf("client geometry: %w", err)
	}
	size := clampSize(Size{Width: uint(width), Height: uint(height)}, opts.ClientSize)

	if err := m.disp.ReparentWindow(win, host, 0, 0); err != nil {
		return fmt.Errorf("reparent client: %w", err)
	}
	if err := m.embed(win, host, size, version); err != nil {
		// Hand the window back; it is inside the host but not tracked.
		if !errors.Is(err, ErrWindowGone) {
			m.unembed(Client{Window: win})
		}
		return err
	}

	client := Client{
		Window:        win,
		Size:          size,
		XEmbedVersion: version,
		XEmbedFlags:   flags,
		Title:         m.clientTitle(win),
	}
	m.mu.Lock()
	m.clients.Add(client)
	m.mu.Unlock()

	if !hasInfo || flags&xembedMapped != 0 {
		if err := m.disp.MapWindow(win); err != nil {
			m.log.Debug("map client", windowField(win), zap.Error(err))
		}
	}
	m.log.Info("client docked", windowField(win), zap.String("title", client.Title),
		zap.Uint("width", size.Width), zap.Uint("height", size.Height))

	m.reconfigure()
	return nil
}

// embed finishes the handshake for a window already reparented into host.
func (m *Manager) embed(win, host xproto.Window, size Size, version uint32) error {
	if err := m.disp.ConfigureWindow(win, xproto.ConfigWindowWidth|xproto.ConfigWindowHeight, []uint32{uint32(size.Width), uint32(size.Height)}); err != nil {
		return fmt.Errorf("resize client: %w", err)
	}
	if err := m.disp.ChangeWindowAttributes(win, xproto.CwEventMask, []uint32{xproto.EventMaskStructureNotify | xproto.EventMaskPropertyChange}); err != nil {
		return fmt.Errorf("select client events: %w", err)
	}
	if err := m.disp.ChangeSaveSet(win, xproto.SetModeInsert); err != nil {
		return fmt.Errorf("change save set: %w", err)
	}
	return m.sendXEmbedNotify(win, host, version)
}

// clampSize keeps the client's preferred size within the slot size. An
// empty preference takes the whole slot.
func clampSize(preferred, limit Size) Size {
	if preferred.Width == 0 || preferred.Width > limit.Width {
		preferred.Width = limit.Width
	}
	if preferred.Height == 0 || preferred.Height > limit.Height {
		preferred.Height = limit.Height
	}
	return preferred
}

// unembed hands a client back to the root window. The client may already
// be gone, so failures are ignored.
func (m *Manager) unembed(c Client) {
	root := m.disp.Root()
	_ = m.disp.UnmapWindow(c.Window)
	_ = m.disp.ReparentWindow(c.Window, root, 0, 0)
	_ = m.disp.ChangeSaveSet(c.Window, xproto.SetModeDelete)
	m.log.Debug("client released", windowField(c.Window))
}

func (m *Manager) sendXEmbedNotify(win, host xproto.Window, version uint32) error {
	data := xproto.ClientMessageDataUnionData32New([]uint32{
		uint32(xproto.TimeCurrentTime),
		xembedEmbeddedNotify,
		0,
		uint32(host),
		min(version, xembedVersion),
	})
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   m.atoms.XEmbed,
		Data:   data,
	}
	if err := m.disp.SendEvent(win, xproto.EventMaskNoEvent, ev); err != nil {
		return fmt.Errorf("xembed notify: %w", err)
	}
	return nil
}

// readXEmbedInfo returns the version and flags of _XEMBED_INFO and whether
// the client set the property at all.
func (m *Manager) readXEmbedInfo(win xproto.Window) (version, flags uint32, ok bool) {
	reply, err := m.disp.GetProperty(win, m.atoms.XEmbedInfo, m.atoms.XEmbedInfo)
	if err != nil {
		if !errors.Is(err, ErrWindowGone) {
			m.log.Debug("read xembed info", windowField(win), zap.Error(err))
		}
		return 0, 0, false
	}
	if reply == nil || reply.Format != 32 || len(reply.Value) < 8 {
		return 0, 0, false
	}
	return xgb.Get32(reply.Value), xgb.Get32(reply.Value[4:]), true
}

// refreshXEmbedInfo re-reads _XEMBED_INFO and maps or unmaps the client to
// follow its XEMBED_MAPPED flag.
func (m *Manager) refreshXEmbedInfo(win xproto.Window) {
	_, flags, ok := m.readXEmbedInfo(win)
	if !ok {
		return
	}

	var mapped bool
	m.mu.Lock()
	known := m.clients.Update(win, func(c *Client) {
		c.XEmbedFlags = flags
		mapped = c.Mapped
	})
	m.mu.Unlock()
	if !known {
		return
	}

	want := flags&xembedMapped != 0
	var err error
	switch {
	case want && !mapped:
		err = m.disp.MapWindow(win)
	case !want && mapped:
		err = m.disp.UnmapWindow(win)
	}
	if err != nil && !errors.Is(err, ErrWindowGone) {
		m.log.Debug("apply xembed mapped flag", windowField(win), zap.Error(err))
	}
}

// clientTitle prefers _NET_WM_NAME over WM_NAME and falls back to the
// window id.
func (m *Manager) clientTitle(win xproto.Window) string {
	if title := m.stringProperty(win, m.atoms.NetWMName, m.atoms.UTF8String); title != "" {
		return title
	}
	if title := m.stringProperty(win, xproto.AtomWmName, xproto.AtomString); title != "" {
		return title
	}
	return fmt.Sprintf("xembed-%d", win)
}

func (m *Manager) stringProperty(win xproto.Window, prop, typ xproto.Atom) string {
	reply, err := m.disp.GetProperty(win, prop, typ)
	if err != nil || reply == nil {
		return ""
	}
	return string(reply.Value)
}
