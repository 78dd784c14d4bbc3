package tray

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

const (
	trayWMName  = "xtraydock tray window"
	trayWMClass = "tray\x00xtraydock\x00"

	hostEventMask = xproto.EventMaskStructureNotify |
		xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskExposure |
		xproto.EventMaskVisibilityChange |
		xproto.EventMaskPropertyChange
)

func colorPixel(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func put32s(values ...uint32) []byte {
	data := make([]byte, len(values)*4)
	for idx, value := range values {
		xgb.Put32(data[idx*4:], value)
	}
	return data
}

func (m *Manager) createWindow() error {
	m.mu.Lock()
	opts := m.opts
	m.mu.Unlock()

	parent := m.disp.Root()
	if !opts.Detached && opts.BarWindow != xproto.WindowNone {
		parent = opts.BarWindow
	}

	// Start at the client size; the first reconfigure sets the real geometry.
	width, height := uint16(max(opts.ClientSize.Width, 1)), uint16(max(opts.ClientSize.Height, 1))
	x := HostX(opts, uint(width))
	y := HostY(opts, uint(height))

	win, err := m.disp.CreateWindow(
		parent,
		int16(x), int16(y), width, height,
		xproto.WindowClassInputOutput,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{colorPixel(opts.Background), 1, hostEventMask},
	)
	if err != nil {
		return fmt.Errorf("create tray window: %w", err)
	}

	m.mu.Lock()
	m.tray = win
	m.clients.SetHost(win)
	m.mu.Unlock()

	m.log.Debug("created tray window", windowField(win), windowField(parent))
	return nil
}

func (m *Manager) destroyWindow() {
	m.mu.Lock()
	win := m.tray
	m.tray = xproto.WindowNone
	m.mapped = false
	m.mu.Unlock()

	if win == xproto.WindowNone {
		return
	}
	if err := m.disp.DestroyWindow(win); err != nil && !errors.Is(err, ErrWindowGone) {
		m.log.Warn("destroy tray window", windowField(win), zap.Error(err))
	}
	m.disp.Sync()
}

func (m *Manager) setWMHints() {
	win := m.Window()
	props := []struct {
		prop, typ xproto.Atom
		value     string
	}{
		{xproto.AtomWmName, xproto.AtomString, trayWMName},
		{m.atoms.NetWMName, m.atoms.UTF8String, trayWMName},
		{xproto.AtomWmClass, xproto.AtomString, trayWMClass},
	}
	for _, p := range props {
		if err := m.disp.ChangeProperty(win, p.prop, p.typ, 8, []byte(p.value)); err != nil {
			m.log.Debug("set tray window hint", zap.Error(err))
		}
	}
}

func (m *Manager) setOrientation() {
	m.mu.Lock()
	orientation := m.opts.Orientation
	m.mu.Unlock()

	if err := m.disp.ChangeProperty(m.Window(), m.atoms.Orientation, xproto.AtomCardinal, 32, put32s(uint32(orientation))); err != nil {
		m.log.Debug("set tray orientation", zap.Error(err))
	}
}

// setTrayColors publishes the icon palette (normal, error, warning,
// success) as 16-bit channels. All four use the foreground color.
func (m *Manager) setTrayColors() {
	m.mu.Lock()
	fg := m.opts.Foreground
	m.mu.Unlock()

	r, g, b := uint32(fg.R)*0x101, uint32(fg.G)*0x101, uint32(fg.B)*0x101
	values := make([]uint32, 0, 12)
	for i := 0; i < 4; i++ {
		values = append(values, r, g, b)
	}
	if err := m.disp.ChangeProperty(m.Window(), m.atoms.Colors, xproto.AtomCardinal, 32, put32s(values...)); err != nil {
		m.log.Debug("set tray colors", zap.Error(err))
	}
}

// setBackground applies the configured background pixel and repaints the
// exposed host area with it.
func (m *Manager) setBackground() {
	m.mu.Lock()
	win := m.tray
	bg := m.opts.Background
	m.mu.Unlock()
	if win == xproto.WindowNone {
		return
	}
	if err := m.disp.ChangeWindowAttributes(win, xproto.CwBackPixel, []uint32{colorPixel(bg)}); err != nil {
		m.log.Debug("set tray background", zap.Error(err))
		return
	}
	if err := m.disp.ClearArea(win); err != nil {
		m.log.Debug("clear tray window", zap.Error(err))
	}
}

func (m *Manager) setOpacity(opacity float64) {
	win := m.Window()
	if win == xproto.WindowNone {
		return
	}
	opacity = min(max(opacity, 0), 1)
	value := uint32(opacity * float64(^uint32(0)))
	if err := m.disp.ChangeProperty(win, m.atoms.WindowOpacity, xproto.AtomCardinal, 32, put32s(value)); err != nil {
		m.log.Debug("set tray opacity", zap.Error(err))
	}
}

type placement struct {
	window xproto.Window
	origin Point
	size   Size
}

// reconfigure recomputes the layout, moves the host window and every mapped
// client, and updates host visibility.
func (m *Manager) reconfigure() {
	m.mu.Lock()
	if m.phase != PhaseActive {
		m.mu.Unlock()
		return
	}
	tray := m.tray
	opts := m.opts
	mapped := m.clients.MappedCount()
	layout := ComputeLayout(opts, mapped)

	places := make([]placement, 0, mapped)
	idx := 0
	for _, c := range m.clients.All() {
		if !c.Mapped {
			continue
		}
		places = append(places, placement{window: c.Window, origin: clientOrigin(opts, idx, c.Size), size: c.Size})
		idx++
	}

	m.opts.WinSize = layout.Size
	m.opts.NumMappedClients = mapped
	visible := mapped > 0 && !m.hidden && !m.barHidden
	changed := visible != m.mapped
	m.mapped = visible
	m.mu.Unlock()

	if layout.Size.Width > 0 && layout.Size.Height > 0 {
		err := m.disp.ConfigureWindow(tray,
			xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(int32(layout.X)), uint32(int32(layout.Y)), uint32(layout.Size.Width), uint32(layout.Size.Height)})
		if err != nil {
			m.log.Warn("configure tray window", zap.Error(err))
		}
	}
	for _, p := range places {
		m.placeClient(p)
	}
	if changed {
		m.setVisible(tray, visible)
	}
	m.notify.Redraw()
}

func (m *Manager) placeClient(p placement) {
	err := m.disp.ConfigureWindow(p.window,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(int32(p.origin.X)), uint32(int32(p.origin.Y)), uint32(p.size.Width), uint32(p.size.Height)})
	if err != nil && !errors.Is(err, ErrWindowGone) {
		m.log.Warn("configure client", windowField(p.window), zap.Error(err))
	}
}

// enforceGeometry puts a client back where the layout says it belongs.
func (m *Manager) enforceGeometry(win xproto.Window) {
	m.mu.Lock()
	c, ok := m.clients.Find(win)
	if !ok {
		m.mu.Unlock()
		return
	}
	idx, mapped := m.clients.MappedIndex(win)
	opts := m.opts
	m.mu.Unlock()

	if !mapped {
		if err := m.disp.ConfigureWindow(win, xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(c.Size.Width), uint32(c.Size.Height)}); err != nil && !errors.Is(err, ErrWindowGone) {
			m.log.Debug("resize client", windowField(win), zap.Error(err))
		}
		return
	}
	m.placeClient(placement{window: win, origin: clientOrigin(opts, idx, c.Size), size: c.Size})
}

func (m *Manager) setVisible(tray xproto.Window, visible bool) {
	var err error
	if visible {
		err = m.disp.MapWindow(tray)
	} else {
		err = m.disp.UnmapWindow(tray)
	}
	if err != nil {
		m.log.Warn("change tray visibility", zap.Bool("visible", visible), zap.Error(err))
	}
	m.log.Debug("tray visibility changed", zap.Bool("visible", visible))
	m.notify.VisibilityChanged(visible)
}
