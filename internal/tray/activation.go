package tray

import (
	"errors"
	"time"

	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

type Phase int

const (
	PhaseInactive Phase = iota
	PhasePendingActivation
	PhaseActive
	PhaseDeactivating
)

func (p Phase) String() string {
	switch p {
	case PhasePendingActivation:
		return "pending"
	case PhaseActive:
		return "active"
	case PhaseDeactivating:
		return "deactivating"
	}
	return "inactive"
}

// ActivateDelayed arms the activation timer. Calling it again restarts the
// timer instead of stacking another activation.
func (m *Manager) ActivateDelayed(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseActive || m.phase == PhaseDeactivating {
		return
	}
	m.cancelTimerLocked()
	m.phase = PhasePendingActivation
	gen := m.timerGen
	m.timer = m.after(d, func() {
		m.Post(activationDue{gen: gen})
	})
	m.log.Debug("activation scheduled", zap.Duration("delay", d))
}

// cancelTimerLocked stops the pending timer and invalidates any fire that
// is already queued.
func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

func (m *Manager) handleActivationDue(due activationDue) {
	m.mu.Lock()
	stale := due.gen != m.timerGen || m.phase != PhasePendingActivation
	if !stale {
		m.timer = nil
	}
	m.mu.Unlock()
	if stale {
		return
	}
	m.Activate()
}

// Activate creates the host window and claims the tray selection. Failing
// to get the selection leaves the manager inactive.
func (m *Manager) Activate() {
	m.mu.Lock()
	if m.phase == PhaseActive || m.phase == PhaseDeactivating {
		m.mu.Unlock()
		return
	}
	if m.opts.Position == PositionNone {
		m.phase = PhaseInactive
		m.mu.Unlock()
		m.log.Debug("tray disabled, not activating")
		return
	}
	m.cancelTimerLocked()
	m.phase = PhasePendingActivation
	first := m.firstActivation
	m.firstActivation = false
	m.mu.Unlock()

	m.log.Info("activating tray manager")

	if err := m.queryAtoms(); err != nil {
		m.abortActivation(err)
		return
	}
	if err := m.createWindow(); err != nil {
		m.abortActivation(err)
		return
	}
	m.setWMHints()
	m.setOrientation()
	m.setTrayColors()

	ok, err := m.selection.Acquire(m.Window())
	if err != nil && !ok {
		m.destroyWindow()
		m.abortActivation(err)
		return
	}
	if err != nil {
		m.log.Warn("manager broadcast failed", zap.Error(err))
	}
	if !ok {
		rival := m.selection.Rival()
		if first {
			m.log.Warn("another tray manager owns the selection", windowField(rival))
		} else {
			m.log.Debug("tray selection still owned by another manager", windowField(rival))
		}
		m.destroyWindow()
		m.setPhase(PhaseInactive)
		m.trackRival(rival)
		return
	}

	m.mu.Lock()
	m.phase = PhaseActive
	m.opts.Running = true
	// Clients that started while we were acquiring may have missed the
	// first broadcast.
	gen := m.timerGen
	m.timer = m.after(rebroadcastDelay, func() {
		m.Post(rebroadcastDue{gen: gen})
	})
	m.mu.Unlock()

	m.log.Info("acquired tray selection", windowField(m.Window()))
	m.reconfigure()
}

func (m *Manager) handleRebroadcastDue(due rebroadcastDue) {
	m.mu.Lock()
	stale := due.gen != m.timerGen || m.phase != PhaseActive
	if !stale {
		m.timer = nil
	}
	m.mu.Unlock()
	if stale {
		return
	}
	if err := m.selection.Announce(); err != nil {
		m.log.Debug("repeat manager broadcast", zap.Error(err))
	}
}

func (m *Manager) abortActivation(err error) {
	m.log.Error("tray activation failed", zap.Error(err))
	m.setPhase(PhaseInactive)
}

func (m *Manager) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// Deactivate tears the tray down: unembeds every client, destroys the host
// window and optionally releases the selection.
func (m *Manager) Deactivate(clearSelection bool) {
	m.mu.Lock()
	switch m.phase {
	case PhaseInactive, PhaseDeactivating:
		m.mu.Unlock()
		return
	case PhasePendingActivation:
		m.cancelTimerLocked()
		m.phase = PhaseInactive
		m.mu.Unlock()
		return
	}
	m.phase = PhaseDeactivating
	m.cancelTimerLocked()
	clients := m.clients.Drain()
	wasMapped := m.mapped
	m.mapped = false
	m.mu.Unlock()

	m.log.Info("deactivating tray manager", zap.Int("clients", len(clients)))

	if clearSelection && m.selection != nil {
		if err := m.selection.Release(); err != nil {
			m.log.Warn("release tray selection", zap.Error(err))
		}
	}
	for _, c := range clients {
		m.unembed(c)
	}
	m.destroyWindow()

	m.mu.Lock()
	m.opts.Running = false
	m.opts.WinSize = Size{}
	m.opts.NumMappedClients = 0
	m.phase = PhaseInactive
	m.mu.Unlock()

	if wasMapped {
		m.notify.VisibilityChanged(false)
	}
	m.notify.Redraw()
}

// trackRival watches the foreign selection owner so we can take over once
// it exits. An owner that is already gone re-arms activation right away.
func (m *Manager) trackRival(rival xproto.Window) {
	if rival == xproto.WindowNone {
		m.ActivateDelayed(m.retryDelay)
		return
	}
	err := m.disp.ChangeWindowAttributes(rival, xproto.CwEventMask, []uint32{xproto.EventMaskStructureNotify})
	if errors.Is(err, ErrWindowGone) {
		m.ActivateDelayed(m.retryDelay)
		return
	}
	if err != nil {
		m.log.Debug("track selection owner", windowField(rival), zap.Error(err))
	}
}
