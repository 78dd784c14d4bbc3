package tray

import (
	"fmt"
	"sync"

	"github.com/jezek/xgb/xproto"
)

type SelectionState int

const (
	SelectionNone SelectionState = iota
	SelectionSelf
	SelectionOther
)

func (s SelectionState) String() string {
	switch s {
	case SelectionSelf:
		return "self"
	case SelectionOther:
		return "other"
	}
	return "none"
}

// SelectionOwner arbitrates the tray selection for one manager window.
type SelectionOwner struct {
	disp      Display
	selection xproto.Atom
	manager   xproto.Atom

	mu     sync.Mutex
	state  SelectionState
	window xproto.Window
	rival  xproto.Window
}

func NewSelectionOwner(d Display, selection, manager xproto.Atom) *SelectionOwner {
	return &SelectionOwner{
		disp:      d,
		selection: selection,
		manager:   manager,
	}
}

// Acquire tries to make win the selection owner. A false result with a nil
// error means another tray holds the selection; Rival reports its window.
func (s *SelectionOwner) Acquire(win xproto.Window) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.disp.SelectionOwner(s.selection)
	if err != nil {
		return false, fmt.Errorf("get selection owner: %w", err)
	}
	if owner != xproto.WindowNone && owner != win {
		s.state = SelectionOther
		s.rival = owner
		return false, nil
	}

	if err := s.disp.SetSelectionOwner(win, s.selection); err != nil {
		return false, fmt.Errorf("set selection owner: %w", err)
	}
	// The server silently ignores the request if someone else won the race.
	owner, err = s.disp.SelectionOwner(s.selection)
	if err != nil {
		return false, fmt.Errorf("get selection owner: %w", err)
	}
	if owner != win {
		s.state = SelectionOther
		s.rival = owner
		return false, nil
	}

	s.state = SelectionSelf
	s.window = win
	s.rival = xproto.WindowNone

	if err := broadcastManager(s.disp, s.disp.Root(), s.manager, s.selection, win); err != nil {
		return true, err
	}
	return true, nil
}

// Release gives up the selection if we hold it.
func (s *SelectionOwner) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SelectionSelf {
		return nil
	}
	s.state = SelectionNone
	s.window = xproto.WindowNone
	if err := s.disp.SetSelectionOwner(xproto.WindowNone, s.selection); err != nil {
		return fmt.Errorf("release selection: %w", err)
	}
	return nil
}

// OnSelectionCleared handles a SelectionClear for prev and reports whether
// we just lost the selection.
func (s *SelectionOwner) OnSelectionCleared(prev xproto.Window) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SelectionSelf || prev != s.window {
		return false
	}
	s.state = SelectionOther
	s.window = xproto.WindowNone
	if owner, err := s.disp.SelectionOwner(s.selection); err == nil {
		s.rival = owner
	}
	return true
}

// Announce repeats the MANAGER broadcast while we own the selection.
func (s *SelectionOwner) Announce() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SelectionSelf {
		return nil
	}
	return broadcastManager(s.disp, s.disp.Root(), s.manager, s.selection, s.window)
}

func (s *SelectionOwner) State() SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SelectionOwner) Owned() bool {
	return s.State() == SelectionSelf
}

func (s *SelectionOwner) Rival() xproto.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rival
}

func broadcastManager(d Display, root xproto.Window, managerAtom xproto.Atom, trayAtom xproto.Atom, managerWin xproto.Window) error {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: root,
		Type:   managerAtom,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(xproto.TimeCurrentTime),
			uint32(trayAtom),
			uint32(managerWin),
			0,
			0,
		}),
	}
	if err := d.SendEvent(root, xproto.EventMaskStructureNotify, ev); err != nil {
		return fmt.Errorf("broadcast manager: %w", err)
	}
	return nil
}
