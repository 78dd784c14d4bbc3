package tray

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

type fakeWindow struct {
	parent        xproto.Window
	x, y          int
	width, height uint16
	mapped        bool
	eventMask     uint32
	backPixel     uint32
	clears        int
	saveSet       bool
	props         map[xproto.Atom][]byte
}

type sentEvent struct {
	dest xproto.Window
	mask uint32
	ev   xproto.ClientMessageEvent
}

// fakeDisplay is an in-memory X server good enough for the tray protocol.
// Several managers may share one to simulate competing trays.
type fakeDisplay struct {
	mu         sync.Mutex
	root       xproto.Window
	next       xproto.Window
	atoms      map[string]xproto.Atom
	windows    map[xproto.Window]*fakeWindow
	owners     map[xproto.Atom]xproto.Window
	sent       []sentEvent
	failCreate bool
	creates    int
	// vanishOn destroys the window right before the named operation runs.
	vanishOn map[string]xproto.Window
}

func newFakeDisplay() *fakeDisplay {
	d := &fakeDisplay{
		root:     0x100,
		next:     0x400000,
		atoms:    make(map[string]xproto.Atom),
		windows:  make(map[xproto.Window]*fakeWindow),
		owners:   make(map[xproto.Atom]xproto.Window),
		vanishOn: make(map[string]xproto.Window),
	}
	d.windows[d.root] = &fakeWindow{width: 1920, height: 1080, mapped: true, props: map[xproto.Atom][]byte{}}
	return d
}

// addClient creates a top-level client window as an application would.
func (d *fakeDisplay) addClient(width, height uint16) xproto.Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	win := d.next
	d.windows[win] = &fakeWindow{parent: d.root, width: width, height: height, props: map[xproto.Atom][]byte{}}
	return win
}

func (d *fakeDisplay) destroy(win xproto.Window) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.windows, win)
}

func (d *fakeDisplay) window(win xproto.Window) (fakeWindow, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[win]
	if !ok {
		return fakeWindow{}, false
	}
	return *w, true
}

func (d *fakeDisplay) atom(name string) xproto.Atom {
	a, _ := d.InternAtom(name)
	return a
}

func (d *fakeDisplay) setXEmbedInfo(win xproto.Window, version, flags uint32) {
	data := make([]byte, 8)
	xgb.Put32(data, version)
	xgb.Put32(data[4:], flags)
	_ = d.ChangeProperty(win, d.atom("_XEMBED_INFO"), d.atom("_XEMBED_INFO"), 32, data)
}

func (d *fakeDisplay) sentOfType(typ xproto.Atom) []sentEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []sentEvent
	for _, s := range d.sent {
		if s.ev.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

// lookup must be called with d.mu held.
func (d *fakeDisplay) lookup(op string, win xproto.Window) (*fakeWindow, error) {
	if victim, ok := d.vanishOn[op]; ok && victim == win {
		delete(d.vanishOn, op)
		delete(d.windows, win)
	}
	w, ok := d.windows[win]
	if !ok {
		return nil, fmt.Errorf("%w: %s 0x%x", ErrWindowGone, op, uint32(win))
	}
	return w, nil
}

func (d *fakeDisplay) Root() xproto.Window { return d.root }

func (d *fakeDisplay) Screen() int { return 0 }

func (d *fakeDisplay) InternAtom(name string) (xproto.Atom, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.atoms[name]; ok {
		return a, nil
	}
	a := xproto.Atom(100 + len(d.atoms))
	d.atoms[name] = a
	return a, nil
}

func (d *fakeDisplay) CreateWindow(parent xproto.Window, x, y int16, width, height uint16, class uint16, mask uint32, values []uint32) (xproto.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creates++
	if d.failCreate {
		return 0, errors.New("BadAlloc")
	}
	if _, err := d.lookup("create", parent); err != nil {
		return 0, err
	}
	d.next++
	win := d.next
	fw := &fakeWindow{parent: parent, x: int(x), y: int(y), width: width, height: height, props: map[xproto.Atom][]byte{}}
	for i, bit := 0, uint32(1); bit <= xproto.CwCursor; bit <<= 1 {
		if mask&bit == 0 {
			continue
		}
		switch bit {
		case xproto.CwBackPixel:
			fw.backPixel = values[i]
		case xproto.CwEventMask:
			fw.eventMask = values[i]
		}
		i++
	}
	d.windows[win] = fw
	return win, nil
}

func (d *fakeDisplay) DestroyWindow(win xproto.Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.lookup("destroy", win); err != nil {
		return err
	}
	delete(d.windows, win)
	for child, w := range d.windows {
		if w.parent == win {
			if w.saveSet {
				w.parent = d.root
			} else {
				delete(d.windows, child)
			}
		}
	}
	for sel, owner := range d.owners {
		if owner == win {
			delete(d.owners, sel)
		}
	}
	return nil
}

func (d *fakeDisplay) ReparentWindow(win, parent xproto.Window, x, y int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("reparent", win)
	if err != nil {
		return err
	}
	if _, err := d.lookup("reparent", parent); err != nil {
		return err
	}
	w.parent, w.x, w.y = parent, int(x), int(y)
	return nil
}

func (d *fakeDisplay) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("configure", win)
	if err != nil {
		return err
	}
	i := 0
	if mask&xproto.ConfigWindowX != 0 {
		w.x = int(int32(values[i]))
		i++
	}
	if mask&xproto.ConfigWindowY != 0 {
		w.y = int(int32(values[i]))
		i++
	}
	if mask&xproto.ConfigWindowWidth != 0 {
		w.width = uint16(values[i])
		i++
	}
	if mask&xproto.ConfigWindowHeight != 0 {
		w.height = uint16(values[i])
	}
	return nil
}

func (d *fakeDisplay) ChangeWindowAttributes(win xproto.Window, mask uint32, values []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("attributes", win)
	if err != nil {
		return err
	}
	switch {
	case mask == xproto.CwEventMask && len(values) == 1:
		w.eventMask = values[0]
	case mask == xproto.CwBackPixel && len(values) == 1:
		w.backPixel = values[0]
	}
	return nil
}

func (d *fakeDisplay) ClearArea(win xproto.Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("clear", win)
	if err != nil {
		return err
	}
	w.clears++
	return nil
}

func (d *fakeDisplay) MapWindow(win xproto.Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("map", win)
	if err != nil {
		return err
	}
	w.mapped = true
	return nil
}

func (d *fakeDisplay) UnmapWindow(win xproto.Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("unmap", win)
	if err != nil {
		return err
	}
	w.mapped = false
	return nil
}

func (d *fakeDisplay) ChangeSaveSet(win xproto.Window, mode byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("saveset", win)
	if err != nil {
		return err
	}
	w.saveSet = mode == xproto.SetModeInsert
	return nil
}

func (d *fakeDisplay) Geometry(win xproto.Window) (uint16, uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("geometry", win)
	if err != nil {
		return 0, 0, err
	}
	return w.width, w.height, nil
}

func (d *fakeDisplay) GetProperty(win xproto.Window, prop, typ xproto.Atom) (*xproto.GetPropertyReply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("getprop", win)
	if err != nil {
		return nil, err
	}
	data, ok := w.props[prop]
	if !ok {
		return &xproto.GetPropertyReply{}, nil
	}
	return &xproto.GetPropertyReply{Format: 32, Type: typ, ValueLen: uint32(len(data) / 4), Value: data}, nil
}

func (d *fakeDisplay) ChangeProperty(win xproto.Window, prop, typ xproto.Atom, format byte, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup("setprop", win)
	if err != nil {
		return err
	}
	w.props[prop] = append([]byte(nil), data...)
	return nil
}

func (d *fakeDisplay) SelectionOwner(selection xproto.Atom) (xproto.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owners[selection], nil
}

func (d *fakeDisplay) SetSelectionOwner(owner xproto.Window, selection xproto.Atom) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if owner == xproto.WindowNone {
		delete(d.owners, selection)
		return nil
	}
	if _, err := d.lookup("selection", owner); err != nil {
		return err
	}
	d.owners[selection] = owner
	return nil
}

func (d *fakeDisplay) SendEvent(dest xproto.Window, mask uint32, ev xproto.ClientMessageEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.lookup("send", dest); err != nil {
		return err
	}
	d.sent = append(d.sent, sentEvent{dest: dest, mask: mask, ev: ev})
	return nil
}

func (d *fakeDisplay) Sync() {}

var _ Display = (*fakeDisplay)(nil)
