package tray

import (
	"github.com/jezek/xgb/xproto"
)

type Client struct {
	Window        xproto.Window
	Mapped        bool
	Size          Size
	XEmbedVersion uint32
	XEmbedFlags   uint32
	Title         string
}

// Registry holds docked clients in dock order. It is not safe for
// concurrent use; the manager guards it.
type Registry struct {
	host    xproto.Window
	clients []Client
}

func NewRegistry() *Registry {
	return &Registry{}
}

// SetHost records the host window handle, which can never be registered.
func (r *Registry) SetHost(host xproto.Window) {
	r.host = host
}

func (r *Registry) index(win xproto.Window) int {
	for i := range r.clients {
		if r.clients[i].Window == win {
			return i
		}
	}
	return -1
}

// Add appends c and reports whether it was inserted.
func (r *Registry) Add(c Client) bool {
	if c.Window == xproto.WindowNone || c.Window == r.host || r.index(c.Window) >= 0 {
		return false
	}
	r.clients = append(r.clients, c)
	return true
}

func (r *Registry) Find(win xproto.Window) (Client, bool) {
	i := r.index(win)
	if i < 0 {
		return Client{}, false
	}
	return r.clients[i], true
}

func (r *Registry) Contains(win xproto.Window) bool {
	return r.index(win) >= 0
}

// Update applies fn to the entry for win, if any.
func (r *Registry) Update(win xproto.Window, fn func(*Client)) bool {
	i := r.index(win)
	if i < 0 {
		return false
	}
	fn(&r.clients[i])
	return true
}

func (r *Registry) Remove(win xproto.Window) bool {
	i := r.index(win)
	if i < 0 {
		return false
	}
	r.clients = append(r.clients[:i], r.clients[i+1:]...)
	return true
}

func (r *Registry) Len() int {
	return len(r.clients)
}

func (r *Registry) MappedCount() int {
	n := 0
	for _, c := range r.clients {
		if c.Mapped {
			n++
		}
	}
	return n
}

// MappedIndex returns the slot index of win among mapped clients.
func (r *Registry) MappedIndex(win xproto.Window) (int, bool) {
	n := 0
	for _, c := range r.clients {
		if c.Window == win {
			return n, c.Mapped
		}
		if c.Mapped {
			n++
		}
	}
	return 0, false
}

// All returns a copy of the registered clients in dock order.
func (r *Registry) All() []Client {
	out := make([]Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// Drain empties the registry and returns what it held.
func (r *Registry) Drain() []Client {
	out := r.clients
	r.clients = nil
	return out
}
