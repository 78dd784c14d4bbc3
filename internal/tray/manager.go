package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

const (
	systemTrayRequestDock    = 0
	systemTrayBeginMessage   = 1
	systemTrayCancelMessage  = 2
	defaultQueueSize         = 256
	defaultReactivationDelay = time.Second
	rebroadcastDelay         = time.Second
)

type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

func timeAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

type Option func(*Manager)

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notify = n }
}

// WithReactivationDelay sets the delay used when a rival tray goes away.
func WithReactivationDelay(d time.Duration) Option {
	return func(m *Manager) { m.retryDelay = d }
}

// Manager owns the tray selection, the host window and the docked clients.
// All X events, bus signals and timer fires go through Post and are
// handled one at a time by Run.
type Manager struct {
	disp       Display
	log        *zap.Logger
	notify     Notifier
	selection  *SelectionOwner
	atoms      Atoms
	haveAtoms  bool
	retryDelay time.Duration
	after      afterFunc

	queue chan any
	done  chan struct{}
	once  sync.Once

	mu              sync.Mutex
	phase           Phase
	opts            Settings
	clients         *Registry
	tray            xproto.Window
	mapped          bool
	hidden          bool
	barHidden       bool
	timer           stopper
	timerGen        uint64
	firstActivation bool
}

func NewManager(d Display, settings Settings, options ...Option) *Manager {
	m := &Manager{
		disp:            d,
		log:             zap.NewNop(),
		notify:          nopNotifier{},
		retryDelay:      defaultReactivationDelay,
		after:           timeAfterFunc,
		queue:           make(chan any, defaultQueueSize),
		done:            make(chan struct{}),
		opts:            settings.withLiveState(Settings{}),
		clients:         NewRegistry(),
		firstActivation: true,
	}
	for _, opt := range options {
		opt(m)
	}
	m.log = m.log.With(zap.String("component", "tray"))
	return m
}

// Post queues an xproto event or a tray signal for Run. It returns false
// once Run has stopped.
func (m *Manager) Post(msg any) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.queue <- msg:
		return true
	case <-m.done:
		return false
	}
}

// Run processes queued messages in order until ctx is done, then tears the
// tray down.
func (m *Manager) Run(ctx context.Context) error {
	defer m.once.Do(func() { close(m.done) })
	for {
		select {
		case <-ctx.Done():
			m.Deactivate(true)
			return ctx.Err()
		case msg := <-m.queue:
			m.handle(msg)
		}
	}
}

func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Settings returns a snapshot of the current settings and live state.
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

// Clients returns the docked clients in dock order.
func (m *Manager) Clients() []Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients.All()
}

// Window returns the host window, or WindowNone while inactive.
func (m *Manager) Window() xproto.Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tray
}

func (m *Manager) queryAtoms() error {
	if m.haveAtoms {
		return nil
	}
	atoms, err := InternAtoms(m.disp)
	if err != nil {
		return err
	}
	m.atoms = atoms
	m.selection = NewSelectionOwner(m.disp, atoms.TraySelection, atoms.Manager)
	m.haveAtoms = true
	return nil
}

func (m *Manager) isTracked(win xproto.Window) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients.Contains(win)
}

func windowField(win xproto.Window) zap.Field {
	return zap.String("window", fmt.Sprintf("0x%x", uint32(win)))
}
