// Package bus exposes the tray on the D-Bus session bus: control signals
// come in as method calls, redraw and visibility notifications go out as
// signals for the renderer.
package bus

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/jezek/xgb/xproto"

	"github.com/bnema/xtraydock/internal/tray"
)

const (
	ServiceName = "org.xtraydock.Tray"
	Interface   = "org.xtraydock.Tray"
	ObjectPath  = dbus.ObjectPath("/org/xtraydock/Tray")
)

// Poster receives the tray signals decoded from method calls.
type Poster interface {
	Post(msg any) bool
}

type Service struct {
	conn *dbus.Conn

	mu      sync.RWMutex
	poster  Poster
	visible bool
}

func NewService(conn *dbus.Conn) *Service {
	return &Service{conn: conn}
}

// Export claims the service name and publishes the object.
func (s *Service) Export() error {
	if s.conn == nil {
		return fmt.Errorf("dbus connection is nil")
	}
	reply, err := s.conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("dbus name not available: %s", ServiceName)
	}

	for _, iface := range []string{Interface, "org.freedesktop.DBus.Properties", "org.freedesktop.DBus.Introspectable"} {
		if err := s.conn.Export(s, ObjectPath, iface); err != nil {
			return fmt.Errorf("export %s: %w", iface, err)
		}
	}
	return nil
}

func (s *Service) Close() {
	if s.conn == nil {
		return
	}
	s.conn.ReleaseName(ServiceName)
}

func (s *Service) SetPoster(p Poster) {
	s.mu.Lock()
	s.poster = p
	s.mu.Unlock()
}

func (s *Service) post(msg any) *dbus.Error {
	s.mu.RLock()
	p := s.poster
	s.mu.RUnlock()
	if p == nil || !p.Post(msg) {
		return dbus.MakeFailedError(fmt.Errorf("tray is not running"))
	}
	return nil
}

func (s *Service) SetBarVisible(visible bool) *dbus.Error {
	return s.post(tray.VisibilityChange{Visible: visible})
}

func (s *Service) Dim(opacity float64) *dbus.Error {
	if opacity < 0 || opacity > 1 {
		return dbus.MakeFailedError(fmt.Errorf("opacity %v out of range [0, 1]", opacity))
	}
	return s.post(tray.DimWindow{Opacity: opacity})
}

func (s *Service) UpdateBackground() *dbus.Error {
	return s.post(tray.UpdateBackground{})
}

func (s *Service) SetPosition(x int32) *dbus.Error {
	return s.post(tray.TrayPosChange{X: int(x)})
}

func (s *Service) SetTrayVisible(visible bool) *dbus.Error {
	return s.post(tray.TrayVisibility{Visible: visible})
}

func (s *Service) emit(name string, values ...any) {
	if s.conn == nil {
		return
	}
	_ = s.conn.Emit(ObjectPath, Interface+"."+name, values...)
}

func (s *Service) Redraw() {
	s.emit("Redraw")
}

func (s *Service) VisibilityChanged(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
	s.emit("VisibilityChanged", visible)
}

func (s *Service) BalloonMessage(msg tray.BalloonMessage) {
	s.emit("BalloonMessage", uint32(msg.Window), msg.Timeout, msg.Length, msg.ID)
}

func (s *Service) CancelMessage(win xproto.Window, id uint32) {
	s.emit("CancelMessage", uint32(win), id)
}

func (s *Service) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	if iface != Interface {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
	}
	if prop != "Visible" {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property: %s", prop))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dbus.MakeVariant(s.visible), nil
}

func (s *Service) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	return dbus.MakeFailedError(fmt.Errorf("property %s is read-only", prop))
}

func (s *Service) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != Interface {
		return nil, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]dbus.Variant{
		"Visible": dbus.MakeVariant(s.visible),
	}, nil
}

func (s *Service) Introspect() (string, *dbus.Error) {
	return introspectionXML, nil
}

var _ tray.Notifier = (*Service)(nil)
