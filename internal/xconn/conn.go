// Package xconn implements tray.Display on top of an X11 connection.
package xconn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"

	"github.com/bnema/xtraydock/internal/tray"
)

type Conn struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	num    int
	log    *zap.Logger
	close  sync.Once
}

// Dial connects to the named display, or $DISPLAY when name is empty.
func Dial(name string, log *zap.Logger) (*Conn, error) {
	var (
		conn *xgb.Conn
		err  error
	)
	if name == "" {
		conn, err = xgb.NewConn()
	} else {
		conn, err = xgb.NewConnDisplay(name)
	}
	if err != nil {
		return nil, fmt.Errorf("connect X11: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	setup := xproto.Setup(conn)
	return &Conn{
		conn:   conn,
		screen: setup.DefaultScreen(conn),
		num:    conn.DefaultScreen,
		log:    log.With(zap.String("component", "xconn")),
	}, nil
}

func (c *Conn) Close() {
	c.close.Do(c.conn.Close)
}

func (c *Conn) Root() xproto.Window {
	return c.screen.Root
}

func (c *Conn) Screen() int {
	return c.num
}

// Pump forwards X events to post in delivery order until ctx is done or the
// connection closes.
func (c *Conn) Pump(ctx context.Context, post func(any) bool) error {
	go func() {
		<-ctx.Done()
		c.Close()
	}()

	for {
		ev, err := c.conn.WaitForEvent()
		if ev == nil && err == nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.New("X11 connection closed")
		}
		if err != nil {
			// Errors of unchecked requests, mostly clients that went away.
			c.log.Debug("asynchronous X error", zap.String("error", err.Error()))
			continue
		}
		if !post(ev) {
			return ctx.Err()
		}
	}
}

func (c *Conn) InternAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, translate(err)
	}
	return reply.Atom, nil
}

func (c *Conn) CreateWindow(parent xproto.Window, x, y int16, width, height uint16, class uint16, mask uint32, values []uint32) (xproto.Window, error) {
	win, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("new window id: %w", err)
	}
	err = xproto.CreateWindowChecked(
		c.conn,
		0,
		win,
		parent,
		x, y, width, height,
		0,
		class,
		c.screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		return 0, translate(err)
	}
	return win, nil
}

func (c *Conn) DestroyWindow(win xproto.Window) error {
	return translate(xproto.DestroyWindowChecked(c.conn, win).Check())
}

func (c *Conn) ReparentWindow(win, parent xproto.Window, x, y int16) error {
	return translate(xproto.ReparentWindowChecked(c.conn, win, parent, x, y).Check())
}

func (c *Conn) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error {
	return translate(xproto.ConfigureWindowChecked(c.conn, win, mask, values).Check())
}

func (c *Conn) ChangeWindowAttributes(win xproto.Window, mask uint32, values []uint32) error {
	return translate(xproto.ChangeWindowAttributesChecked(c.conn, win, mask, values).Check())
}

func (c *Conn) ClearArea(win xproto.Window) error {
	return translate(xproto.ClearAreaChecked(c.conn, true, win, 0, 0, 0, 0).Check())
}

func (c *Conn) MapWindow(win xproto.Window) error {
	return translate(xproto.MapWindowChecked(c.conn, win).Check())
}

func (c *Conn) UnmapWindow(win xproto.Window) error {
	return translate(xproto.UnmapWindowChecked(c.conn, win).Check())
}

func (c *Conn) ChangeSaveSet(win xproto.Window, mode byte) error {
	return translate(xproto.ChangeSaveSetChecked(c.conn, mode, win).Check())
}

func (c *Conn) Geometry(win xproto.Window) (uint16, uint16, error) {
	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, translate(err)
	}
	return geom.Width, geom.Height, nil
}

func (c *Conn) GetProperty(win xproto.Window, prop, typ xproto.Atom) (*xproto.GetPropertyReply, error) {
	reply, err := xproto.GetProperty(c.conn, false, win, prop, typ, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, translate(err)
	}
	return reply, nil
}

func (c *Conn) ChangeProperty(win xproto.Window, prop, typ xproto.Atom, format byte, data []byte) error {
	n := uint32(len(data))
	if format > 8 {
		n /= uint32(format / 8)
	}
	return translate(xproto.ChangePropertyChecked(c.conn, xproto.PropModeReplace, win, prop, typ, format, n, data).Check())
}

func (c *Conn) SelectionOwner(selection xproto.Atom) (xproto.Window, error) {
	reply, err := xproto.GetSelectionOwner(c.conn, selection).Reply()
	if err != nil {
		return 0, translate(err)
	}
	return reply.Owner, nil
}

func (c *Conn) SetSelectionOwner(owner xproto.Window, selection xproto.Atom) error {
	return translate(xproto.SetSelectionOwnerChecked(c.conn, owner, selection, xproto.TimeCurrentTime).Check())
}

func (c *Conn) SendEvent(dest xproto.Window, mask uint32, ev xproto.ClientMessageEvent) error {
	return translate(xproto.SendEventChecked(c.conn, false, dest, mask, string(ev.Bytes())).Check())
}

// Sync flushes queued requests; jezek/xgb writes them asynchronously.
func (c *Conn) Sync() {
	c.conn.Sync()
}

// translate maps errors for windows that no longer exist to
// tray.ErrWindowGone.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var (
		winErr      xproto.WindowError
		drawableErr xproto.DrawableError
	)
	if errors.As(err, &winErr) || errors.As(err, &drawableErr) {
		return fmt.Errorf("%w: %s", tray.ErrWindowGone, err.Error())
	}
	return err
}

var _ tray.Display = (*Conn)(nil)
