package tray

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/jezek/xgb/xproto"
)

type Position int

const (
	PositionNone Position = iota
	PositionLeft
	PositionCenter
	PositionRight
	PositionModule
)

var positionNames = map[Position]string{
	PositionNone:   "none",
	PositionLeft:   "left",
	PositionCenter: "center",
	PositionRight:  "right",
	PositionModule: "module",
}

func (p Position) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("position(%d)", int(p))
}

func ParsePosition(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PositionNone, nil
	}
	for p, name := range positionNames {
		if name == s {
			return p, nil
		}
	}
	return PositionNone, fmt.Errorf("unknown tray position %q", s)
}

// Orientation values are the ones written to _NET_SYSTEM_TRAY_ORIENTATION.
type Orientation uint32

const (
	OrientationHorizontal Orientation = 0
	OrientationVertical   Orientation = 1
)

func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "horizontal":
		return OrientationHorizontal, nil
	case "vertical":
		return OrientationVertical, nil
	}
	return OrientationHorizontal, fmt.Errorf("unknown tray orientation %q", s)
}

type Point struct {
	X, Y int
}

type Size struct {
	Width, Height uint
}

type Settings struct {
	Position    Position
	Orientation Orientation

	// Pos is relative to the inner area of the bar. It is the top-left
	// corner for left-aligned and module trays, the top-center point for
	// centered trays and the top-right point for right-aligned ones.
	Pos    Point
	Offset Point

	Spacing    uint
	ClientSize Size
	Background color.RGBA
	Foreground color.RGBA

	Detached     bool
	DetachedSize Size

	BarWindow xproto.Window
	BarSize   Size

	// Live state, owned by the manager.
	Running          bool
	WinSize          Size
	NumMappedClients int
}

// withLiveState returns s carrying the live fields of cur.
func (s Settings) withLiveState(cur Settings) Settings {
	s.Running = cur.Running
	s.WinSize = cur.WinSize
	s.NumMappedClients = cur.NumMappedClients
	return s
}
