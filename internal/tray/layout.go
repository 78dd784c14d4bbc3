package tray

// Layout is the host window geometry relative to the bar window (or the
// root window for detached trays).
type Layout struct {
	X, Y int
	Size Size
}

// HostSize returns the host window size for the given number of mapped
// clients. No mapped clients collapses the host to zero.
func HostSize(s Settings, mapped int) Size {
	if mapped <= 0 {
		return Size{}
	}
	if s.Detached && s.DetachedSize.Width > 0 && s.DetachedSize.Height > 0 {
		return s.DetachedSize
	}
	n := uint(mapped)
	if s.Orientation == OrientationVertical {
		return Size{
			Width:  s.ClientSize.Width,
			Height: n*s.ClientSize.Height + (n-1)*s.Spacing,
		}
	}
	return Size{
		Width:  n*s.ClientSize.Width + (n-1)*s.Spacing,
		Height: s.ClientSize.Height,
	}
}

func HostX(s Settings, width uint) int {
	x := s.Pos.X + s.Offset.X
	switch s.Position {
	case PositionCenter:
		x -= int(width / 2)
	case PositionRight:
		x -= int(width)
	}
	return x
}

func HostY(s Settings, height uint) int {
	y := s.Pos.Y + s.Offset.Y
	if !s.Detached && s.BarSize.Height > height {
		y += int(s.BarSize.Height-height) / 2
	}
	return y
}

// ClientSlot is the origin of the index-th mapped client inside the host.
func ClientSlot(s Settings, index int) Point {
	if s.Orientation == OrientationVertical {
		return Point{Y: index * int(s.ClientSize.Height+s.Spacing)}
	}
	return Point{X: index * int(s.ClientSize.Width+s.Spacing)}
}

func ComputeLayout(s Settings, mapped int) Layout {
	size := HostSize(s, mapped)
	return Layout{
		X:    HostX(s, size.Width),
		Y:    HostY(s, size.Height),
		Size: size,
	}
}

// clientOrigin centers a client of the given size inside its slot.
func clientOrigin(s Settings, index int, size Size) Point {
	p := ClientSlot(s, index)
	if size.Width < s.ClientSize.Width {
		p.X += int(s.ClientSize.Width-size.Width) / 2
	}
	if size.Height < s.ClientSize.Height {
		p.Y += int(s.ClientSize.Height-size.Height) / 2
	}
	return p
}
