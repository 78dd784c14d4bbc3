package tray

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
)

type Atoms struct {
	TraySelection xproto.Atom
	TrayOpcode    xproto.Atom
	Manager       xproto.Atom
	Orientation   xproto.Atom
	Colors        xproto.Atom
	XEmbed        xproto.Atom
	XEmbedInfo    xproto.Atom
	NetWMName     xproto.Atom
	UTF8String    xproto.Atom
	WindowOpacity xproto.Atom
}

// selectionName is the display-scoped tray selection for a screen.
func selectionName(screen int) string {
	return fmt.Sprintf("_NET_SYSTEM_TRAY_S%d", screen)
}

func internAtom(d Display, name string) (xproto.Atom, error) {
	atom, err := d.InternAtom(name)
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}
	return atom, nil
}

func InternAtoms(d Display) (Atoms, error) {
	var atoms Atoms
	for _, entry := range []struct {
		name string
		dst  *xproto.Atom
	}{
		{selectionName(d.Screen()), &atoms.TraySelection},
		{"_NET_SYSTEM_TRAY_OPCODE", &atoms.TrayOpcode},
		{"MANAGER", &atoms.Manager},
		{"_NET_SYSTEM_TRAY_ORIENTATION", &atoms.Orientation},
		{"_NET_SYSTEM_TRAY_COLORS", &atoms.Colors},
		{"_XEMBED", &atoms.XEmbed},
		{"_XEMBED_INFO", &atoms.XEmbedInfo},
		{"_NET_WM_NAME", &atoms.NetWMName},
		{"UTF8_STRING", &atoms.UTF8String},
		{"_NET_WM_WINDOW_OPACITY", &atoms.WindowOpacity},
	} {
		atom, err := internAtom(d, entry.name)
		if err != nil {
			return Atoms{}, err
		}
		*entry.dst = atom
	}
	return atoms, nil
}
