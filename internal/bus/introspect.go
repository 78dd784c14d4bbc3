package bus

const introspectionXML = `<!DOCTYPE node PUBLIC "-//freedesktop//DTD D-Bus Object Introspection 1.0//EN"
"http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd">
<node>
  <interface name="org.xtraydock.Tray">
    <method name="SetBarVisible">
      <arg name="visible" type="b" direction="in"/>
    </method>
    <method name="Dim">
      <arg name="opacity" type="d" direction="in"/>
    </method>
    <method name="UpdateBackground"/>
    <method name="SetPosition">
      <arg name="x" type="i" direction="in"/>
    </method>
    <method name="SetTrayVisible">
      <arg name="visible" type="b" direction="in"/>
    </method>
    <signal name="Redraw"/>
    <signal name="VisibilityChanged">
      <arg name="visible" type="b"/>
    </signal>
    <signal name="BalloonMessage">
      <arg name="window" type="u"/>
      <arg name="timeout" type="u"/>
      <arg name="length" type="u"/>
      <arg name="id" type="u"/>
    </signal>
    <signal name="CancelMessage">
      <arg name="window" type="u"/>
      <arg name="id" type="u"/>
    </signal>
    <property name="Visible" type="b" access="read"/>
  </interface>
  <interface name="org.freedesktop.DBus.Properties">
    <method name="Get">
      <arg name="interface" type="s" direction="in"/>
      <arg name="prop" type="s" direction="in"/>
      <arg name="value" type="v" direction="out"/>
    </method>
    <method name="GetAll">
      <arg name="interface" type="s" direction="in"/>
      <arg name="props" type="a{sv}" direction="out"/>
    </method>
    <method name="Set">
      <arg name="interface" type="s" direction="in"/>
      <arg name="prop" type="s" direction="in"/>
      <arg name="value" type="v" direction="in"/>
    </method>
  </interface>
  <interface name="org.freedesktop.DBus.Introspectable">
    <method name="Introspect">
      <arg name="xml" type="s" direction="out"/>
    </method>
  </interface>
</node>
`
