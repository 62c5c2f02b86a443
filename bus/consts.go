package bus

// Standard D-Bus interface and method names
const (
	DBUS_INTERFACE = "org.freedesktop.DBus"

	BUS_GET_NAME_OWNER = DBUS_INTERFACE + ".GetNameOwner"

	DBUS_PROP_IFACE = DBUS_INTERFACE + ".Properties"
	DBUS_PEER_IFACE = DBUS_INTERFACE + ".Peer"
	INTROSPECTABLE  = DBUS_INTERFACE + ".Introspectable"

	PROP_GET     = DBUS_PROP_IFACE + ".Get"
	PROP_SET     = DBUS_PROP_IFACE + ".Set"
	PROP_GET_ALL = DBUS_PROP_IFACE + ".GetAll"

	ERR_UNKNOWN_PROPERTY  = DBUS_INTERFACE + ".Error.UnknownProperty"
	ERR_UNKNOWN_INTERFACE = DBUS_INTERFACE + ".Error.UnknownInterface"
	ERR_READ_ONLY         = DBUS_INTERFACE + ".Error.PropertyReadOnly"
)
