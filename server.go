package notify

import (
	"sort"

	"github.com/godbus/dbus/v5"
)

// Optional capabilities a server may report from GetCapabilities.
const (
	CapabilityActionIcons    = "action-icons"
	CapabilityActions        = "actions"
	CapabilityBody           = "body"
	CapabilityBodyHyperlinks = "body-hyperlinks"
	CapabilityBodyImages     = "body-images"
	CapabilityBodyMarkup     = "body-markup"
	CapabilityIconMulti      = "icon-multi"
	CapabilityIconStatic     = "icon-static"
	CapabilityPersistence    = "persistence"
	CapabilitySound          = "sound"
)

// Capabilities is the set of capabilities reported by the server.
// Vendor specific capabilities start with "x-".
type Capabilities map[string]struct{}

// NewCapabilities returns the set of caps. Duplicates collapse.
func NewCapabilities(caps ...string) Capabilities {
	c := make(Capabilities, len(caps))
	for _, s := range caps {
		c[s] = struct{}{}
	}
	return c
}

func (c Capabilities) Has(capability string) bool {
	_, ok := c[capability]
	return ok
}

func (c Capabilities) Len() int { return len(c) }

// Strings returns the capabilities sorted.
func (c Capabilities) Strings() []string {
	out := make([]string, 0, len(c))
	for s := range c {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether c and other hold the same capabilities.
func (c Capabilities) Equal(other Capabilities) bool {
	if len(c) != len(other) {
		return false
	}
	for s := range c {
		if !other.Has(s) {
			return false
		}
	}
	return true
}

// ServerInformation is a holder for information returned by
// GetServerInformation call.
type ServerInformation struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// GetCapabilities gets the capabilities of the notification server.
// This call takes no parameters.
// It returns an array of strings. Each string describes an optional capability implemented by the server.
//
// See also: https://developer.gnome.org/notification-spec/
func GetCapabilities(conn *dbus.Conn) (Capabilities, error) {
	return getCapabilities(connCall(conn))
}

// GetServerInformation returns the information on the server.
//
// org.freedesktop.Notifications.GetServerInformation
//
//	GetServerInformation Return Values
//
//	Name		 Type	  Description
//	name		 STRING	  The product name of the server.
//	vendor		 STRING	  The vendor name. For example, "KDE," "GNOME," "freedesktop.org," or "Microsoft."
//	version		 STRING	  The server's version number.
//	spec_version STRING	  The specification version the server is compliant with.
func GetServerInformation(conn *dbus.Conn) (ServerInformation, error) {
	return getServerInformation(connCall(conn))
}

func getCapabilities(call callFunc) (Capabilities, error) {
	body, err := call(callGetCapabilities)
	if err != nil {
		return nil, err
	}
	var ret []string
	if err := dbus.Store(body, &ret); err != nil {
		return nil, &ProtocolError{Op: callGetCapabilities, Err: err}
	}
	return NewCapabilities(ret...), nil
}

func getServerInformation(call callFunc) (ServerInformation, error) {
	body, err := call(callGetServerInformation)
	if err != nil {
		return ServerInformation{}, err
	}
	ret := ServerInformation{}
	err = dbus.Store(body, &ret.Name, &ret.Vendor, &ret.Version, &ret.SpecVersion)
	if err != nil {
		return ServerInformation{}, &ProtocolError{Op: callGetServerInformation, Err: err}
	}
	return ret, nil
}
