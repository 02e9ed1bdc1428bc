package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ActionInvokedSignal holds callback data from any Actions passed to Notification
type ActionInvokedSignal struct {
	ID        uint32
	ActionKey string
}

// NotificationClosedSignal holds data for *Closed callbacks from Notifications Interface.
type NotificationClosedSignal struct {
	ID     uint32
	Reason Reason
}

// ActionInvokedHandler is called for ActionInvoked signals.
type ActionInvokedHandler func(*ActionInvokedSignal)

// NotificationClosedHandler is called for NotificationClosed signals.
type NotificationClosedHandler func(*NotificationClosedSignal)

// Reason for the closed notification
type Reason uint32

const (
	// ReasonExpired when a notification expired
	ReasonExpired Reason = 1

	// ReasonDismissedByUser when a notification has been dismissed by a user
	ReasonDismissedByUser Reason = 2

	// ReasonClosedByCall when a notification has been closed by a call to CloseNotification
	ReasonClosedByCall Reason = 3

	// ReasonUnknown when as notification has been closed for an unknown reason.
	// Codes outside the defined range are reported as ReasonUnknown.
	ReasonUnknown Reason = 4
)

func reasonFromCode(code uint32) Reason {
	switch r := Reason(code); r {
	case ReasonExpired, ReasonDismissedByUser, ReasonClosedByCall:
		return r
	default:
		return ReasonUnknown
	}
}

func (r Reason) String() string {
	switch r {
	case ReasonExpired:
		return "Expired"
	case ReasonDismissedByUser:
		return "DismissedByUser"
	case ReasonClosedByCall:
		return "ClosedByCall"
	default:
		return "Unknown"
	}
}

func parseActionInvoked(sig *dbus.Signal) (*ActionInvokedSignal, error) {
	var ret ActionInvokedSignal
	if err := dbus.Store(sig.Body, &ret.ID, &ret.ActionKey); err != nil {
		return nil, fmt.Errorf("malformed %s signal %v: %w", signalActionInvoked, sig.Body, err)
	}
	return &ret, nil
}

func parseNotificationClosed(sig *dbus.Signal) (*NotificationClosedSignal, error) {
	var id, code uint32
	if err := dbus.Store(sig.Body, &id, &code); err != nil {
		return nil, fmt.Errorf("malformed %s signal %v: %w", signalNotificationClosed, sig.Body, err)
	}
	return &NotificationClosedSignal{ID: id, Reason: reasonFromCode(code)}, nil
}
