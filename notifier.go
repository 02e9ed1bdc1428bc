package notify

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/godbus/dbus/v5"
)

const (
	dbusDestination            = "org.freedesktop.Notifications"  // well-known bus name of the server
	dbusObjectPath             = "/org/freedesktop/Notifications" // the DBUS object path
	dbusNotificationsInterface = "org.freedesktop.Notifications"  // DBUS Interface

	memberActionInvoked      = "ActionInvoked"
	memberNotificationClosed = "NotificationClosed"
	signalActionInvoked      = dbusNotificationsInterface + "." + memberActionInvoked
	signalNotificationClosed = dbusNotificationsInterface + "." + memberNotificationClosed

	callNotify               = "Notify"
	callCloseNotification    = "CloseNotification"
	callGetCapabilities      = "GetCapabilities"
	callGetServerInformation = "GetServerInformation"

	channelBufferSize = 10
)

// Notifier is an interface for implementing the operations supported by the
// freedesktop DBus Notifications object.
//
// New() sets up a Notifier that listens on dbus' signals regarding
// Notifications: NotificationClosed and ActionInvoked. Handlers passed with
// WithOnAction and WithOnClosed see every signal; handlers set on a Handle
// see only the signals for that notification.
//
// Users that only want to send a simple notification, but don't care about
// interactions, see exported method: SendNotification(conn, Notification)
//
// Caller is also responsible to call Close() before exiting,
// to shut down event loop and cleanup.
type Notifier interface {
	// Send shows n, or replaces the notification n.ReplacesID, and returns a
	// Handle that can update, close and receive events for it.
	Send(n Notification) (*Handle, error)
	SendNotification(n Notification) (uint32, error)
	GetCapabilities() (Capabilities, error)
	GetServerInformation() (ServerInformation, error)
	CloseNotification(id uint32) error
	Close() error
}

// Option configures a Notifier.
type Option func(n *notifier)

// WithOnAction sets a handler called for every ActionInvoked signal.
func WithOnAction(h ActionInvokedHandler) Option {
	return func(n *notifier) {
		n.onAction = h
	}
}

// WithOnClosed sets a handler called for every NotificationClosed signal.
func WithOnClosed(h NotificationClosedHandler) Option {
	return func(n *notifier) {
		n.onClosed = h
	}
}

// WithLogger sets the logger used for errors and dropped signals.
func WithLogger(logger *log.Logger) Option {
	return func(n *notifier) {
		n.log = logger
	}
}

// WithDestination sends calls to a server owning busName instead of
// org.freedesktop.Notifications.
func WithDestination(busName string) Option {
	return func(n *notifier) {
		n.dest = busName
	}
}

// notifier implements Notifier interface
type notifier struct {
	transport Transport
	dest      string
	log       *log.Logger
	onAction  ActionInvokedHandler
	onClosed  NotificationClosedHandler
	events    *correlator

	done      chan struct{} // closed by Close
	closeOnce sync.Once
	closeErr  error
	released  bool // guarded by events.mu
}

// New creates a new Notifier using conn.
// See also: Notifier
func New(conn *dbus.Conn, opts ...Option) (Notifier, error) {
	if conn == nil {
		return nil, &TransportError{Op: "New", Err: errors.New("nil connection")}
	}
	return NewWithTransport(NewTransport(conn), opts...)
}

// NewWithTransport creates a new Notifier on t. Notifiers created with the
// same t share one signal subscription, so t must be comparable; pointer
// types are.
func NewWithTransport(t Transport, opts ...Option) (Notifier, error) {
	if t == nil {
		return nil, &TransportError{Op: "New", Err: errors.New("nil transport")}
	}
	n := &notifier{
		transport: t,
		dest:      dbusDestination,
		log:       log.New(os.Stderr, "notify: ", log.Flags()),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	c, err := acquireCorrelator(n)
	if err != nil {
		return nil, err
	}
	n.events = c
	return n, nil
}

func (n *notifier) call(method string, args ...interface{}) ([]interface{}, error) {
	body, err := n.transport.Call(n.dest, dbusObjectPath, dbusNotificationsInterface, method, args...)
	if err != nil {
		err = classifyCallError(method, err)
		n.log.Printf("error calling %v: %v", method, err)
		return nil, err
	}
	return body, nil
}

// Send sends a notification to the notification server.
// Implements dbus call:
//
//	UINT32 org.freedesktop.Notifications.Notify (
//	    STRING app_name,
//	    UINT32 replaces_id,
//	    STRING app_icon,
//	    STRING summary,
//	    STRING body,
//	    ARRAY  actions,
//	    DICT   hints,
//	    INT32  expire_timeout
//	);
//
// If replaces_id is 0, the return value is a UINT32 that represent the notification.
// It is unique, and will not be reused unless a MAXINT number of notifications have been generated.
// If replaces_id is not 0, the returned value is normally the same value as replaces_id.
// Some servers hand out a new id when the replaced notification is already gone;
// the Handle always carries the id the server returned.
//
// Nothing is sent if the hints or actions cannot be encoded.
func (n *notifier) Send(note Notification) (*Handle, error) {
	id, err := n.SendNotification(note)
	if err != nil {
		return nil, err
	}
	return &Handle{id: id, notifier: n, note: note}, nil
}

// SendNotification is Send without a Handle.
func (n *notifier) SendNotification(note Notification) (uint32, error) {
	return sendNotification(n.call, note)
}

// GetCapabilities gets the capabilities of the notification server.
// The server is asked on every call.
func (n *notifier) GetCapabilities() (Capabilities, error) {
	return getCapabilities(n.call)
}

func (n *notifier) GetServerInformation() (ServerInformation, error) {
	return getServerInformation(n.call)
}

// CloseNotification causes a notification to be forcefully closed and removed from the user's view.
// It can be used, for example, in the event that what the notification pertains to is no longer relevant,
// or to cancel a notification with no expiration time.
//
// The NotificationClosed (dbus) signal is emitted by this method.
// Whether closing an unknown or already closed id is an error is up to the
// server; its answer is returned unchanged.
func (n *notifier) CloseNotification(id uint32) error {
	return closeNotification(n.call, id)
}

// Close detaches every handler registered through this notifier and
// releases its share of the signal subscription.
// Notifications on screen are left alone.
func (n *notifier) Close() error {
	n.closeOnce.Do(func() {
		n.closeErr = n.events.release(n)
		close(n.done)
	})
	return n.closeErr
}

// callFunc performs one method call on the notifications interface.
type callFunc func(method string, args ...interface{}) ([]interface{}, error)

func sendNotification(call callFunc, note Notification) (uint32, error) {
	if err := checkStrings(note); err != nil {
		return 0, err
	}
	hints, err := EncodeHints(note.Hints)
	if err != nil {
		return 0, err
	}
	body, err := call(callNotify,
		note.AppName,
		note.ReplacesID,
		note.AppIcon,
		note.Summary,
		note.Body,
		flattenActions(note.Actions),
		hints,
		note.expireTimeoutMillis())
	if err != nil {
		return 0, err
	}
	var ret uint32
	if err := dbus.Store(body, &ret); err != nil {
		return 0, &ProtocolError{Op: callNotify, Err: err}
	}
	// Servers must not return zero, it would never match a signal.
	if ret == 0 {
		return 0, &ProtocolError{Op: callNotify, Err: errors.New("server returned notification id 0")}
	}
	return ret, nil
}

// checkStrings rejects text that is not valid UTF-8. D-Bus strings must be.
func checkStrings(note Notification) error {
	for _, f := range []struct{ name, value string }{
		{"app name", note.AppName},
		{"app icon", note.AppIcon},
		{"summary", note.Summary},
		{"body", note.Body},
	} {
		if !utf8.ValidString(f.value) {
			return &EncodingError{Reason: f.name + " is not valid UTF-8"}
		}
	}
	for i, a := range note.Actions {
		if !utf8.ValidString(a.Key) || !utf8.ValidString(a.Label) {
			return &EncodingError{Reason: fmt.Sprintf("action %d is not valid UTF-8", i)}
		}
	}
	return nil
}

func closeNotification(call callFunc, id uint32) error {
	_, err := call(callCloseNotification, id)
	return err
}

func connCall(conn *dbus.Conn) callFunc {
	if conn == nil {
		return func(method string, _ ...interface{}) ([]interface{}, error) {
			return nil, &TransportError{Op: method, Err: errors.New("nil connection")}
		}
	}
	t := NewTransport(conn)
	return func(method string, args ...interface{}) ([]interface{}, error) {
		body, err := t.Call(dbusDestination, dbusObjectPath, dbusNotificationsInterface, method, args...)
		if err != nil {
			return nil, classifyCallError(method, err)
		}
		return body, nil
	}
}

// SendNotification is provided for convenience.
// Use if you only want to deliver a notification and dont care about events.
func SendNotification(conn *dbus.Conn, note Notification) (uint32, error) {
	return sendNotification(connCall(conn), note)
}

// CloseNotification closes the notification id without setting up a Notifier.
func CloseNotification(conn *dbus.Conn, id uint32) error {
	return closeNotification(connCall(conn), id)
}
