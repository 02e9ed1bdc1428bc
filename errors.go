package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Sentinel errors, match with errors.Is.
var (
	// ErrTransport reports that the bus or the notification server could not be reached.
	ErrTransport = errors.New("notify: transport error")
	// ErrProtocol reports that the notification server rejected a call or replied with an unexpected shape.
	ErrProtocol = errors.New("notify: protocol error")
	// ErrEncoding reports a notification that cannot be represented on the wire.
	// No bus call is made when it is returned.
	ErrEncoding = errors.New("notify: encoding error")
	// ErrNotifierClosed is returned by Handle.Wait when the Notifier is closed while waiting.
	ErrNotifierClosed = errors.New("notify: notifier closed")
)

// TransportError is returned when no notification server is reachable or the
// connection was lost. It is never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notify: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ProtocolError is returned when the notification server answered with a
// D-Bus error or a reply that does not match the protocol.
type ProtocolError struct {
	Op string
	// Name is the D-Bus error name, empty for malformed replies.
	Name string
	// Detail is the error message sent by the server, if any.
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	b.WriteString("notify: ")
	b.WriteString(e.Op)
	b.WriteString(": protocol")
	if e.Name != "" {
		b.WriteString(": ")
		b.WriteString(e.Name)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Name == "" && e.Detail == "" && e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// EncodingError is returned when a hint or action list cannot be encoded.
type EncodingError struct {
	Key    string
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Key == "" {
		return "notify: encoding: " + e.Reason
	}
	return fmt.Sprintf("notify: encoding hint %q: %s", e.Key, e.Reason)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// Errors the message bus itself answers with when the destination is not
// there or stops answering. These are not faults of the notification server.
var busUnreachable = map[string]bool{
	"org.freedesktop.DBus.Error.ServiceUnknown": true,
	"org.freedesktop.DBus.Error.NameHasNoOwner": true,
	"org.freedesktop.DBus.Error.NoReply":        true,
	"org.freedesktop.DBus.Error.NoServer":       true,
	"org.freedesktop.DBus.Error.Disconnected":   true,
	"org.freedesktop.DBus.Error.Timeout":        true,
	"org.freedesktop.DBus.Error.TimedOut":       true,
	"org.freedesktop.DBus.Error.Spawn.Failed":   true,
}

// classifyCallError maps an error returned by Transport.Call to a
// TransportError or ProtocolError.
func classifyCallError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	var pe *ProtocolError
	if errors.As(err, &te) || errors.As(err, &pe) {
		return err
	}

	var name string
	var body []interface{}
	var derr dbus.Error
	var derrPtr *dbus.Error
	switch {
	case errors.As(err, &derrPtr) && derrPtr != nil:
		name, body = derrPtr.Name, derrPtr.Body
	case errors.As(err, &derr):
		name, body = derr.Name, derr.Body
	default:
		return &TransportError{Op: op, Err: err}
	}

	if busUnreachable[name] {
		return &TransportError{Op: op, Err: err}
	}
	detail := ""
	if len(body) > 0 {
		if s, ok := body[0].(string); ok {
			detail = s
		}
	}
	return &ProtocolError{Op: op, Name: name, Detail: detail, Err: err}
}
