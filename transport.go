package notify

import (
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Transport is the part of a message bus connection the notifier needs.
// It must be safe for concurrent use.
//
// Implementations should return dbus.Error (or *dbus.Error) from Call when
// the remote side replies with an error, and any other error when the call
// could not be made at all.
type Transport interface {
	// Call invokes iface.method on the object at dest/path and returns the
	// reply body.
	Call(dest string, path dbus.ObjectPath, iface, method string, args ...interface{}) ([]interface{}, error)
	// Subscribe delivers signals emitted by path on iface whose member is one
	// of members, in the order they are received, until Close is called.
	Subscribe(path dbus.ObjectPath, iface string, members ...string) (Subscription, error)
}

// Subscription is a stream of signals. The channel is closed after Close
// or when the connection goes away.
type Subscription interface {
	Signals() <-chan *dbus.Signal
	Close() error
}

// connTransport implements Transport on a *dbus.Conn. It is a value type,
// so transports for the same connection compare equal and share one
// correlator.
type connTransport struct {
	conn *dbus.Conn
}

// NewTransport returns a Transport using conn.
// The connection is not closed by the Transport.
func NewTransport(conn *dbus.Conn) Transport {
	return connTransport{conn: conn}
}

func (t connTransport) Call(dest string, path dbus.ObjectPath, iface, method string, args ...interface{}) ([]interface{}, error) {
	call := t.conn.Object(dest, path).Call(iface+"."+method, 0, args...)
	if call.Err != nil {
		return nil, call.Err
	}
	return call.Body, nil
}

func (t connTransport) Subscribe(path dbus.ObjectPath, iface string, members ...string) (Subscription, error) {
	s := &connSubscription{
		conn:    t.conn,
		in:      make(chan *dbus.Signal, channelBufferSize),
		out:     make(chan *dbus.Signal, channelBufferSize),
		done:    make(chan struct{}),
		names:   make(map[string]bool, len(members)),
		path:    path,
		iface:   iface,
		members: members,
	}
	for i, m := range members {
		// add a listener in dbus for signals to Notification interface.
		err := t.conn.AddMatchSignal(s.matchOptions(m)...)
		if err != nil {
			for _, added := range members[:i] {
				_ = t.conn.RemoveMatchSignal(s.matchOptions(added)...)
			}
			return nil, err
		}
		s.names[iface+"."+m] = true
	}

	// register in dbus for signal delivery
	t.conn.Signal(s.in)
	go s.pump()

	return s, nil
}

type connSubscription struct {
	conn    *dbus.Conn
	in      chan *dbus.Signal
	out     chan *dbus.Signal
	done    chan struct{}
	once    sync.Once
	names   map[string]bool
	path    dbus.ObjectPath
	iface   string
	members []string
}

func (s *connSubscription) matchOptions(member string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(s.path),
		dbus.WithMatchInterface(s.iface),
		dbus.WithMatchMember(member),
	}
}

// pump forwards matching signals. The connection delivers every signal it
// receives to every registered channel, so filtering happens here.
func (s *connSubscription) pump() {
	defer close(s.out)
	for {
		select {
		case sig, ok := <-s.in:
			if !ok {
				return
			}
			if sig == nil || sig.Path != s.path || !s.names[sig.Name] {
				continue
			}
			select {
			case s.out <- sig:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *connSubscription) Signals() <-chan *dbus.Signal {
	return s.out
}

func (s *connSubscription) Close() error {
	var errs []error
	s.once.Do(func() {
		close(s.done)
		for _, m := range s.members {
			if err := s.conn.RemoveMatchSignal(s.matchOptions(m)...); err != nil {
				errs = append(errs, err)
			}
		}
		// remove signal reception
		s.conn.RemoveSignal(s.in)
	})
	if err := errors.Join(errs...); err != nil {
		return &TransportError{Op: "RemoveMatch", Err: err}
	}
	return nil
}
