package notify

import (
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

type fakeCall struct {
	Dest   string
	Path   dbus.ObjectPath
	Iface  string
	Method string
	Args   []interface{}
}

// fakeDaemon is an in-memory notification server reached through the
// Transport interface.
type fakeDaemon struct {
	mu      sync.Mutex
	calls   []fakeCall
	subs    []*fakeSubscription
	nextID  uint32
	visible map[uint32][]interface{}

	caps []string
	info ServerInformation

	// unreachable makes every call fail like a bus with no server on it.
	unreachable bool
	// freshIDOnReplace hands out a new id when the replaced id is not visible.
	freshIDOnReplace bool
	// rejectUnknownClose answers CloseNotification for unknown ids with an error.
	rejectUnknownClose bool
	// override replaces the reply for a method.
	override map[string]func(args []interface{}) ([]interface{}, error)

	subscribeCount int
	subscribeErr   error
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{
		nextID:  1,
		visible: map[uint32][]interface{}{},
		caps:    []string{CapabilityActions, CapabilityBody},
		info: ServerInformation{
			Name:        "fake",
			Vendor:      "notify tests",
			Version:     "1.0",
			SpecVersion: "1.2",
		},
		override: map[string]func(args []interface{}) ([]interface{}, error){},
	}
}

func (d *fakeDaemon) Call(dest string, path dbus.ObjectPath, iface, method string, args ...interface{}) ([]interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, fakeCall{Dest: dest, Path: path, Iface: iface, Method: method, Args: args})

	if d.unreachable {
		return nil, dbus.Error{
			Name: "org.freedesktop.DBus.Error.ServiceUnknown",
			Body: []interface{}{"The name " + dest + " was not provided by any .service files"},
		}
	}
	if fn, ok := d.override[method]; ok {
		return fn(args)
	}
	if path != dbusObjectPath || iface != dbusNotificationsInterface {
		return nil, dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownObject"}
	}

	switch method {
	case callNotify:
		return d.notify(args)
	case callCloseNotification:
		if len(args) != 1 {
			return nil, invalidArgs("CloseNotification takes one uint32")
		}
		id, ok := args[0].(uint32)
		if !ok {
			return nil, invalidArgs("CloseNotification takes one uint32")
		}
		if _, ok := d.visible[id]; !ok {
			if d.rejectUnknownClose {
				return nil, dbus.Error{
					Name: "org.freedesktop.Notifications.Error.NotFound",
					Body: []interface{}{"no such notification"},
				}
			}
			return nil, nil
		}
		delete(d.visible, id)
		d.emitLocked(memberNotificationClosed, id, uint32(ReasonClosedByCall))
		return nil, nil
	case callGetCapabilities:
		return []interface{}{append([]string(nil), d.caps...)}, nil
	case callGetServerInformation:
		return []interface{}{d.info.Name, d.info.Vendor, d.info.Version, d.info.SpecVersion}, nil
	default:
		return nil, dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownMethod"}
	}
}

// notify checks the argument types the way a real server's signature check would.
func (d *fakeDaemon) notify(args []interface{}) ([]interface{}, error) {
	if len(args) != 8 {
		return nil, invalidArgs("Notify takes 8 arguments")
	}
	_, ok0 := args[0].(string)
	replaces, ok1 := args[1].(uint32)
	_, ok2 := args[2].(string)
	_, ok3 := args[3].(string)
	_, ok4 := args[4].(string)
	_, ok5 := args[5].([]string)
	_, ok6 := args[6].(map[string]dbus.Variant)
	_, ok7 := args[7].(int32)
	if !(ok0 && ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return nil, invalidArgs("Notify signature is susssasa{sv}i")
	}

	id := replaces
	if _, shown := d.visible[replaces]; replaces == 0 || (!shown && d.freshIDOnReplace) {
		id = d.nextID
		d.nextID++
	}
	d.visible[id] = args
	return []interface{}{id}, nil
}

func invalidArgs(msg string) error {
	return dbus.Error{Name: "org.freedesktop.DBus.Error.InvalidArgs", Body: []interface{}{msg}}
}

func (d *fakeDaemon) Subscribe(path dbus.ObjectPath, iface string, members ...string) (Subscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribeCount++
	if d.subscribeErr != nil {
		return nil, d.subscribeErr
	}
	s := &fakeSubscription{ch: make(chan *dbus.Signal, 64)}
	d.subs = append(d.subs, s)
	return s, nil
}

// emit sends a signal from the server to every open subscription.
func (d *fakeDaemon) emit(member string, body ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emitLocked(member, body...)
}

func (d *fakeDaemon) emitLocked(member string, body ...interface{}) {
	sig := &dbus.Signal{
		Sender: ":1.42",
		Path:   dbusObjectPath,
		Name:   dbusNotificationsInterface + "." + member,
		Body:   body,
	}
	for _, s := range d.subs {
		s.deliver(sig)
	}
}

// dropSubscriptions ends every open subscription, like a closed connection.
func (d *fakeDaemon) dropSubscriptions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.subs {
		_ = s.Close()
	}
}

func (d *fakeDaemon) callsTo(method string) []fakeCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []fakeCall
	for _, c := range d.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (d *fakeDaemon) visibleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.visible)
}

func (d *fakeDaemon) openSubscriptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.subs {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

type fakeSubscription struct {
	mu     sync.Mutex
	ch     chan *dbus.Signal
	closed bool
}

func (s *fakeSubscription) deliver(sig *dbus.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.ch <- sig
	}
}

func (s *fakeSubscription) Signals() <-chan *dbus.Signal { return s.ch }

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestNotifier(t *testing.T, d *fakeDaemon, opts ...Option) Notifier {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	n, err := NewWithTransport(d, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

const waitTimeout = 2 * time.Second

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for event")
		var zero T
		return zero
	}
}
