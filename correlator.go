package notify

import (
	"log"
	"sync"

	"github.com/godbus/dbus/v5"
)

// All notifiers on the same Transport share one correlator, so each signal
// is received and dispatched once per process.
var (
	correlatorsMu sync.Mutex
	correlators   = map[Transport]*correlator{}
)

// correlator routes ActionInvoked and NotificationClosed signals to the
// handlers registered for the notification id, and to the global handlers
// of every notifier sharing it.
type correlator struct {
	transport Transport
	sub       Subscription
	log       *log.Logger
	refs      int // guarded by correlatorsMu

	mu        sync.RWMutex
	listeners []*notifier
	entries   map[uint32]*entry
}

type entry struct {
	owner    *notifier
	onAction ActionInvokedHandler
	onClosed NotificationClosedHandler
}

func acquireCorrelator(n *notifier) (*correlator, error) {
	correlatorsMu.Lock()
	defer correlatorsMu.Unlock()

	c, ok := correlators[n.transport]
	if !ok {
		sub, err := n.transport.Subscribe(dbusObjectPath, dbusNotificationsInterface,
			memberActionInvoked, memberNotificationClosed)
		if err != nil {
			return nil, classifyCallError("AddMatch", err)
		}
		c = &correlator{
			transport: n.transport,
			sub:       sub,
			log:       n.log,
			entries:   map[uint32]*entry{},
		}
		correlators[n.transport] = c
		// start eventloop
		go c.loop()
	}
	c.refs++

	c.mu.Lock()
	c.listeners = append(c.listeners, n)
	c.mu.Unlock()
	return c, nil
}

// release drops everything registered by n. The subscription is closed
// when the last notifier is released.
func (c *correlator) release(n *notifier) error {
	correlatorsMu.Lock()
	defer correlatorsMu.Unlock()

	c.mu.Lock()
	n.released = true
	kept := c.listeners[:0]
	for _, l := range c.listeners {
		if l != n {
			kept = append(kept, l)
		}
	}
	c.listeners = kept
	for id, e := range c.entries {
		if e.owner == n {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()

	c.refs--
	if c.refs > 0 {
		return nil
	}
	c.forget()
	return c.sub.Close()
}

// forget removes c from the registry unless a newer correlator has taken
// its place. Callers hold correlatorsMu.
func (c *correlator) forget() {
	if correlators[c.transport] == c {
		delete(correlators, c.transport)
	}
}

// entryFor returns the entry for id, or nil once owner is released.
func (c *correlator) entryFor(owner *notifier, id uint32) *entry {
	if owner.released {
		return nil
	}
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
	}
	e.owner = owner
	return e
}

func (c *correlator) setOnAction(owner *notifier, id uint32, fn ActionInvokedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		if e, ok := c.entries[id]; ok {
			e.onAction = nil
			c.dropIfEmpty(id, e)
		}
		return
	}
	if e := c.entryFor(owner, id); e != nil {
		e.onAction = fn
	}
}

func (c *correlator) setOnClosed(owner *notifier, id uint32, fn NotificationClosedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		if e, ok := c.entries[id]; ok {
			e.onClosed = nil
			c.dropIfEmpty(id, e)
		}
		return
	}
	if e := c.entryFor(owner, id); e != nil {
		e.onClosed = fn
	}
}

func (c *correlator) dropIfEmpty(id uint32, e *entry) {
	if e.onAction == nil && e.onClosed == nil {
		delete(c.entries, id)
	}
}

func (c *correlator) detach(id uint32) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// move re-registers a handle's handlers under newID after an update.
// The entry for oldID is dropped; it may already be gone if the server
// closed the notification before the update.
func (c *correlator) move(owner *notifier, oldID, newID uint32, onAction ActionInvokedHandler, onClosed NotificationClosedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, oldID)
	if onAction == nil && onClosed == nil {
		return
	}
	if e := c.entryFor(owner, newID); e != nil {
		e.onAction = onAction
		e.onClosed = onClosed
	}
}

// loop exits when the subscription is closed, either by release or because
// the connection went away. In the second case later notifiers on the same
// transport must get a fresh subscription.
func (c *correlator) loop() {
	for sig := range c.sub.Signals() {
		c.dispatch(sig)
	}
	c.log.Printf("signal subscription closed, shutting down...")

	correlatorsMu.Lock()
	c.forget()
	correlatorsMu.Unlock()
}

func (c *correlator) dispatch(sig *dbus.Signal) {
	switch sig.Name {
	case signalActionInvoked:
		ev, err := parseActionInvoked(sig)
		if err != nil {
			c.log.Printf("dropping signal: %v", err)
			return
		}
		globals, target := c.actionHandlers(ev.ID)
		for _, h := range globals {
			e := *ev
			h(&e)
		}
		if target != nil {
			e := *ev
			target(&e)
		}
	case signalNotificationClosed:
		ev, err := parseNotificationClosed(sig)
		if err != nil {
			c.log.Printf("dropping signal: %v", err)
			return
		}
		globals, target := c.takeClosedHandlers(ev.ID)
		for _, h := range globals {
			e := *ev
			h(&e)
		}
		if target != nil {
			e := *ev
			target(&e)
		}
	default:
		c.log.Printf("unknown signal: %+v", sig)
	}
}

// actionHandlers takes a snapshot under the read lock, handlers run
// without holding it so they may register or detach.
func (c *correlator) actionHandlers(id uint32) ([]ActionInvokedHandler, ActionInvokedHandler) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var globals []ActionInvokedHandler
	for _, l := range c.listeners {
		if l.onAction != nil {
			globals = append(globals, l.onAction)
		}
	}
	var target ActionInvokedHandler
	if e, ok := c.entries[id]; ok {
		target = e.onAction
	}
	return globals, target
}

// takeClosedHandlers is the snapshot for NotificationClosed. The id is
// finished once closed, so its entry is removed.
func (c *correlator) takeClosedHandlers(id uint32) ([]NotificationClosedHandler, NotificationClosedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var globals []NotificationClosedHandler
	for _, l := range c.listeners {
		if l.onClosed != nil {
			globals = append(globals, l.onClosed)
		}
	}
	var target NotificationClosedHandler
	if e, ok := c.entries[id]; ok {
		target = e.onClosed
		delete(c.entries, id)
	}
	return globals, target
}
