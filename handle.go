package notify

import (
	"context"
	"sync"
)

// Handle is a notification that was accepted by the server.
//
// Handlers set with OnAction and OnClosed are removed when the notification
// is closed, by Detach, or when the Notifier is closed. Dropping a Handle
// does neither: a notification that never closes (ExpireTimeoutNever, or a
// daemon that misses the signal) keeps its handlers registered until the
// Handle is detached.
type Handle struct {
	notifier *notifier

	mu       sync.Mutex
	id       uint32
	note     Notification
	onAction ActionInvokedHandler
	onClosed NotificationClosedHandler
}

// ID returns the id the server assigned to the notification.
func (h *Handle) ID() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// Notification returns the notification as last sent.
func (h *Handle) Notification() Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.note
}

// Update replaces the notification on screen with n.
// n.ReplacesID is set to the handle's id. If the server answers with a
// different id, the handle and its handlers move to the new id. Handlers
// removed by an earlier NotificationClosed are registered again.
func (h *Handle) Update(n Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n.ReplacesID = h.id
	id, err := h.notifier.SendNotification(n)
	if err != nil {
		return err
	}
	if id != h.id {
		h.notifier.log.Printf("server replaced notification %d with new id %d", h.id, id)
	}
	h.notifier.events.move(h.notifier, h.id, id, h.onAction, h.onClosed)
	h.id = id
	h.note = n
	return nil
}

// Close asks the server to close the notification. Handlers stay
// attached, so OnClosed still sees the resulting NotificationClosed signal.
func (h *Handle) Close() error {
	return h.notifier.CloseNotification(h.ID())
}

// OnAction sets the handler for actions invoked on this notification,
// replacing any earlier one. A nil fn removes it.
func (h *Handle) OnAction(fn ActionInvokedHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAction = fn
	h.notifier.events.setOnAction(h.notifier, h.id, fn)
}

// OnClosed sets the handler called when this notification is closed,
// replacing any earlier one. A nil fn removes it.
func (h *Handle) OnClosed(fn NotificationClosedHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClosed = fn
	h.notifier.events.setOnClosed(h.notifier, h.id, fn)
}

// Detach removes both handlers. Signals for the notification are dropped
// afterwards.
func (h *Handle) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAction = nil
	h.onClosed = nil
	h.notifier.events.detach(h.id)
}

// Wait blocks until an action is invoked on the notification or it is
// closed, and returns that first event. Exactly one of action and closed
// is set when err is nil.
//
// Wait replaces the handlers set with OnAction and OnClosed and detaches
// before returning. Events delivered before Wait is called are not seen.
// It returns ErrNotifierClosed if the Notifier is closed first, or
// ctx.Err() when ctx is done.
func (h *Handle) Wait(ctx context.Context) (action *ActionInvokedSignal, closed *NotificationClosedSignal, err error) {
	type event struct {
		action *ActionInvokedSignal
		closed *NotificationClosedSignal
	}
	got := make(chan event, 1)
	deliver := func(e event) {
		select {
		case got <- e:
		default:
		}
	}
	h.OnAction(func(s *ActionInvokedSignal) { deliver(event{action: s}) })
	h.OnClosed(func(s *NotificationClosedSignal) { deliver(event{closed: s}) })
	defer h.Detach()

	select {
	case e := <-got:
		return e.action, e.closed, nil
	case <-h.notifier.done:
		return nil, nil, ErrNotifierClosed
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
