/*
The notify package is a wrapper around godbus for dbus notification interface
See: https://specifications.freedesktop.org/notification-spec/latest/ and
https://github.com/godbus/dbus

Each notification displayed is allocated a unique ID by the server. (see Notifier.Send)
This ID unique within the dbus session. While the notification server is running,
the ID will not be recycled unless the capacity of a uint32 is exceeded.

This can be used to hide the notification before the expiration timeout is reached. (see Handle.Close)

The ID can also be used to atomically replace the notification with another (Notification.ReplacesID, Handle.Update).
This allows you to (for instance) modify the contents of a notification while it's on-screen.

The server reports user interaction with the ActionInvoked and NotificationClosed signals.
A Notifier subscribes to them once per connection and routes each signal by ID to the
handlers set on the matching Handle:

	n, err := notify.New(conn)
	if err != nil {
		return err
	}
	defer n.Close()

	note := notify.NewNotification("Build failed")
	note.Body = "3 errors"
	note.SetUrgency(notify.UrgencyCritical)
	note.AddAction(notify.ActionDefault, "Show")

	h, err := n.Send(note)
	if err != nil {
		return err
	}
	h.OnAction(func(s *notify.ActionInvokedSignal) {
		log.Printf("clicked %v", s.ActionKey)
	})

Hints are typed. A standard hint with the wrong type, such as a string urgency,
is rejected with an EncodingError before anything is sent.

Errors can be told apart with errors.Is: ErrTransport means no server could be
reached, ErrProtocol means the server refused the call and ErrEncoding means the
notification could not be encoded. Nothing is retried.
*/
package notify
