package notify

import (
	"math"
	"time"
)

const (
	// ExpireTimeoutSetByNotificationServer lets the notification server decide
	// when the notification expires. Any negative timeout means the same.
	ExpireTimeoutSetByNotificationServer = time.Duration(-1) * time.Millisecond
	// ExpireTimeoutNever keeps the notification until it is closed.
	ExpireTimeoutNever = time.Duration(0)
)

// ActionDefault is the key of the default action, usually invoked by
// clicking the notification itself. Servers do not draw a button for it.
const ActionDefault = "default"

// Urgency is the urgency level of a notification, sent as the "urgency" hint.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

func (u Urgency) clamp() Urgency {
	if u > UrgencyCritical {
		return UrgencyCritical
	}
	return u
}

func (u Urgency) String() string {
	switch u.clamp() {
	case UrgencyLow:
		return "Low"
	case UrgencyNormal:
		return "Normal"
	default:
		return "Critical"
	}
}

// Action is a (key, label) pair. The key is reported back in ActionInvoked,
// the label is shown to the user.
type Action struct {
	Key   string
	Label string
}

// ActionsFromPairs builds actions from the flattened form used on the wire,
// e.g. "cancel", "Cancel", "open", "Open".
func ActionsFromPairs(pairs ...string) ([]Action, error) {
	if len(pairs)%2 != 0 {
		return nil, &EncodingError{Reason: "actions must be pairs of (key, label)"}
	}
	actions := make([]Action, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		actions = append(actions, Action{Key: pairs[i], Label: pairs[i+1]})
	}
	return actions, nil
}

func flattenActions(actions []Action) []string {
	out := make([]string, 0, len(actions)*2)
	for _, a := range actions {
		out = append(out, a.Key, a.Label)
	}
	return out
}

// Notification holds all information needed for creating a notification
type Notification struct {
	AppName string
	// Setting ReplacesID atomically replaces the notification with this ID.
	// Optional.
	ReplacesID uint32
	// See predefined icons here: http://standards.freedesktop.org/icon-naming-spec/icon-naming-spec-latest.html
	// An absolute path or a data URI also works.
	// Optional.
	AppIcon string
	Summary string
	// Body may contain markup if the server has the "body-markup" capability.
	Body    string
	Actions []Action
	// Hints are keyed by hint name. Use AddHint to set one.
	Hints map[string]HintValue
	// ExpireTimeout: duration to show notification.
	// See also ExpireTimeoutSetByNotificationServer and ExpireTimeoutNever.
	ExpireTimeout time.Duration
}

// NewNotification returns a Notification with the given summary, normal
// urgency and the server's default timeout.
func NewNotification(summary string) Notification {
	n := Notification{
		Summary:       summary,
		ExpireTimeout: ExpireTimeoutSetByNotificationServer,
	}
	n.SetUrgency(UrgencyNormal)
	return n
}

// AddHint sets a hint, replacing any earlier hint with the same ID.
func (n *Notification) AddHint(h Hint) {
	if n.Hints == nil {
		n.Hints = map[string]HintValue{}
	}
	n.Hints[h.ID] = h.Value
}

// RemoveHint deletes the hint with the given ID, if present.
func (n *Notification) RemoveHint(id string) {
	delete(n.Hints, id)
}

// SetUrgency sets the urgency hint. Values above UrgencyCritical are
// treated as UrgencyCritical.
func (n *Notification) SetUrgency(u Urgency) {
	n.AddHint(HintUrgency(u))
}

// Urgency returns the urgency set on the notification, UrgencyNormal if
// none is set.
func (n Notification) Urgency() Urgency {
	v, ok := n.Hints[HintKeyUrgency]
	if !ok || v.Kind() != KindByte {
		return UrgencyNormal
	}
	return Urgency(v.Byte()).clamp()
}

// AddAction appends an action. Use ActionDefault as key for the default action.
func (n *Notification) AddAction(key, label string) {
	n.Actions = append(n.Actions, Action{Key: key, Label: label})
}

// expireTimeoutMillis converts the timeout to the int32 milliseconds the
// Notify call takes.
func (n Notification) expireTimeoutMillis() int32 {
	if n.ExpireTimeout < 0 {
		return -1
	}
	ms := n.ExpireTimeout.Milliseconds()
	switch {
	case ms == 0 && n.ExpireTimeout > 0:
		// sub-millisecond timeouts must not turn into "never expire"
		return 1
	case ms > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(ms)
}
