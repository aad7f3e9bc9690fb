package chat

import "errors"

// State is the exchange state of a controller. Only one exchange may be
// outstanding at a time.
type State int

const (
	StateIdle State = iota
	StateSending
	StateEditing
	StateScanning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateEditing:
		return "editing"
	case StateScanning:
		return "scanning"
	default:
		return "unknown"
	}
}

// Sentinel errors
var (
	ErrBusy             = errors.New("another request is still in progress")
	ErrEmptyMessage     = errors.New("message cannot be empty")
	ErrEmptyURL         = errors.New("please enter a URL to scan")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoCurrentSession = errors.New("no current session, started a new one")
	ErrPendingSession   = errors.New("session has not been saved yet")
	ErrInvalidIndex     = errors.New("no user message at that position")
	ErrCancelled        = errors.New("cancelled")
	ErrClosed           = errors.New("chat has been closed")
)

// begin moves the controller from idle into next, or fails with ErrBusy
func (c *Controller) begin(next State) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateIdle {
		current := c.state
		c.mu.Unlock()
		c.logger.Warn("rejected request while busy",
			zapState("state", current), zapState("requested", next))
		return ErrBusy
	}
	c.state = next
	c.mu.Unlock()

	c.publish(Event{Type: EventStateChanged, State: next})
	return nil
}

// finish returns the controller to idle and drops the pending attachment
func (c *Controller) finish() {
	c.mu.Lock()
	c.state = StateIdle
	c.attachment = nil
	c.mu.Unlock()

	c.publish(Event{Type: EventStateChanged, State: StateIdle})
}
