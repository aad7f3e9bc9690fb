// Package chat holds the client-side chat session state machine: session
// lifecycle, message exchange and the recency buckets derived from them.
package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"cyberbuddy/internal/backend"
	"cyberbuddy/internal/history"
	"cyberbuddy/internal/pubsub"
)

// Backend is the subset of the REST API the controller consumes
type Backend interface {
	History(ctx context.Context) ([]history.Session, error)
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatReply, error)
	EditMessage(ctx context.Context, req backend.EditRequest) (*backend.EditReply, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ScanURL(ctx context.Context, url string) (*backend.ScanReport, error)
}

// ConfirmFunc asks the user to approve a destructive action
type ConfirmFunc func(prompt string) bool

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithConfirm sets the confirmation prompt used before deleting a session.
// Without one every deletion is refused.
func WithConfirm(confirm ConfirmFunc) Option {
	return func(c *Controller) {
		c.confirm = confirm
	}
}

// Controller owns the session store for one authenticated user and keeps the
// current session, exchange state and recency buckets consistent with it.
type Controller struct {
	backend Backend
	store   *history.Store
	broker  *pubsub.Broker[Event]
	logger  *zap.Logger
	now     func() time.Time
	confirm ConfirmFunc

	mu         sync.Mutex
	current    history.SessionID
	state      State
	attachment *history.Attachment
	source     string
	buckets    history.Buckets
	closed     bool
}

// New creates a controller with an empty store and no current session.
// Call LoadHistory to seed it.
func New(b Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: b,
		store:   history.NewStore(),
		broker:  pubsub.NewBroker[Event](pubsub.DefaultBufferSize),
		logger:  zap.NewNop(),
		now:     time.Now,
		confirm: func(string) bool { return false },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.buckets = history.Categorize(nil, c.now())
	return c
}

// Subscribe returns a channel of change events that lives until ctx is done
func (c *Controller) Subscribe(ctx context.Context) <-chan Event {
	return c.broker.Subscribe(ctx)
}

// Current returns the id of the current session
func (c *Controller) Current() history.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentSession returns a copy of the current session
func (c *Controller) CurrentSession() (history.Session, bool) {
	return c.store.Get(c.Current())
}

// Messages returns the active message view: the messages of the current session
func (c *Controller) Messages() []history.Message {
	sess, ok := c.CurrentSession()
	if !ok {
		return []history.Message{}
	}
	return sess.Messages
}

// Sessions returns every session in store order
func (c *Controller) Sessions() []history.Session {
	return c.store.Sessions()
}

// Buckets returns the sessions grouped by recency as of the last change
func (c *Controller) Buckets() history.Buckets {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buckets
}

// State returns the exchange state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Source returns the source tag of the reply currently on display
func (c *Controller) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Attach sets the file sent with the next message
func (c *Controller) Attach(a *history.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = a
}

// Attachment returns the file pending for the next message, if any
func (c *Controller) Attachment() *history.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachment
}

// ClearAttachment drops the pending file
func (c *Controller) ClearAttachment() {
	c.Attach(nil)
}

// Close tears the controller down on logout
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.current = history.SessionID{}
	c.attachment = nil
	c.source = ""
	c.buckets = history.Categorize(nil, c.now())
	c.mu.Unlock()

	c.store.Clear()
	c.broker.Shutdown()
}

// changed recomputes the buckets from the store and publishes the event
func (c *Controller) changed(evt Event) {
	c.mu.Lock()
	c.buckets = history.Categorize(c.store.Sessions(), c.now())
	evt.State = c.state
	c.mu.Unlock()

	c.publish(evt)
}

func (c *Controller) publish(evt Event) {
	c.logger.Debug("chat event",
		zap.String("type", string(evt.Type)),
		zap.String("session", evt.SessionID.String()),
		zapState("state", evt.State))
	c.broker.Publish(evt)
}
