package chat

import (
	"context"

	"go.uber.org/zap"

	"cyberbuddy/internal/history"
)

// DeletePrompt is shown before a session is deleted
const DeletePrompt = "Are you sure you want to delete this chat history? This action cannot be undone."

// StartNewSession creates an empty pending session, makes it current and
// returns its id. Other empty pending sessions are discarded so at most one
// exists at a time.
func (c *Controller) StartNewSession() history.SessionID {
	sess := history.NewSession(c.now())

	if removed := c.store.RemoveEmptyPending(); removed > 0 {
		c.logger.Debug("discarded empty pending sessions", zap.Int("count", removed))
	}
	c.store.Prepend(sess)

	c.mu.Lock()
	c.current = sess.ID
	c.attachment = nil
	c.source = ""
	c.mu.Unlock()

	c.changed(Event{Type: EventSessionCreated, SessionID: sess.ID})
	return sess.ID
}

// ReplaceHistory replaces the store with the backend's sessions and seeds a
// fresh pending session on top
func (c *Controller) ReplaceHistory(sessions []history.Session) {
	c.store.Replace(sessions)
	c.changed(Event{Type: EventHistoryLoaded})
	c.StartNewSession()
}

// LoadHistory fetches the user's sessions. A current session exists afterwards
// whether or not the fetch succeeded; the fetch error is returned for display.
func (c *Controller) LoadHistory(ctx context.Context) error {
	sessions, err := c.backend.History(ctx)
	if err != nil {
		c.logger.Error("failed to load history", zap.Error(err))
		c.StartNewSession()
		return err
	}

	c.logger.Info("history loaded", zap.Int("sessions", len(sessions)))
	c.ReplaceHistory(sessions)
	return nil
}

// SelectSession makes an existing session current
func (c *Controller) SelectSession(id history.SessionID) error {
	sess, ok := c.store.Get(id)
	if !ok {
		return ErrSessionNotFound
	}

	c.mu.Lock()
	c.current = id
	c.source = sess.LastSource()
	c.mu.Unlock()

	c.changed(Event{Type: EventSessionSelected, SessionID: id})
	return nil
}

// DeleteSession removes a session after the user confirms. Pending sessions
// are removed locally; confirmed ones only after the backend deletes them.
func (c *Controller) DeleteSession(ctx context.Context, id history.SessionID) error {
	if _, ok := c.store.Get(id); !ok {
		return ErrSessionNotFound
	}
	if !c.confirm(DeletePrompt) {
		return ErrCancelled
	}

	if !id.IsPending() {
		if err := c.backend.DeleteSession(ctx, id.String()); err != nil {
			c.logger.Error("failed to delete session", zap.String("session", id.String()), zap.Error(err))
			return err
		}
	}

	c.store.Remove(id)
	c.logger.Info("session deleted", zap.String("session", id.String()), zap.Bool("pending", id.IsPending()))

	wasCurrent := c.Current() == id
	c.changed(Event{Type: EventSessionDeleted, SessionID: id})

	if wasCurrent {
		c.StartNewSession()
	}
	return nil
}
