package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cyberbuddy/internal/backend"
	"cyberbuddy/internal/history"
)

// FailedResponseText is the placeholder appended when a reply cannot be fetched
const FailedResponseText = "Failed to get response from AI"

// ScanReportPrefix starts every URL scan report message
const ScanReportPrefix = "🔍 URL Scan Results for: "

// Send appends a user message to the current session, asks the backend for a
// reply and appends it. On failure a placeholder reply is appended instead
// and the error returned; the user message is kept.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if err := c.begin(StateSending); err != nil {
		return err
	}
	defer c.finish()

	return c.send(ctx, text, c.Current(), c.Attachment())
}

// EditMessage replaces the user message at userIndex and the assistant reply
// after it with the pair regenerated by the backend
func (c *Controller) EditMessage(ctx context.Context, newText string, userIndex int) error {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return ErrEmptyMessage
	}

	id := c.Current()
	sess, ok := c.store.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	if id.IsPending() {
		return ErrPendingSession
	}
	if userIndex < 0 || userIndex >= len(sess.Messages) || sess.Messages[userIndex].Sender != history.SenderUser {
		return ErrInvalidIndex
	}

	if err := c.begin(StateEditing); err != nil {
		return err
	}
	defer c.finish()

	reply, err := c.backend.EditMessage(ctx, backend.EditRequest{
		SessionID: id.String(),
		UserIndex: userIndex,
		NewText:   newText,
	})
	if err != nil {
		c.logger.Error("edit request failed", zap.String("session", id.String()), zap.Error(err))
		return err
	}

	now := c.now()
	userMsg, aiMsg := reply.UserMessage, reply.AIMessage
	if userMsg.Timestamp.IsZero() {
		userMsg.Timestamp = now
	}
	if aiMsg.Timestamp.IsZero() {
		aiMsg.Timestamp = now
	}

	spliced := false
	found := c.store.Update(id, func(s *history.Session) {
		next := userIndex + 1
		if next < len(s.Messages) && s.Messages[next].Sender == history.SenderAssistant {
			s.Messages[userIndex] = userMsg
			s.Messages[next] = aiMsg
			spliced = true
		} else {
			s.Messages = append(s.Messages, userMsg, aiMsg)
		}
		if userIndex == 0 {
			s.Title = history.DeriveTitle(newText)
		}
		s.UpdatedAt = now
	})
	if !found {
		c.logger.Warn("edited session disappeared", zap.String("session", id.String()))
		return ErrSessionNotFound
	}
	if !spliced {
		c.logger.Warn("edited message not followed by an assistant reply, appended instead",
			zap.String("session", id.String()), zap.Int("index", userIndex))
	}

	c.mu.Lock()
	if c.current == id {
		c.source = aiMsg.Source
	}
	c.mu.Unlock()

	c.changed(Event{Type: EventMessageEdited, SessionID: id})
	return nil
}

// ScanURL asks the backend to scan a URL and posts the report to the current
// session as an ordinary user message
func (c *Controller) ScanURL(ctx context.Context, rawURL string) error {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return ErrEmptyURL
	}
	if err := c.begin(StateScanning); err != nil {
		return err
	}
	defer c.finish()

	report, err := c.backend.ScanURL(ctx, target)
	if err != nil {
		c.logger.Error("URL scan failed", zap.String("url", target), zap.Error(err))
		return err
	}

	return c.send(ctx, ScanReportText(target, report), c.Current(), nil)
}

// ScanReportText formats a scan report as a chat message
func ScanReportText(target string, report *backend.ScanReport) string {
	var r backend.ScanReport
	if report != nil {
		r = *report
	}
	return fmt.Sprintf("%s%s:\n    - ✅ Safe: %d\n    - ⚠️ Suspicious: %d\n    - ❌ Malicious: %d",
		ScanReportPrefix, target, r.Harmless, r.Suspicious, r.Malicious)
}

// IsScanReport reports whether a message text is a URL scan report
func IsScanReport(text string) bool {
	return strings.HasPrefix(text, ScanReportPrefix)
}

// send runs one exchange against session id (state must already be held)
func (c *Controller) send(ctx context.Context, text string, id history.SessionID, att *history.Attachment) error {
	if id.IsZero() {
		c.logger.Warn("no current session for send, starting a new one")
		c.StartNewSession()
		return ErrNoCurrentSession
	}

	userMsg := history.Message{
		Text:      text,
		Sender:    history.SenderUser,
		Timestamp: c.now(),
		File:      att,
	}
	if !c.appendMessage(id, userMsg) {
		c.logger.Warn("current session missing from store, starting a new one", zap.String("session", id.String()))
		c.StartNewSession()
		return ErrNoCurrentSession
	}

	reply, err := c.backend.Chat(ctx, backend.ChatRequest{
		Message:   text,
		SessionID: id.String(),
		FileData:  backend.NewFileData(att),
	})
	if err != nil {
		c.logger.Error("chat request failed", zap.String("session", id.String()), zap.Error(err))
		c.appendMessage(id, history.Message{
			Text:      FailedResponseText,
			Sender:    history.SenderAssistant,
			Timestamp: c.now(),
		})
		return err
	}

	aiMsg := history.Message{
		Text:      reply.Response,
		Sender:    history.SenderAssistant,
		Timestamp: c.now(),
		Source:    reply.Source,
	}

	// An echoed pending id means the backend has not minted one yet
	finalID := id
	if reply.SessionID != "" {
		finalID = history.ParseWireID(reply.SessionID)
	}

	apply := func(s *history.Session) {
		s.ID = finalID
		s.Messages = append(s.Messages, aiMsg)
		s.UpdatedAt = aiMsg.Timestamp
		if s.Title == history.DefaultTitle {
			s.Title = history.DeriveTitle(text)
		}
	}
	updated := c.store.Update(id, apply)
	if !updated && finalID != id {
		updated = c.store.Update(finalID, apply)
	}
	if !updated {
		c.logger.Warn("session removed before reply arrived", zap.String("session", id.String()))
		return nil
	}

	promoted := false
	c.mu.Lock()
	if c.current == id && finalID != id {
		c.current = finalID
		promoted = true
	}
	if c.current == finalID {
		c.source = reply.Source
	}
	c.mu.Unlock()

	if promoted {
		c.logger.Info("session confirmed", zap.String("pending", id.String()), zap.String("session", finalID.String()))
		c.changed(Event{Type: EventSessionConfirmed, SessionID: finalID})
	}
	c.changed(Event{Type: EventMessageAppended, SessionID: finalID})
	return nil
}

// appendMessage appends msg to the session and bumps its UpdatedAt
func (c *Controller) appendMessage(id history.SessionID, msg history.Message) bool {
	ok := c.store.Update(id, func(s *history.Session) {
		s.Messages = append(s.Messages, msg)
		s.UpdatedAt = msg.Timestamp
	})
	if ok {
		c.changed(Event{Type: EventMessageAppended, SessionID: id})
	}
	return ok
}
