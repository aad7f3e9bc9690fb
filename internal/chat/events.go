package chat

import (
	"go.uber.org/zap"

	"cyberbuddy/internal/history"
)

// EventType names a change to the chat state
type EventType string

const (
	EventHistoryLoaded    EventType = "history_loaded"
	EventSessionCreated   EventType = "session_created"
	EventSessionSelected  EventType = "session_selected"
	EventSessionDeleted   EventType = "session_deleted"
	EventSessionConfirmed EventType = "session_confirmed"
	EventMessageAppended  EventType = "message_appended"
	EventMessageEdited    EventType = "message_edited"
	EventStateChanged     EventType = "state_changed"
)

// Event is published after every change so the presentation can re-render
type Event struct {
	Type      EventType
	SessionID history.SessionID
	State     State
}

func zapState(key string, s State) zap.Field {
	return zap.Stringer(key, s)
}
