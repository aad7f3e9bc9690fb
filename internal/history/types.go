package history

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title of a session that has not exchanged any messages yet
const DefaultTitle = "New Chat"

// pendingPrefix marks locally created session ids on the wire. The backend never produces it.
const pendingPrefix = "new_"

const titleLimit = 30

// SessionID identifies a session. A pending id was minted locally and has not been
// acknowledged by the backend; a confirmed id was assigned by the backend.
type SessionID struct {
	value   string
	pending bool
}

// NewPendingID returns a fresh, time-ordered pending id
func NewPendingID() SessionID {
	return SessionID{value: pendingPrefix + uuid.Must(uuid.NewV7()).String(), pending: true}
}

// ConfirmedID wraps an identifier assigned by the backend
func ConfirmedID(value string) SessionID {
	return SessionID{value: value}
}

// ParseWireID decodes an id as it appears on the wire. Only ids minted by this
// client carry the pending prefix.
func ParseWireID(value string) SessionID {
	if strings.HasPrefix(value, pendingPrefix) {
		return SessionID{value: value, pending: true}
	}
	return ConfirmedID(value)
}

// String returns the wire form of the id
func (id SessionID) String() string {
	return id.value
}

// IsPending reports whether the backend has not yet assigned a permanent id
func (id SessionID) IsPending() bool {
	return id.pending
}

// IsZero reports whether the id is unset
func (id SessionID) IsZero() bool {
	return id.value == ""
}

// Sender identifies who wrote a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "ai"
)

// AttachmentKind is the kind of file attached to a message
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentText  AttachmentKind = "text"
)

// Attachment is a file sent along with a user message.
// Image content is base64 encoded, text content is kept verbatim.
type Attachment struct {
	Kind    AttachmentKind
	Content string
	Name    string
}

// Message represents a single message in a conversation
type Message struct {
	Text      string
	Sender    Sender
	Timestamp time.Time
	Source    string // assistant messages only: which backend path produced the reply
	File      *Attachment
}

// Session represents a single conversation thread
type Session struct {
	ID        SessionID
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates an empty pending session
func NewSession(now time.Time) Session {
	return Session{
		ID:        NewPendingID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the session
func (s Session) Clone() Session {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		if m.File != nil {
			f := *m.File
			m.File = &f
		}
		out.Messages[i] = m
	}
	return out
}

// LastSource returns the source tag of the last message, if any
func (s Session) LastSource() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Source
}

// DeriveTitle builds a session title from the first user message
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit]) + "..."
}
