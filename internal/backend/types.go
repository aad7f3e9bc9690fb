package backend

import (
	"time"

	"cyberbuddy/internal/history"
)

// FileData is an attachment as the chat endpoint expects it
type FileData struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Name    string `json:"name"`
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId"`
	FileData  *FileData `json:"fileData,omitempty"`
}

// ChatReply is the assistant's answer to a chat request
type ChatReply struct {
	Response  string `json:"response"`
	Source    string `json:"source"`
	SessionID string `json:"sessionId,omitempty"` // set when the backend minted a permanent id
}

// EditRequest is the body of PUT /api/chat/editMessage
type EditRequest struct {
	SessionID string `json:"sessionId"`
	UserIndex int    `json:"userIndex"`
	NewText   string `json:"newText"`
}

// EditReply carries the replacement (user, assistant) pair
type EditReply struct {
	UserMessage history.Message
	AIMessage   history.Message
}

// ScanReport holds the URL reputation counts. Missing counts decode as zero.
type ScanReport struct {
	Harmless   int `json:"harmless"`
	Suspicious int `json:"suspicious"`
	Malicious  int `json:"malicious"`
}

// User is the authenticated account profile
type User struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// SearchResult is a session matching a search query
type SearchResult struct {
	SessionID string    `json:"_id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// wire representations

type sessionWire struct {
	ID        string        `json:"_id"`
	Title     string        `json:"title"`
	Messages  []messageWire `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type messageWire struct {
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	File      *FileData `json:"file,omitempty"`
}

type historyResponse struct {
	History []sessionWire `json:"history"`
}

type editResponse struct {
	UserMessage messageWire `json:"userMessage"`
	AIMessage   messageWire `json:"aiMessage"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type meResponse struct {
	User User `json:"user"`
}

type searchResponse struct {
	Success bool           `json:"success"`
	Results []SearchResult `json:"results"`
}

// NewFileData converts an attachment for the wire
func NewFileData(a *history.Attachment) *FileData {
	if a == nil {
		return nil
	}
	return &FileData{Type: string(a.Kind), Content: a.Content, Name: a.Name}
}

func (f *FileData) toAttachment() *history.Attachment {
	if f == nil {
		return nil
	}
	return &history.Attachment{Kind: history.AttachmentKind(f.Type), Content: f.Content, Name: f.Name}
}

func (m messageWire) toMessage() history.Message {
	sender := history.SenderAssistant
	if m.Sender == string(history.SenderUser) {
		sender = history.SenderUser
	}
	return history.Message{
		Text:      m.Text,
		Sender:    sender,
		Timestamp: m.Timestamp,
		Source:    m.Source,
		File:      m.File.toAttachment(),
	}
}

func (s sessionWire) toSession() history.Session {
	messages := make([]history.Message, len(s.Messages))
	for i, m := range s.Messages {
		messages[i] = m.toMessage()
	}
	title := s.Title
	if title == "" {
		title = history.DefaultTitle
	}
	return history.Session{
		ID:        history.ConfirmedID(s.ID),
		Title:     title,
		Messages:  messages,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
