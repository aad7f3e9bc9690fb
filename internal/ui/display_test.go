package ui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cyberbuddy/internal/backend"
	"cyberbuddy/internal/chat"
	"cyberbuddy/internal/history"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestDisplay(showSource bool) (*Display, *syncBuffer) {
	out := &syncBuffer{}
	return NewDisplay(out, Options{ShowSource: showSource, Width: 80}), out
}

func TestPrintSidebar(t *testing.T) {
	d, out := newTestDisplay(false)

	current := history.ConfirmedID("b")
	pending := history.NewPendingID()
	d.PrintSidebar(history.Buckets{
		Today:     []history.Session{{ID: pending, Title: history.DefaultTitle}},
		Yesterday: []history.Session{{ID: current, Title: "Phishing email"}},
		Older:     []history.Session{{ID: history.ConfirmedID("c"), Title: "Old chat"}},
	}, current)

	got := out.String()
	assert.Contains(t, got, "TODAY")
	assert.Contains(t, got, "YESTERDAY")
	assert.Contains(t, got, "OLDER")
	assert.Contains(t, got, "   1. New Chat")
	assert.Contains(t, got, "(unsaved)")
	assert.Contains(t, got, "*  2. Phishing email")
	assert.Contains(t, got, "   3. Old chat")
	assert.Less(t, strings.Index(got, "TODAY"), strings.Index(got, "YESTERDAY"))
	assert.Less(t, strings.Index(got, "YESTERDAY"), strings.Index(got, "OLDER"))
}

func TestPrintSidebar_SkipsEmptyBuckets(t *testing.T) {
	d, out := newTestDisplay(false)

	d.PrintSidebar(history.Buckets{
		Older: []history.Session{{ID: history.ConfirmedID("c"), Title: "Old chat"}},
	}, history.SessionID{})

	got := out.String()
	assert.NotContains(t, got, "TODAY")
	assert.Contains(t, got, "OLDER")

	out2 := &syncBuffer{}
	NewDisplay(out2, Options{Width: 80}).PrintSidebar(history.Buckets{}, history.SessionID{})
	assert.Contains(t, out2.String(), "No chats yet")
}

func TestPrintMessages(t *testing.T) {
	d, out := newTestDisplay(true)
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	d.PrintMessages([]history.Message{
		{Text: "is this link safe?", Sender: history.SenderUser, Timestamp: ts,
			File: &history.Attachment{Kind: history.AttachmentText, Name: "mail.txt"}},
		{Text: "Looks like phishing.", Sender: history.SenderAssistant, Timestamp: ts, Source: "Knowledge Base"},
	})

	got := out.String()
	assert.Contains(t, got, "[1] You")
	assert.Contains(t, got, "is this link safe?")
	assert.Contains(t, got, "mail.txt (text)")
	assert.Contains(t, got, "[2] Cyber Buddy")
	assert.Contains(t, got, "Looks like phishing.")
	assert.Contains(t, got, "Source: Knowledge Base")
}

func TestPrintMessage_HidesSource(t *testing.T) {
	d, out := newTestDisplay(false)

	d.PrintMessage(1, history.Message{Text: "hi", Sender: history.SenderAssistant, Source: "Web"})
	assert.NotContains(t, out.String(), "Source")
}

func TestPrintMessage_ScanReport(t *testing.T) {
	d, out := newTestDisplay(false)

	report := chat.ScanReportText("https://example.com", &backend.ScanReport{Harmless: 70, Malicious: 1})
	d.PrintMessage(1, history.Message{Text: report, Sender: history.SenderUser})

	got := out.String()
	assert.Contains(t, got, "https://example.com")
	assert.Contains(t, got, "Safe: 70")
	assert.Contains(t, got, "Malicious: 1")
}

func TestPrintMessages_Empty(t *testing.T) {
	d, out := newTestDisplay(false)
	d.PrintMessages(nil)
	assert.Contains(t, out.String(), "No messages yet")
}

func TestPrintAttachment(t *testing.T) {
	d, out := newTestDisplay(false)

	d.PrintAttachment(&history.Attachment{Kind: history.AttachmentText, Name: "log.txt", Content: "line one\nline two"})

	got := out.String()
	assert.Contains(t, got, "log.txt")
	assert.Contains(t, got, "line one")
}

func TestPrintSearchResults(t *testing.T) {
	d, out := newTestDisplay(false)

	d.PrintSearchResults([]backend.SearchResult{
		{SessionID: "1", Title: "Ransomware", Snippet: "how do I recover"},
		{SessionID: "2"},
	})

	got := out.String()
	assert.Contains(t, got, "Ransomware")
	assert.Contains(t, got, "how do I recover")
	assert.Contains(t, got, history.DefaultTitle)

	d2, out2 := newTestDisplay(false)
	d2.PrintSearchResults(nil)
	assert.Contains(t, out2.String(), "No matching chats")
}

func TestPrompt(t *testing.T) {
	d, _ := newTestDisplay(false)

	assert.NotContains(t, d.Prompt(nil), "📎")
	assert.Contains(t, d.Prompt(&history.Attachment{Name: "shot.png"}), "shot.png")
}

func TestMarkdownRendering(t *testing.T) {
	out := &syncBuffer{}
	d := NewDisplay(out, Options{Markdown: true, Width: 80, Style: "notty"})
	require.NotNil(t, d.renderer)

	d.PrintMessage(1, history.Message{Text: "# Steps\n\n- change your password", Sender: history.SenderAssistant})

	got := out.String()
	assert.Contains(t, got, "Steps")
	assert.Contains(t, got, "change your password")
}

// stateBox is a settable controller state
type stateBox struct {
	mu    sync.Mutex
	state chat.State
}

func (b *stateBox) set(s chat.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

func (b *stateBox) get() chat.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func TestWatch_DrivesIndicator(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, out := newTestDisplay(false)
	state := &stateBox{}
	events := make(chan chat.Event)
	done := make(chan struct{})
	go func() {
		d.Watch(context.Background(), events, state.get)
		close(done)
	}()

	state.set(chat.StateScanning)
	events <- chat.Event{Type: chat.EventStateChanged, State: chat.StateScanning}
	assert.Eventually(t, d.spinner.Active, time.Second, 5*time.Millisecond)

	events <- chat.Event{Type: chat.EventMessageAppended}
	assert.True(t, d.spinner.Active(), "other events leave the indicator alone")

	state.set(chat.StateIdle)
	events <- chat.Event{Type: chat.EventStateChanged, State: chat.StateIdle}
	assert.Eventually(t, func() bool { return !d.spinner.Active() }, time.Second, 5*time.Millisecond)

	close(events)
	<-done
	assert.Contains(t, out.String(), "Scanning URL...")
}

func TestWatch_StaleEventAfterStopLeavesPromptAlone(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, out := newTestDisplay(false)
	state := &stateBox{}

	// The exchange finished before the watcher caught up with its events
	events := make(chan chat.Event, 2)
	events <- chat.Event{Type: chat.EventStateChanged, State: chat.StateSending}
	events <- chat.Event{Type: chat.EventStateChanged, State: chat.StateIdle}
	close(events)

	d.StopIndicator()
	prompt := d.Prompt(nil)
	_, _ = out.Write([]byte(prompt))

	d.Watch(context.Background(), events, state.get)

	assert.False(t, d.spinner.Active())
	assert.Equal(t, prompt, out.String(), "nothing is drawn over the prompt")
}

func TestWatch_StopsOnContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, _ := newTestDisplay(false)
	state := &stateBox{state: chat.StateSending}
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan chat.Event)
	done := make(chan struct{})
	go func() {
		d.Watch(ctx, events, state.get)
		close(done)
	}()

	events <- chat.Event{Type: chat.EventStateChanged, State: chat.StateSending}
	cancel()
	<-done
	assert.False(t, d.spinner.Active())
}
