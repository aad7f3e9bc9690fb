package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"cyberbuddy/internal/backend"
	"cyberbuddy/internal/history"
)

var errNetwork = errors.New("connection refused")

// fakeBackend records calls and returns canned replies
type fakeBackend struct {
	mu sync.Mutex

	history    []history.Session
	historyErr error

	chatReply *backend.ChatReply
	chatErr   error
	chatCalls []backend.ChatRequest
	// chatBlock, when set, is waited on before Chat returns
	chatBlock chan struct{}

	editReply *backend.EditReply
	editErr   error
	editCalls []backend.EditRequest

	deleteErr   error
	deleteCalls []string

	scanReport *backend.ScanReport
	scanErr    error
	scanCalls  []string
}

func (f *fakeBackend) History(context.Context) ([]history.Session, error) {
	return f.history, f.historyErr
}

func (f *fakeBackend) Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatReply, error) {
	f.mu.Lock()
	f.chatCalls = append(f.chatCalls, req)
	block := f.chatBlock
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	if f.chatReply == nil {
		return &backend.ChatReply{Response: "ok"}, nil
	}
	return f.chatReply, nil
}

func (f *fakeBackend) EditMessage(_ context.Context, req backend.EditRequest) (*backend.EditReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editCalls = append(f.editCalls, req)
	return f.editReply, f.editErr
}

func (f *fakeBackend) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	return f.deleteErr
}

func (f *fakeBackend) ScanURL(_ context.Context, url string) (*backend.ScanReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanCalls = append(f.scanCalls, url)
	return f.scanReport, f.scanErr
}

func (f *fakeBackend) chatCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chatCalls)
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
