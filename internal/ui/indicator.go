package ui

import (
	"context"

	"cyberbuddy/internal/chat"
)

// Watch drives the activity indicator from controller events until events
// is closed or ctx is done. current reports the controller's live state; an
// event that is already stale when handled does not start the indicator.
func (d *Display) Watch(ctx context.Context, events <-chan chat.Event, current func() chat.State) {
	defer d.StopIndicator()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Type != chat.EventStateChanged {
				continue
			}
			d.indicate(evt.State, current)
		}
	}
}

// StopIndicator clears the activity indicator before output is printed
func (d *Display) StopIndicator() {
	d.indicatorMu.Lock()
	defer d.indicatorMu.Unlock()
	d.spinner.Stop()
}

func (d *Display) indicate(s chat.State, current func() chat.State) {
	d.indicatorMu.Lock()
	defer d.indicatorMu.Unlock()

	label := activityLabel(s)
	if label == "" || current() != s {
		d.spinner.Stop()
		return
	}
	d.spinner.Start(label)
}

func activityLabel(s chat.State) string {
	switch s {
	case chat.StateSending:
		return "Cyber Buddy is typing..."
	case chat.StateEditing:
		return "Regenerating reply..."
	case chat.StateScanning:
		return "Scanning URL..."
	default:
		return ""
	}
}
