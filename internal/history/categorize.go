package history

import (
	"sort"
	"time"
)

// Buckets groups sessions by recency, newest first within each group
type Buckets struct {
	Today     []Session
	Yesterday []Session
	Older     []Session
}

// Flatten returns the buckets concatenated in display order
func (b Buckets) Flatten() []Session {
	out := make([]Session, 0, len(b.Today)+len(b.Yesterday)+len(b.Older))
	out = append(out, b.Today...)
	out = append(out, b.Yesterday...)
	return append(out, b.Older...)
}

// Len returns the total number of sessions across all buckets
func (b Buckets) Len() int {
	return len(b.Today) + len(b.Yesterday) + len(b.Older)
}

// Categorize partitions sessions into today, yesterday and older by the calendar
// day of CreatedAt in now's location. Sessions dated on a future day land in Older.
func Categorize(sessions []Session, now time.Time) Buckets {
	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	yesterday := now.AddDate(0, 0, -1)
	buckets := Buckets{
		Today:     []Session{},
		Yesterday: []Session{},
		Older:     []Session{},
	}
	for _, sess := range sorted {
		created := sess.CreatedAt.In(now.Location())
		switch {
		case sameDay(created, now):
			buckets.Today = append(buckets.Today, sess)
		case sameDay(created, yesterday):
			buckets.Yesterday = append(buckets.Yesterday, sess)
		default:
			buckets.Older = append(buckets.Older, sess)
		}
	}
	return buckets
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
