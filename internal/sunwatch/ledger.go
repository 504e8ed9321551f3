package sunwatch

import (
	"sync"
	"time"

	"github.com/true1853/sunrise-bot/internal/solar"
)

// Key identifies one deliverable reminder. Date is the civil date in the
// location's timezone, formatted as "2006-01-02".
type Key struct {
	ChatID int64
	Date   string
	Kind   solar.EventKind
	Offset time.Duration
}

// Ledger records successfully delivered reminders for the current day.
// Presence of a key means "already sent". The ledger is in-memory only; a
// restart may repeat at most one reminder per open window, which is accepted.
type Ledger struct {
	mu   sync.Mutex
	sent map[Key]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{sent: map[Key]struct{}{}}
}

func (l *Ledger) Sent(k Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sent[k]
	return ok
}

func (l *Ledger) MarkSent(k Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent[k] = struct{}{}
}

// Purge drops every entry whose date differs from keepDate and returns how
// many were removed. Safe to run at any wall-clock time: same-day entries
// are never touched.
func (l *Ledger) Purge(keepDate string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k := range l.sent {
		if k.Date != keepDate {
			delete(l.sent, k)
			removed++
		}
	}
	return removed
}
