package ledger

import "time"

// SetNow overrides the clock used for hold expiry.
func (l *Ledger) SetNow(now func() time.Time) {
	l.now = now
}
