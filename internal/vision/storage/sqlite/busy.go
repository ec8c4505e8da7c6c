package sqlite

import (
	"strings"
	"time"
)

// busyMaxAttempts bounds how often a write is retried under contention.
const busyMaxAttempts = 5

// isSQLiteBusy reports whether err is a transient SQLITE_BUSY / locked
// condition worth retrying.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying with a short linear backoff while it keeps
// failing with a busy error. Non-busy errors return immediately.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyMaxAttempts; attempt++ {
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}
