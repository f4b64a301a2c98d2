package ingest

import "time"

// retryBackoff is the delay schedule indexed by the retry count at failure
// time. Retries past the table all wait the terminal delay.
var retryBackoff = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
}

const terminalBackoff = time.Hour

// NextBackoff returns how long a job waits before its next attempt, given
// how many retries it has already had.
func NextBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount < len(retryBackoff) {
		return retryBackoff[retryCount]
	}
	return terminalBackoff
}
