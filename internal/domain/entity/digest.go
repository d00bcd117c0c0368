package entity

import "time"

// DigestRecord is one entry in the digest send history.
type DigestRecord struct {
	ID        int64
	SentAt    time.Time
	JobCount  int
	Recipient string
	Status    DigestStatus
}

// DigestStatus is the outcome of a digest send attempt.
type DigestStatus string

const (
	// DigestStatusSent means the mail API accepted the message.
	DigestStatusSent DigestStatus = "sent"
	// DigestStatusFailed means every delivery channel rejected the message.
	DigestStatusFailed DigestStatus = "failed"
	// DigestStatusSkipped means there were no eligible postings to send.
	DigestStatusSkipped DigestStatus = "skipped"
)
