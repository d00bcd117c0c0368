// Package digest builds the daily posting digest and dispatches it
// through the configured mail providers. Delivery failures trip a
// per-provider circuit breaker so a dead provider is skipped for a
// while instead of delaying every send.
package digest

import "errors"

// Sentinel errors for digest operations.
var (
	// ErrSendFailed indicates every configured mail provider rejected
	// the digest. The eligible postings stay unnotified and will be
	// included in the next attempt.
	ErrSendFailed = errors.New("digest send failed on all providers")

	// ErrNoMailers indicates the service was built without any provider.
	ErrNoMailers = errors.New("no mail providers configured")
)
