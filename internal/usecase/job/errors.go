// Package job provides use cases for managing stored job postings.
// It implements business logic for querying, updating, and deleting
// postings, including validation and interaction with the job repository.
package job

import "errors"

// Sentinel errors for job use case operations.
var (
	// ErrJobNotFound indicates that the requested posting was not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidJobID indicates that the provided posting ID is invalid.
	// Posting IDs must be positive integers.
	ErrInvalidJobID = errors.New("invalid job ID")

	// ErrInvalidStatus indicates a status value outside the known set.
	ErrInvalidStatus = errors.New("invalid job status")
)
