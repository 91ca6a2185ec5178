package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrCorruptLedger indicates the persisted song ledger cannot be parsed.
	// Startup must refuse to proceed rather than auto-repair.
	ErrCorruptLedger = errors.New("corrupt ledger")

	// ErrUnreadableMedia indicates a stored media file exists but its tag
	// container cannot be opened
	ErrUnreadableMedia = errors.New("unreadable media")

	// ErrFetchFailed indicates a remote byte fetch failed for one song
	ErrFetchFailed = errors.New("fetch failed")

	// ErrInternalConsistency indicates the ledger and the content store
	// disagree (a nominally present file is gone)
	ErrInternalConsistency = errors.New("ledger/store inconsistency")

	// ErrPipelineBusy indicates a fetch invocation is already running for
	// the playlist
	ErrPipelineBusy = errors.New("fetch already in progress")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
