package emergency

import "errors"

// Error taxonomy surfaced to callers. Lower layers wrap the underlying
// cause with %w so errors.Is works across layers.
var (
	// ErrNotFound: referenced emergency or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument: malformed status value or missing required trigger
	// fields after defaulting.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState: mutation attempted against a terminal-status emergency.
	ErrInvalidState = errors.New("emergency is in a terminal state")

	// ErrAlreadyConfirmed: duplicate confirmation by the same responder.
	ErrAlreadyConfirmed = errors.New("responder has already confirmed")

	// ErrStorage: underlying store unreachable or rejected the operation.
	ErrStorage = errors.New("storage error")

	// ErrDirectoryUnavailable: responder resolution failed. Distinct from a
	// directory that is reachable but holds zero notifiable users.
	ErrDirectoryUnavailable = errors.New("responder directory unavailable")

	// ErrPermissionDenied: actor's role may not perform the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTimeout: a bounded wait was exceeded.
	ErrTimeout = errors.New("operation timed out")
)
