package coordination

import "errors"

// Error taxonomy shared by the persistence layer, notification transport,
// and both loops. See spec.md §7.
var (
	// ErrConnection marks a lost or unacquirable database connection.
	// Fatal for the loop that observes it.
	ErrConnection = errors.New("coordination: database connection error")

	// ErrDecode marks a notification payload that failed to decode.
	// Fatal; indicates a protocol-version mismatch between supervisor and
	// worker binaries.
	ErrDecode = errors.New("coordination: notification decode error")

	// ErrNotFound marks a missing row for a find-by-id lookup.
	ErrNotFound = errors.New("coordination: not found")

	// ErrTransientMiss marks a predicated update that affected zero rows
	// (dispatch lost the race, or complete ran against a non-matching
	// status). Never fatal; callers log it at debug and move on.
	ErrTransientMiss = errors.New("coordination: transient miss")

	// ErrWatchdogDied marks the worker watchdog's heartbeat loop aborting.
	// Fatal for the worker process.
	ErrWatchdogDied = errors.New("coordination: watchdog died")

	// ErrConnectionLost marks a notification transport connection that
	// will not recover on its own.
	ErrConnectionLost = errors.New("coordination: notification connection lost")
)
