package linker

import "errors"

var (
	// ErrOffsetNotConfigured means the entry point has no offset resolved
	// for the process's game version — nothing in the retrieved pack
	// supplies these addresses for anything but the two event hooks, so
	// callers must populate Offsets themselves (e.g. from a packaged
	// per-version address table) before invoking the entry point.
	ErrOffsetNotConfigured = errors.New("linker: no offset configured for this entry point and game version")
	ErrScratchExhausted    = errors.New("linker: scratch heap exhausted while marshaling a guest string")
)
