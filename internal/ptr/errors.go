// Package ptr implements typed, bounds-checked field access into the
// emulated process's heap — the Go counterpart of blueflame's Ptr!/mem!
// macros. It never builds host-side linked objects out of PMDM's intrusive
// lists: every read goes back through a MemoryView at the moment it's
// needed, and list traversal is a flat read-only walk bounded by a maximum
// item count and a head-equals-sentinel termination check, per spec's
// "must not shadow these as host-side doubly-linked objects with
// bidirectional strong references" constraint.
package ptr

import "errors"

// ErrLayoutNotConfigured is returned by any read that needs a field offset
// the active Layout hasn't been given. The retrieved reference material
// names PouchItem's and PMDM's fields (mName, mType, mEquipped, mListNode,
// mTabs, ...) but not their byte offsets — those are a per-binary-version
// fact nothing in the pack pins down, so a Layout must be supplied
// externally (internal/config, from a packaged per-version layout table)
// rather than hardcoded here.
var ErrLayoutNotConfigured = errors.New("ptr: struct layout not configured")

// ErrListTooLong is returned when a list traversal exceeds MaxListItems
// without reaching its head again — a guard against corrupt or
// artificially-cyclic memory producing an unbounded walk.
var ErrListTooLong = errors.New("ptr: list traversal exceeded maximum item count without finding the sentinel")
