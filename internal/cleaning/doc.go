// Package cleaning orchestrates interactive missing-value cleaning sessions.
//
// A Session owns an immutable original snapshot, the current working
// snapshot and an append-only operation log. Operations execute on a clone
// of the current snapshot and commit only on success, so a failed operation
// never changes what the caller sees. Reset restores the original
// bit-for-bit at any point.
//
// Sessions are handed out by a Store, one lock-guarded session per id;
// operations within a session serialize on the session lock while distinct
// sessions proceed independently.
package cleaning
