// Package impute implements the missing-value imputation engine: numeric and
// categorical fill strategies, the label encode/decode round-trip that lets
// categorical columns ride the numeric KNN imputer, and threshold-based
// column dropping.
//
// # Contracts
//
// Every operation takes a dataset snapshot and returns a new one; inputs are
// never mutated. Operations report what actually happened through an Outcome
// (modified columns with before/after missing counts, skipped columns,
// warnings) so a silent no-op is surfaced rather than claimed as success.
//
// Failure handling follows a downgrade policy: column-local failures become
// fallbacks (categorical KNN falls back to mode per column), and only
// whole-operation failures propagate as typed errors — InsufficientDataError,
// EncodingError, DecodingError and ValidationError. Nothing in this package
// panics on malformed data.
//
// # Determinism
//
// Mode tie-breaks are deterministic: numeric mode picks the smallest of the
// most frequent values, categorical mode picks the first encountered in row
// order. Label codes are assigned in first-encountered row order. Decoding
// snaps continuous code estimates to the nearest valid category (round, then
// clamp into [0, k-1]); this is a nearest-valid-category heuristic, not exact
// recovery, and is lossy when codes land far from integers.
package impute
