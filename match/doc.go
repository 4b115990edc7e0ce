// Package match implements the per-match lifecycle state machine driven by a
// referee actor:
//
//	PENDING -> INVITED -> AWAITING_CHOICES -> RESOLVED -> REPORTED
//
// with an error path to FORFEITED on deadline expiry (from INVITED or
// AWAITING_CHOICES) and to FAILED on unrecoverable protocol or auth errors.
// FAILED is terminal; a failed match requires operator-level rescheduling.
//
// A match is owned exclusively by the referee it was assigned to until it
// reports a terminal result. State is private per match; a referee may drive
// many matches concurrently without shared mutable fields between them.
package match
