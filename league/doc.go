// Package league implements the coordinator actor: the single owner of the
// roster, the schedule and the standings ledger. All roster-mutating and
// schedule-creating operations are serialized under one lock per league run,
// so concurrent registrations can never produce duplicate agent identifiers or
// a roster observed in two different states. Standings are never patched
// incrementally: every accepted terminal result is appended to a durable log
// and the full table is recomputed by replaying that log, which makes report
// application idempotent and crash recovery a pure replay.
package league
