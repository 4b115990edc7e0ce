// Package referee implements the match referee actor. A referee owns the
// matches assigned to it by the coordinator: it invites both players, enforces
// the join and choice deadlines, draws the number, resolves the outcome and
// reports the terminal result to the coordinator exactly once.
package referee
