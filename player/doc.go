// Package player implements the player actor: it registers with the league
// coordinator, acknowledges match invitations, commits parity choices through
// a pluggable strategy and learns opponent behavior from match outcome
// notifications.
package player
