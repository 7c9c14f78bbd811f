package domain

import "sync/atomic"

// Robot is the bot runtime handle a response is sent on behalf of.
type Robot struct {
	TeamID string
	BotUID string

	debug atomic.Bool
}

// NewRobot creates a robot for the given team.
func NewRobot(teamID, botUID string, debug bool) *Robot {
	r := &Robot{TeamID: teamID, BotUID: botUID}
	r.debug.Store(debug)
	return r
}

// DebugMode reports whether outbound messages are buffered instead of sent.
func (r *Robot) DebugMode() bool { return r.debug.Load() }

// SetDebugMode toggles debug mode. Takes effect on the next send.
func (r *Robot) SetDebugMode(on bool) { r.debug.Store(on) }
