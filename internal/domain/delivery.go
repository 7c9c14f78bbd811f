package domain

import "context"

// Sink receives responses buffered in debug mode.
type Sink interface {
	Append(p OutboundPayload)
}

// Poster transmits a response to the messaging API of a team.
type Poster interface {
	PostMessage(ctx context.Context, teamID string, msg WireMessage) error
}
