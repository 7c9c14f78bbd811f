package domain

import "strings"

// User is the chat participant a response is addressed to.
type User struct {
	ID   string
	Name string
	Room string // channel the user spoke in
}

// TextMessage is the inbound message that triggered a response.
type TextMessage struct {
	User User
	Text string
}

// NewTextMessage builds an inbound message from user.
func NewTextMessage(user User, text string) TextMessage {
	return TextMessage{User: user, Text: text}
}

// Payload is the outbound text of a response, one element per line.
// A single string is a one-element payload.
type Payload []string

// Text wraps a single string as a payload.
func Text(s string) Payload { return Payload{s} }

// Lines builds a payload from an ordered list of strings.
func Lines(lines ...string) Payload { return Payload(lines) }

// Joined returns the payload as one newline-separated string.
func (p Payload) Joined() string { return strings.Join(p, "\n") }

// OutboundPayload is the buffered form of a response in debug mode.
type OutboundPayload struct {
	Strings []string `json:"strings"`
	Reply   bool     `json:"reply"`
}

// WireMessage is the transmitted form of a response.
// Strings carries the base64url-encoded joined text.
type WireMessage struct {
	UserUID    string `json:"user_uid"`
	ChannelUID string `json:"channel_uid"`
	Strings    string `json:"strings"`
	Reply      bool   `json:"reply"`
}
