// Package response delivers a bot's answer to the user and channel of the
// message that triggered it.
//
// In debug mode the answer is appended to a Sink; otherwise it is encoded and
// posted to the messaging API of the robot's team through a Poster.
package response

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nestor/internal/domain"
	"nestor/internal/metrics"
	"nestor/internal/nestorapi"
)

var (
	// ErrNoPoster is returned by an API-mode delivery without a Poster.
	ErrNoPoster = errors.New("response: no poster configured")
	// ErrNoSink is returned by a debug-mode delivery without a Sink.
	ErrNoSink = errors.New("response: no debug sink configured")
)

// Config wires a Response to its collaborators.
type Config struct {
	Robot   *domain.Robot
	Message domain.TextMessage
	Poster  domain.Poster // used when the robot is not in debug mode
	Sink    domain.Sink   // used when the robot is in debug mode
	Metrics *metrics.DeliveryMetrics
	Logger  *slog.Logger
}

// Response answers one inbound message. It keeps no state between calls;
// every Send or Reply is delivered on its own.
type Response struct {
	robot   *domain.Robot
	message domain.TextMessage
	poster  domain.Poster
	sink    domain.Sink
	metrics *metrics.DeliveryMetrics
	logger  *slog.Logger

	userUID    string
	channelUID string
	teamID     string
}

// New creates a Response for cfg.Message on behalf of cfg.Robot.
func New(cfg Config) *Response {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	robot := cfg.Robot
	if robot == nil {
		robot = &domain.Robot{}
	}
	return &Response{
		robot:      robot,
		message:    cfg.Message,
		poster:     cfg.Poster,
		sink:       cfg.Sink,
		metrics:    cfg.Metrics,
		logger:     logger,
		userUID:    cfg.Message.User.ID,
		channelUID: cfg.Message.User.Room,
		teamID:     robot.TeamID,
	}
}

// Message returns the message being answered.
func (r *Response) Message() domain.TextMessage { return r.message }

// Send delivers payload to the channel of the originating user.
func (r *Response) Send(ctx context.Context, payload domain.Payload) error {
	return r.deliver(ctx, payload, false, r.robot.DebugMode())
}

// Reply delivers payload as a reply to the originating user.
func (r *Response) Reply(ctx context.Context, payload domain.Payload) error {
	return r.deliver(ctx, payload, true, r.robot.DebugMode())
}

// deliver routes payload by the debug flag the caller sampled, so one call
// never mixes the two paths.
func (r *Response) deliver(ctx context.Context, payload domain.Payload, reply, debug bool) error {
	kind := kindOf(reply)

	if debug {
		if r.sink == nil {
			r.metrics.ObserveDelivery(metrics.ModeDebug, kind, "error")
			return ErrNoSink
		}
		r.sink.Append(domain.OutboundPayload{
			Strings: append([]string{}, payload...),
			Reply:   reply,
		})
		r.metrics.ObserveDelivery(metrics.ModeDebug, kind, "ok")
		return nil
	}

	if r.poster == nil {
		r.metrics.ObserveDelivery(metrics.ModeAPI, kind, "error")
		return ErrNoPoster
	}

	msg := domain.WireMessage{
		UserUID:    r.userUID,
		ChannelUID: r.channelUID,
		Strings:    nestorapi.EncodeStrings(payload.Joined()),
		Reply:      reply,
	}

	start := time.Now()
	err := r.poster.PostMessage(ctx, r.teamID, msg)
	r.metrics.ObserveLatency(kind, time.Since(start))
	r.metrics.ObserveDelivery(metrics.ModeAPI, kind, statusOf(err))
	if err != nil {
		r.logger.Debug("response delivery failed",
			"team", r.teamID, "user", r.userUID, "channel", r.channelUID, "reply", reply, "err", err)
		return err
	}
	return nil
}

func kindOf(reply bool) string {
	if reply {
		return "reply"
	}
	return "send"
}

func statusOf(err error) string {
	if err == nil {
		return "ok"
	}
	var te *nestorapi.TransportError
	if errors.As(err, &te) {
		return "transport_error"
	}
	if _, ok := nestorapi.IsAPIError(err); ok {
		return "api_error"
	}
	return "error"
}
