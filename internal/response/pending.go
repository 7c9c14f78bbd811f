package response

import (
	"context"

	"nestor/internal/domain"
)

// Pending is the completion handle of an asynchronous delivery.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the delivery has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the delivery finishes and returns its error.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// Err returns the delivery error, or nil while still in flight.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// SendAsync starts Send and returns immediately. In debug mode the payload
// is already buffered when SendAsync returns.
func (r *Response) SendAsync(ctx context.Context, payload domain.Payload) *Pending {
	return r.start(ctx, payload, false, nil)
}

// ReplyAsync is the asynchronous form of Reply.
func (r *Response) ReplyAsync(ctx context.Context, payload domain.Payload) *Pending {
	return r.start(ctx, payload, true, nil)
}

// SendFunc is SendAsync with a completion callback. cb runs exactly once,
// with nil on success or the delivery error on failure, before the returned
// Pending resolves.
func (r *Response) SendFunc(ctx context.Context, payload domain.Payload, cb func(error)) *Pending {
	return r.start(ctx, payload, false, cb)
}

// ReplyFunc is ReplyAsync with a completion callback; see SendFunc.
func (r *Response) ReplyFunc(ctx context.Context, payload domain.Payload, cb func(error)) *Pending {
	return r.start(ctx, payload, true, cb)
}

func (r *Response) start(ctx context.Context, payload domain.Payload, reply bool, cb func(error)) *Pending {
	p := newPending()
	finish := func(err error) {
		if cb != nil {
			cb(err)
		}
		p.resolve(err)
	}

	// Debug delivery is an in-memory append; keep it synchronous so the
	// buffer is observable as soon as the call returns.
	debug := r.robot.DebugMode()
	if debug {
		finish(r.deliver(ctx, payload, reply, true))
		return p
	}

	go func() {
		finish(r.deliver(ctx, payload, reply, false))
	}()
	return p
}
