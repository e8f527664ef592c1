package autosave

import (
	"context"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zenibako/autosave-form/messages"
)

// Transport delivers a submit to the server. Send must not block: it starts
// the request and calls done exactly once when the response, or an error,
// is in.
type Transport interface {
	Send(ctx context.Context, values url.Values, done func(*messages.Payload, error))
}

// Coordinator owns the page's single submit action. At most one request is
// in flight; triggers that arrive meanwhile collapse into one follow-up
// request carrying the newest values.
type Coordinator struct {
	page      *Page
	transport Transport
	inFlight  *flight
	pending   bool
	sent      int
}

type flight struct {
	seq         int
	started     time.Time
	values      url.Values
	cancel      context.CancelFunc
	interrupted bool
}

// Sent returns how many requests have been handed to the transport
func (c *Coordinator) Sent() int {
	c.page.mu.Lock()
	defer c.page.mu.Unlock()
	return c.sent
}

// Coordinator returns the page's submit coordinator
func (p *Page) Coordinator() *Coordinator {
	return p.coordinator
}

func (c *Coordinator) requestLocked() {
	if c.inFlight != nil {
		c.pending = true
		if c.page.config.InterruptInFlight && !c.inFlight.interrupted {
			log.Debug("Interrupting in-flight submit", "request", c.inFlight.seq)
			c.inFlight.interrupted = true
			c.page.enqueue(c.inFlight.cancel)
		}
		return
	}
	c.startLocked()
}

func (c *Coordinator) startLocked() {
	p := c.page
	c.pending = false
	c.sent++

	ctx, cancel := context.WithCancel(context.Background())
	fl := &flight{
		seq:     c.sent,
		started: p.scheduler.Now(),
		values:  p.valuesLocked(),
		cancel:  cancel,
	}
	c.inFlight = fl
	p.affordance.set(AffordanceSubmitting)

	if c.transport == nil {
		log.Warn("No transport configured, dropping submit", "form", p.formID)
		p.enqueue(func() { c.complete(fl, nil, context.Canceled) })
		return
	}

	values := fl.values
	p.enqueue(func() {
		c.transport.Send(ctx, values, func(payload *messages.Payload, err error) {
			c.complete(fl, payload, err)
		})
	})
}

// complete is the transport callback. The affordance stays submitting until
// the minimum duration since send has passed.
func (c *Coordinator) complete(fl *flight, payload *messages.Payload, err error) {
	p := c.page
	p.do(func() {
		if c.inFlight != fl {
			return
		}
		remaining := p.config.MinSubmitting - p.scheduler.Now().Sub(fl.started)
		if remaining > 0 && !fl.interrupted {
			p.scheduler.AfterFunc(remaining, func() {
				p.do(func() { c.finishLocked(fl, payload, err) })
			})
			return
		}
		c.finishLocked(fl, payload, err)
	})
}

func (c *Coordinator) finishLocked(fl *flight, payload *messages.Payload, err error) {
	p := c.page
	if c.inFlight != fl {
		return
	}
	c.inFlight = nil
	fl.cancel()

	switch {
	case fl.interrupted:
		log.Debug("Discarding response of interrupted submit", "request", fl.seq)
	case err != nil:
		log.Warn("Submit failed", "form", p.formID, "error", err)
		p.forcedDirty = true
	default:
		p.applyLocked(payload, fl.values)
	}

	if c.pending {
		c.startLocked()
		return
	}
	p.refreshAffordanceLocked()
}
