package voice

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Connection runs the state machine for one Link. Link reports and timer
// expiries are serialized through a single goroutine.
type Connection struct {
	link   Link
	logger *zap.Logger

	mu        sync.Mutex
	machine   Machine
	waiters   watchers[State]
	listeners []func(prev, next State)

	events chan Event
	done   chan struct{}

	// Owned by the run goroutine.
	timers   map[EventKind]*time.Timer
	timerSeq map[EventKind]uint64

	stopPlayback func()
}

type timedEvent struct {
	Event
	seq uint64
}

func NewConnection(link Link, policy Policy, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{
		link:     link,
		logger:   logger,
		machine:  NewMachine(policy),
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
		timers:   make(map[EventKind]*time.Timer),
		timerSeq: make(map[EventKind]uint64),
	}
}

// Open starts the event loop and asks the link to join.
func (c *Connection) Open() error {
	timed := make(chan timedEvent, 4)
	go c.run(timed)
	return c.link.Open(c.post)
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State
}

func (c *Connection) RejoinAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.RejoinAttempts
}

func (c *Connection) ChannelID() string {
	return c.link.ChannelID()
}

// Done is closed once the connection is destroyed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// OnStateChange registers fn for every state transition. fn runs on the
// connection goroutine and must not block.
func (c *Connection) OnStateChange(fn func(prev, next State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Destroy tears the connection down permanently.
func (c *Connection) Destroy() {
	c.post(Event{Kind: EventDestroy})
}

// WaitFor blocks until the connection enters target, the timeout elapses or
// ctx ends. Waiting for any other state fails with ErrDestroyed once the
// connection is destroyed.
func (c *Connection) WaitFor(ctx context.Context, target State, timeout time.Duration) error {
	c.mu.Lock()
	current := c.machine.State
	if current == target {
		c.mu.Unlock()
		return nil
	}
	if current == StateDestroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	wt := c.waiters.add(target)
	c.mu.Unlock()

	return await(ctx, wt, timeout, "voice connection", func() {
		c.mu.Lock()
		c.waiters.remove(wt)
		c.mu.Unlock()
	})
}

func (c *Connection) post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Connection) run(timed chan timedEvent) {
	defer c.stopTimers()

	for {
		var ev Event
		select {
		case ev = <-c.events:
		case te := <-timed:
			if te.seq != c.timerSeq[te.Kind] {
				continue
			}
			delete(c.timers, te.Kind)
			ev = te.Event
		}

		if c.handle(ev, timed) {
			close(c.done)
			return
		}
	}
}

// handle applies one event and reports whether the connection is destroyed.
func (c *Connection) handle(ev Event, timed chan timedEvent) bool {
	c.mu.Lock()
	prev := c.machine.State
	next, effects := c.machine.Apply(ev)
	c.machine = next
	if next.State != prev {
		var fail error
		if next.State == StateDestroyed {
			fail = ErrDestroyed
		}
		c.waiters.notify(next.State, fail)
	}
	listeners := append([]func(prev, next State){}, c.listeners...)
	c.mu.Unlock()

	c.logger.Debug("voice connection event",
		zap.Stringer("event", ev.Kind),
		zap.Int("closeCode", ev.CloseCode),
		zap.Stringer("from", prev),
		zap.Stringer("to", next.State),
		zap.Int("rejoinAttempts", next.RejoinAttempts))

	if next.State != StateDisconnected {
		c.stopTimer(EventRecoveryExpired)
		c.stopTimer(EventRejoinDue)
	}

	for _, eff := range effects {
		c.apply(eff, timed)
	}

	if next.State != prev {
		for _, fn := range listeners {
			fn(prev, next.State)
		}
	}

	return next.State == StateDestroyed
}

func (c *Connection) apply(eff Effect, timed chan timedEvent) {
	switch eff.Kind {
	case EffectAwaitRecovery:
		c.logger.Info("voice connection closed with 4014, waiting for channel move",
			zap.Duration("window", eff.After))
		c.startTimer(EventRecoveryExpired, eff.After, timed)
	case EffectScheduleRejoin:
		c.logger.Info("voice connection lost, scheduling rejoin", zap.Duration("after", eff.After))
		c.startTimer(EventRejoinDue, eff.After, timed)
	case EffectRejoin:
		go func() {
			if err := c.link.Rejoin(); err != nil {
				c.logger.Warn("voice rejoin failed", zap.Error(err))
				c.post(Event{Kind: EventDisconnected})
			}
		}()
	case EffectArmReadyDeadline:
		c.startTimer(EventReadyDeadline, eff.After, timed)
	case EffectDisarmReadyDeadline:
		c.stopTimer(EventReadyDeadline)
	case EffectClose:
		c.stopTimers()
		if err := c.link.Close(); err != nil {
			c.logger.Warn("failed to close voice link", zap.Error(err))
		}
	case EffectStopPlayback:
		if c.stopPlayback != nil {
			c.stopPlayback()
		}
	}
}

func (c *Connection) startTimer(kind EventKind, after time.Duration, timed chan timedEvent) {
	c.stopTimer(kind)
	c.timerSeq[kind]++
	te := timedEvent{Event: Event{Kind: kind}, seq: c.timerSeq[kind]}
	c.timers[kind] = time.AfterFunc(after, func() {
		select {
		case timed <- te:
		case <-c.done:
		}
	})
}

func (c *Connection) stopTimer(kind EventKind) {
	if t, ok := c.timers[kind]; ok {
		t.Stop()
		delete(c.timers, kind)
	}
	c.timerSeq[kind]++
}

func (c *Connection) stopTimers() {
	for kind := range c.timers {
		c.stopTimer(kind)
	}
}
