package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

type Handler func(Message)

// Subscription identifies one handler registration.
type Subscription struct {
	id    uint64
	event Event
}

type ChannelOptions struct {
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	Log          *logger.Logger
	// OnState, if set, observes every state transition.
	OnState func(State)
}

// Channel keeps one course's generation stream alive across transport drops.
// Handlers come and go without affecting the connection; only Close ends it.
type Channel struct {
	source   Source
	courseID string
	log      *logger.Logger
	minWait  time.Duration
	maxWait  time.Duration
	onState  func(State)

	hmu      sync.RWMutex
	handlers map[Event]map[uint64]Handler
	nextID   uint64

	smu    sync.RWMutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func NewChannel(source Source, courseID string, opts ChannelOptions) *Channel {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	minWait := opts.ReconnectMin
	if minWait <= 0 {
		minWait = 500 * time.Millisecond
	}
	maxWait := opts.ReconnectMax
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	if maxWait < minWait {
		maxWait = minWait
	}
	return &Channel{
		source:   source,
		courseID: courseID,
		log:      log.With("component", "ProgressChannel", "course_id", courseID),
		minWait:  minWait,
		maxWait:  maxWait,
		onState:  opts.OnState,
		handlers: make(map[Event]map[uint64]Handler),
		state:    StateDisconnected,
	}
}

func (c *Channel) Subscribe(event Event, h Handler) Subscription {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.nextID++
	id := c.nextID
	subs, ok := c.handlers[event]
	if !ok {
		subs = make(map[uint64]Handler)
		c.handlers[event] = subs
	}
	subs[id] = h
	return Subscription{id: id, event: event}
}

// Unsubscribe removes one handler. The stream keeps running.
func (c *Channel) Unsubscribe(s Subscription) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	if subs, ok := c.handlers[s.event]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(c.handlers, s.event)
		}
	}
}

func (c *Channel) dispatch(msg Message) {
	c.hmu.RLock()
	subs := c.handlers[msg.Event]
	ids := make([]uint64, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	hs := make([]Handler, 0, len(ids))
	for _, id := range ids {
		hs = append(hs, subs[id])
	}
	c.hmu.RUnlock()

	if len(hs) == 0 {
		c.log.Debug("no handler for event", "event", msg.Event)
		return
	}
	for _, h := range hs {
		h(msg)
	}
}

func (c *Channel) State() State {
	c.smu.RLock()
	defer c.smu.RUnlock()
	return c.state
}

func (c *Channel) setState(s State) {
	c.smu.Lock()
	changed := c.state != s
	c.state = s
	c.smu.Unlock()
	if !changed {
		return
	}
	c.log.Debug("progress channel state", "state", s)
	if c.onState != nil {
		c.onState(s)
	}
}

// Start begins streaming in the background. Calling it again while running is a no-op.
func (c *Channel) Start(ctx context.Context) {
	c.smu.Lock()
	if c.cancel != nil {
		c.smu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.smu.Unlock()

	go func() {
		defer close(done)
		c.run(ctx)
	}()
}

// Close stops the stream and waits for the loop to exit.
func (c *Channel) Close() {
	c.smu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.smu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Channel) run(ctx context.Context) {
	attempt := 0
	for {
		c.setState(StateConnecting)
		err := c.source.Stream(ctx, c.courseID, func() {
			attempt = 0
			c.setState(StateConnected)
		}, c.dispatch)
		c.setState(StateDisconnected)

		if ctx.Err() != nil {
			return
		}
		wait := c.backoff(attempt)
		attempt++
		if err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("progress stream dropped; reconnecting", "error", err, "wait_ms", wait.Milliseconds(), "attempt", attempt)
		} else {
			c.log.Debug("progress stream ended; reconnecting", "wait_ms", wait.Milliseconds())
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (c *Channel) backoff(attempt int) time.Duration {
	d := c.minWait
	for i := 0; i < attempt && d < c.maxWait; i++ {
		d *= 2
	}
	if d > c.maxWait {
		d = c.maxWait
	}
	return d
}
