// Package lane serializes event processing per session. Each session gets a
// bounded FIFO lane drained by a single goroutine, so handlers observe one
// event at a time per session while independent sessions proceed in
// parallel.
package lane

import (
	"context"
	"sync"

	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/pkg/logger"
	"github.com/talentlens/engine/pkg/metrics"
)

const defaultBufferSize = 1024

// Handler consumes events in lane order. A handler runs on exactly one
// goroutine per session.
type Handler func(ctx context.Context, e event.Event)

// Dispatcher routes events onto per-session lanes, creating lanes on first
// use and tearing them down when a session is finalized.
type Dispatcher struct {
	handler    Handler
	bufferSize int
	log        logger.Logger

	mu     sync.RWMutex
	lanes  map[string]*sessionLane
	closed bool
	wg     sync.WaitGroup
}

type sessionLane struct {
	events chan event.Event

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher that feeds events to handler.
func NewDispatcher(handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handler:    handler,
		bufferSize: defaultBufferSize,
		log:        logger.Named("lane"),
		lanes:      map[string]*sessionLane{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch places an event on its session's lane, blocking when the lane is
// full until capacity frees up or ctx is canceled. Events for the same
// session are handled strictly in dispatch order.
func (d *Dispatcher) Dispatch(ctx context.Context, e event.Event) error {
	ln, err := d.laneFor(ctx, e.SessionID)
	if err != nil {
		return err
	}

	ln.mu.RLock()
	defer ln.mu.RUnlock()
	if ln.closed {
		return ErrLaneClosed
	}

	select {
	case ln.events <- e:
		metrics.UpdateLaneDepth(len(ln.events))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) laneFor(ctx context.Context, sessionID string) (*sessionLane, error) {
	d.mu.RLock()
	ln, ok := d.lanes[sessionID]
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return ln, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if ln, ok := d.lanes[sessionID]; ok {
		return ln, nil
	}

	ln = &sessionLane{events: make(chan event.Event, d.bufferSize)}
	d.lanes[sessionID] = ln
	metrics.UpdateLaneCount(len(d.lanes))
	d.log.Debug(ctx, "lane opened", logger.String("session_id", sessionID))

	d.wg.Add(1)
	go d.drain(ln)
	return ln, nil
}

// drain is the single consumer of one lane.
func (d *Dispatcher) drain(ln *sessionLane) {
	defer d.wg.Done()
	ctx := context.Background()
	for e := range ln.events {
		d.handler(ctx, e)
		metrics.UpdateLaneDepth(len(ln.events))
	}
}

// CloseLane stops accepting events for a session and lets its lane drain.
// Safe to call for unknown sessions.
func (d *Dispatcher) CloseLane(sessionID string) {
	d.mu.Lock()
	ln, ok := d.lanes[sessionID]
	if ok {
		delete(d.lanes, sessionID)
		metrics.UpdateLaneCount(len(d.lanes))
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	ln.mu.Lock()
	if !ln.closed {
		ln.closed = true
		close(ln.events)
	}
	ln.mu.Unlock()
}

// LaneCount reports how many sessions currently have open lanes.
func (d *Dispatcher) LaneCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lanes)
}

// Depth reports the queued event count for one session's lane.
func (d *Dispatcher) Depth(sessionID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if ln, ok := d.lanes[sessionID]; ok {
		return len(ln.events)
	}
	return 0
}

// Close stops accepting new events, closes every lane and waits for the
// drain goroutines to finish the queued work, or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	lanes := d.lanes
	d.lanes = map[string]*sessionLane{}
	d.mu.Unlock()

	for _, ln := range lanes {
		ln.mu.Lock()
		if !ln.closed {
			ln.closed = true
			close(ln.events)
		}
		ln.mu.Unlock()
	}
	metrics.UpdateLaneCount(0)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
