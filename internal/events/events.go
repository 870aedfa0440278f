// Package events implements optional, non-blocking progress reporting
// for a validation run. Emission never backpressures the orchestrator:
// a slow or absent consumer cannot stall validation.
package events

// Event describes one step of progress through the orchestrator.
type Event struct {
	Step    string
	SubStep string
	Message string
	Done    bool
}

// Emitter fans Events out to a single buffered channel. Send drops the
// event rather than blocking when the buffer is full, so a caller that
// never drains Events() cannot wedge validation.
type Emitter struct {
	ch chan Event
}

// NewEmitter returns an Emitter with the given channel buffer size.
func NewEmitter(buffer int) *Emitter {
	if buffer < 1 {
		buffer = 1
	}
	return &Emitter{ch: make(chan Event, buffer)}
}

// Events returns the channel progress events are delivered on.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Send enqueues ev, dropping it silently if the buffer is full.
func (e *Emitter) Send(ev Event) {
	if e == nil {
		return
	}
	select {
	case e.ch <- ev:
	default:
	}
}

// Close signals no further events will be sent.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	close(e.ch)
}
