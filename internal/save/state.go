package save

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the coordinator's position in Idle → PendingChange → Settled →
// Committing → Idle.
type State int

const (
	StateIdle State = iota
	StatePendingChange
	StateSettled
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingChange:
		return "pending"
	case StateSettled:
		return "settled"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// Input is the user-editable save target: which path and what text.
type Input struct {
	Novel     string
	Attribute string
	Data      string
}

// Committed records the last pair known to be in the store.
type Committed struct {
	Path string
	Data string
	At   time.Time
}

// Context owns all mutable state of one logical save target. Exactly one
// Coordinator uses a Context.
type Context struct {
	mu            sync.Mutex
	state         State
	buffer        Input
	lastObserved  Input
	lastCommitted *Committed
	saving        atomic.Bool
}

func (c *Context) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Buffer returns the current input buffer.
func (c *Context) Buffer() Input {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// LastCommitted returns the last committed pair, if any.
func (c *Context) LastCommitted() (Committed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastCommitted == nil {
		return Committed{}, false
	}
	return *c.lastCommitted, true
}

// Saving reports whether a commit is in flight.
func (c *Context) Saving() bool {
	return c.saving.Load()
}

// observe stores in as the buffer and reports whether it differs from the
// previous observation.
func (c *Context) observe(in Input) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer = in
	if in == c.lastObserved {
		return false
	}
	c.lastObserved = in
	if c.state == StateIdle {
		c.state = StatePendingChange
	}
	return true
}

func (c *Context) markCommitted(path, data string, at time.Time) {
	c.mu.Lock()
	c.lastCommitted = &Committed{Path: path, Data: data, At: at}
	c.mu.Unlock()
}

// consumeData clears the data buffer if it still holds data. A buffer that
// changed since the commit started is left alone.
func (c *Context) consumeData(data string) (Input, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buffer.Data != data {
		return c.buffer, false
	}
	c.buffer.Data = ""
	c.lastObserved = c.buffer
	return c.buffer, true
}

// rewriteAttribute replaces the buffered attribute after normalisation.
func (c *Context) rewriteAttribute(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buffer.Attribute == from {
		c.buffer.Attribute = to
		c.lastObserved = c.buffer
	}
}
