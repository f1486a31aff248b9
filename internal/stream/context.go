package stream

import "sync"

// Handler receives one emitted record from an operator. Handlers run
// synchronously on the producing operator's task, per spec's Stream
// Context contract — they must not block longer than the scheduler's
// yield cadence.
type Handler func(Record)

// Context maps stream_id -> Buffer and stream_id -> registered Handlers,
// the Go counterpart of the Python StreamingContext. It owns no
// scheduling; operators and the Engine drive it.
type Context struct {
	mu       sync.Mutex
	buffers  map[string]*Buffer
	handlers map[string][]Handler
}

// NewContext constructs an empty Context.
func NewContext() *Context {
	return &Context{
		buffers:  make(map[string]*Buffer),
		handlers: make(map[string][]Handler),
	}
}

// GetBuffer returns the named buffer, registering buf under streamID if
// none exists yet. maxSize and windowSize are not used; buf is stored as
// given.
func (c *Context) GetBuffer(streamID string, maxSize int, windowSize int64, buf *Buffer) *Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.buffers[streamID]; ok {
		return existing
	}
	c.buffers[streamID] = buf
	return buf
}

// RegisterHandler attaches h to streamID; it fires on every Notify call
// for that stream.
func (c *Context) RegisterHandler(streamID string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[streamID] = append(c.handlers[streamID], h)
}

// Notify invokes every handler registered for streamID synchronously, in
// registration order.
func (c *Context) Notify(streamID string, r Record) {
	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[streamID]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(r)
	}
}
