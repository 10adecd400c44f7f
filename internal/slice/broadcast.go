package slice

import "sync"

// Change tells subscribers that a slice's state moved.
type Change struct {
	Resource string
	Kind     OpKind
	OpID     string
	Status   OpStatus
}

// Broadcaster fans out changes to all subscribers via buffered channels,
// dropping for readers that fall behind.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan Change]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 16
	}
	return &Broadcaster{
		subs:   make(map[chan Change]struct{}),
		buffer: buffer,
	}
}

// Publish sends the change to all subscribers.
func (b *Broadcaster) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
			// slow reader, it will re-read state on the next change
		}
	}
}

// Subscribe returns a channel that receives changes until Unsubscribe is called.
func (b *Broadcaster) Subscribe() chan Change {
	ch := make(chan Change, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *Broadcaster) Unsubscribe(ch chan Change) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
