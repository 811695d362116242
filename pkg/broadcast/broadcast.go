package broadcast

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/dragonrelay/pkg/metrics"
	"github.com/tauraamui/dragonrelay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var ErrClosed = xerror.New("broadcaster has been closed")

// Broadcaster holds the most recently published frame and hands it
// to every registered listener. Publishing never waits on listeners,
// a listener which falls behind only ever sees the newest frame.
type Broadcaster struct {
	mu        sync.Mutex
	seq       uint64
	latest    videoframe.Encoded
	closed    bool
	listeners map[string]*Listener
}

func New() *Broadcaster {
	return &Broadcaster{listeners: map[string]*Listener{}}
}

// Publish replaces the latest frame with a new immutable value stamped
// with the next sequence number. It reports false once the broadcaster
// has been closed.
func (b *Broadcaster) Publish(data []byte, mimeType string) (videoframe.Encoded, bool) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return videoframe.Encoded{}, false
	}
	b.seq++
	frame := videoframe.Encoded{
		Seq:       b.seq,
		MIMEType:  mimeType,
		Data:      data,
		Timestamp: time.Now(),
	}
	b.latest = frame
	listeners := b.snapshotLocked()
	b.mu.Unlock()

	for _, l := range listeners {
		l.offer(frame)
	}
	return frame, true
}

func (b *Broadcaster) Latest() (videoframe.Encoded, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, !b.latest.IsZero()
}

// Listen registers a new listener. If a frame has already been
// published the listener starts from it.
func (b *Broadcaster) Listen() (*Listener, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	l := &Listener{
		id:     uuid.NewString(),
		b:      b,
		notify: make(chan struct{}, 1),
	}
	if !b.latest.IsZero() {
		latest := b.latest
		l.pending = &latest
	}
	b.listeners[l.id] = l
	return l, nil
}

func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Broadcaster) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close ends every listener and rejects further publishes and listens.
// Calling it more than once is a no-op.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	listeners := b.snapshotLocked()
	b.listeners = map[string]*Listener{}
	b.mu.Unlock()

	for _, l := range listeners {
		l.end()
	}
}

func (b *Broadcaster) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, id)
}

func (b *Broadcaster) snapshotLocked() []*Listener {
	listeners := make([]*Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

// Listener is a single slot mailbox fed by the broadcaster. Next must
// only be called from one goroutine.
type Listener struct {
	id      string
	b       *Broadcaster
	notify  chan struct{}
	mu      sync.Mutex
	pending *videoframe.Encoded
	lastSeq uint64
	ended   bool
}

func (l *Listener) ID() string { return l.id }

func (l *Listener) offer(frame videoframe.Encoded) {
	l.mu.Lock()
	if l.ended || frame.Seq <= l.lastSeq {
		l.mu.Unlock()
		return
	}
	if l.pending != nil {
		if frame.Seq <= l.pending.Seq {
			l.mu.Unlock()
			return
		}
		metrics.FramesSkipped.Inc()
	}
	l.pending = &frame
	l.mu.Unlock()
	l.wake()
}

func (l *Listener) wake() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a frame newer than the last one returned is
// available. It returns io.EOF once the listener or its broadcaster
// has been closed, and the context error if ctx is done first.
func (l *Listener) Next(ctx context.Context) (videoframe.Encoded, error) {
	for {
		l.mu.Lock()
		if l.ended {
			l.mu.Unlock()
			return videoframe.Encoded{}, io.EOF
		}
		if l.pending != nil {
			frame := *l.pending
			l.pending = nil
			l.lastSeq = frame.Seq
			l.mu.Unlock()
			return frame, nil
		}
		l.mu.Unlock()

		select {
		case <-l.notify:
		case <-ctx.Done():
			return videoframe.Encoded{}, ctx.Err()
		}
	}
}

func (l *Listener) end() {
	l.mu.Lock()
	l.ended = true
	l.pending = nil
	l.mu.Unlock()
	l.wake()
}

// Close unregisters the listener, any blocked Next returns io.EOF.
func (l *Listener) Close() {
	l.b.remove(l.id)
	l.end()
}
