package voice

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

type fakeLink struct {
	mu        sync.Mutex
	notify    func(Event)
	rejoin    func(l *fakeLink) error
	rejoins   int
	closed    int
	frames    [][]byte
	speaking  bool
	channelID string
}

func (l *fakeLink) Open(notify func(Event)) error {
	l.mu.Lock()
	l.notify = notify
	l.mu.Unlock()
	return nil
}

func (l *fakeLink) emit(ev Event) {
	l.mu.Lock()
	notify := l.notify
	l.mu.Unlock()
	notify(ev)
}

func (l *fakeLink) Rejoin() error {
	l.mu.Lock()
	l.rejoins++
	fn := l.rejoin
	l.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(l)
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
	return nil
}

func (l *fakeLink) ChannelID() string { return l.channelID }

func (l *fakeLink) SendFrame(ctx context.Context, frame []byte) error {
	l.mu.Lock()
	l.frames = append(l.frames, frame)
	l.mu.Unlock()
	return nil
}

func (l *fakeLink) Speaking(speaking bool) {
	l.mu.Lock()
	l.speaking = speaking
	l.mu.Unlock()
}

func (l *fakeLink) counts() (rejoins, closed, frames int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rejoins, l.closed, len(l.frames)
}

// fakeResource yields its frames and then io.EOF, or frames forever when
// endless is set.
type fakeResource struct {
	mu      sync.Mutex
	frames  [][]byte
	endless bool
	delay   time.Duration
	failErr error
	closed  bool
}

func (r *fakeResource) ReadFrame() ([]byte, error) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endless {
		return []byte{0xf8, 0xff, 0xfe}, nil
	}
	if len(r.frames) == 0 {
		if r.failErr != nil {
			return nil, r.failErr
		}
		return nil, io.EOF
	}
	f := r.frames[0]
	r.frames = r.frames[1:]
	return f, nil
}

func (r *fakeResource) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeResource) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

var errRejoin = errors.New("gateway unavailable")
