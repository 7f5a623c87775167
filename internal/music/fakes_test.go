package music

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/hxnx/jukebot/internal/voice"
)

// fakeLink reaches Ready right after Open unless stuck is set.
type fakeLink struct {
	mu        sync.Mutex
	channelID string
	stuck     bool
	notify    func(voice.Event)
	closed    bool
}

func (l *fakeLink) Open(notify func(voice.Event)) error {
	l.mu.Lock()
	l.notify = notify
	stuck := l.stuck
	l.mu.Unlock()

	go func() {
		notify(voice.Event{Kind: voice.EventSignalling})
		if !stuck {
			notify(voice.Event{Kind: voice.EventReady})
		}
	}()
	return nil
}

func (l *fakeLink) emit(ev voice.Event) {
	l.mu.Lock()
	notify := l.notify
	l.mu.Unlock()
	notify(ev)
}

func (l *fakeLink) Rejoin() error { return nil }

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeLink) ChannelID() string { return l.channelID }

func (l *fakeLink) SendFrame(ctx context.Context, frame []byte) error { return nil }

func (l *fakeLink) Speaking(bool) {}

type fakeDialer struct {
	mu    sync.Mutex
	stuck bool
	links []*fakeLink
}

func (d *fakeDialer) dial(guildID, channelID string) voice.Link {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := &fakeLink{channelID: channelID, stuck: d.stuck}
	d.links = append(d.links, l)
	return l
}

func (d *fakeDialer) last() *fakeLink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.links[len(d.links)-1]
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
	// entered, when set, receives each query and the search then blocks until ctx ends.
	entered chan string
}

func (s *fakeSearcher) Search(ctx context.Context, query string) (Track, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	err := s.err
	entered := s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- query
		<-ctx.Done()
		return Track{}, ctx.Err()
	}
	if err != nil {
		return Track{}, err
	}
	return Track{ID: query, Title: query, URL: "https://www.youtube.com/watch?v=" + query}, nil
}

func (s *fakeSearcher) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.queries...)
}

type fakeStreamer struct {
	mu        sync.Mutex
	opened    []Track
	resources []*fakeResource
	frames    int // 0 means endless
	err       error
	// release, when set, blocks Open until closed, ignoring ctx.
	release chan struct{}
}

func (s *fakeStreamer) Open(ctx context.Context, track Track) (voice.Resource, error) {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, track)
	if s.err != nil {
		return nil, s.err
	}
	res := &fakeResource{remaining: s.frames, endless: s.frames == 0}
	s.resources = append(s.resources, res)
	return res, nil
}

func (s *fakeStreamer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.opened)
}

func (s *fakeStreamer) resource(i int) *fakeResource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resources[i]
}

type fakeResource struct {
	mu        sync.Mutex
	remaining int
	endless   bool
	closed    bool
}

func (r *fakeResource) ReadFrame() ([]byte, error) {
	time.Sleep(time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endless {
		return []byte{1}, nil
	}
	if r.remaining == 0 {
		return nil, io.EOF
	}
	r.remaining--
	return []byte{1}, nil
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

type fakeHistory struct {
	mu     sync.Mutex
	tracks []Track
}

func (h *fakeHistory) Record(ctx context.Context, guildID string, track Track) error {
	h.mu.Lock()
	h.tracks = append(h.tracks, track)
	h.mu.Unlock()
	return nil
}

func (h *fakeHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tracks)
}
