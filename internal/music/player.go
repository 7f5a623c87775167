package music

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hxnx/jukebot/internal/voice"
)

// Timings bounds every state wait the player performs.
type Timings struct {
	Ready   time.Duration
	Playing time.Duration
	Idle    time.Duration
	Advance time.Duration
	// AutoLeave destroys an idle session with an empty queue. Zero disables it.
	AutoLeave time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		Ready:   30 * time.Second,
		Playing: 5 * time.Second,
		Idle:    5 * time.Second,
		Advance: time.Minute,
	}
}

type Options struct {
	Searcher Searcher
	Streamer Streamer
	Dial     Dialer
	History  HistoryRecorder
	Policy   voice.Policy
	Timings  Timings
	Logger   *zap.Logger
}

// advanceToken is held while one advance resolves and starts a track.
type advanceToken struct {
	generation uint64
	cancel     context.CancelFunc
}

// Player owns the queue and voice session of one guild.
type Player struct {
	guildID string
	opts    Options
	logger  *zap.Logger
	queue   *Queue

	mu         sync.Mutex
	session    *voice.Session
	advance    *advanceToken
	generation uint64
	leaveTimer *time.Timer
}

func NewPlayer(guildID string, opts Options) *Player {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Player{
		guildID: guildID,
		opts:    opts,
		logger:  opts.Logger.With(zap.String("guildID", guildID)),
		queue:   NewQueue(),
	}
}

func (p *Player) Queue() *Queue { return p.queue }

func (p *Player) HasSession() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Play queues query, joins channelID and waits for audio to be playing.
func (p *Player) Play(ctx context.Context, channelID, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrEmptyQuery
	}

	p.mu.Lock()
	p.stopLeaveTimerLocked()
	p.mu.Unlock()

	p.queue.Push(query)
	p.logger.Info("queued", zap.String("query", query), zap.Int("queueLength", p.queue.Len()))

	if err := p.Connect(ctx, channelID); err != nil {
		return err
	}

	p.Tick(ctx)

	session := p.currentSession()
	if session == nil {
		return voice.ErrDestroyed
	}
	if err := session.Audio.WaitFor(ctx, voice.AudioPlaying, p.opts.Timings.Playing); err != nil {
		return fmt.Errorf("playback did not start: %w", err)
	}
	return nil
}

// Connect makes sure the guild has a ready session bound to channelID.
func (p *Player) Connect(ctx context.Context, channelID string) error {
	if channelID == "" {
		return ErrNoVoiceChannel
	}

	p.mu.Lock()
	session := p.session
	created := false
	if session == nil {
		session = voice.NewSession(p.opts.Dial(p.guildID, channelID), p.opts.Policy, p.logger.Named("voice"))
		p.session = session
		created = true
		p.watch(session)
	}
	p.mu.Unlock()

	if created {
		p.logger.Info("joining voice channel", zap.String("channelID", channelID))
		if err := session.Open(); err != nil {
			session.Destroy()
			return fmt.Errorf("failed to open voice link: %w", err)
		}
	} else if session.ChannelID() != channelID {
		return ErrWrongChannel
	}

	if err := session.WaitFor(ctx, voice.StateReady, p.opts.Timings.Ready); err != nil {
		session.Destroy()
		return fmt.Errorf("failed to connect to voice channel: %w", err)
	}
	return nil
}

// watch registers the session listeners. Called with p.mu held.
func (p *Player) watch(session *voice.Session) {
	session.Audio.OnStateChange(func(prev, next voice.AudioStatus) {
		if next == voice.AudioIdle {
			go p.afterIdle()
		}
	})
	session.OnStateChange(func(prev, next voice.State) {
		if next == voice.StateDestroyed {
			go p.dropSession(session)
		}
	})
}

func (p *Player) afterIdle() {
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.Timings.Advance)
	defer cancel()
	p.Tick(ctx)
	p.armLeaveTimer()
}

func (p *Player) dropSession(session *voice.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != session {
		return
	}
	p.session = nil
	p.queue.Clear()
	p.invalidateLocked()
	p.stopLeaveTimerLocked()
	p.logger.Info("voice session destroyed, queue cleared")
}

// Tick starts the next queued track if nothing is playing or being started.
// Failures are logged and the popped query is dropped.
func (p *Player) Tick(ctx context.Context) {
	p.mu.Lock()
	session := p.session
	if p.advance != nil || session == nil ||
		session.State() == voice.StateDestroyed ||
		session.Audio.Status() != voice.AudioIdle {
		p.mu.Unlock()
		return
	}
	query, ok := p.queue.Pop()
	if !ok {
		p.mu.Unlock()
		return
	}
	actx, cancel := context.WithCancel(ctx)
	tok := &advanceToken{generation: p.generation, cancel: cancel}
	p.advance = tok
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		if p.advance == tok {
			p.advance = nil
		}
		p.mu.Unlock()
	}()

	logger := p.logger.With(zap.String("query", query))

	track, err := p.opts.Searcher.Search(actx, query)
	if err != nil {
		logger.Error("failed to resolve query", zap.Error(err))
		return
	}

	res, err := p.opts.Streamer.Open(actx, track)
	if err != nil {
		logger.Error("failed to open stream", zap.String("url", track.URL), zap.Error(err))
		return
	}

	p.mu.Lock()
	if tok.generation != p.generation || p.session != session {
		p.mu.Unlock()
		_ = res.Close()
		logger.Debug("discarding stale advance", zap.String("url", track.URL))
		return
	}
	err = session.Audio.Play(res)
	if err == nil {
		p.stopLeaveTimerLocked()
	}
	p.mu.Unlock()

	if err != nil {
		_ = res.Close()
		logger.Error("failed to start playback", zap.Error(err))
		return
	}

	logger.Info("now playing", zap.String("title", track.Title), zap.String("url", track.URL))
	p.record(ctx, track)
}

func (p *Player) record(ctx context.Context, track Track) {
	if p.opts.History == nil {
		return
	}
	if err := p.opts.History.Record(context.WithoutCancel(ctx), p.guildID, track); err != nil {
		p.logger.Warn("failed to record play history", zap.Error(err))
	}
}

// Skip abandons any advance in flight and stops the current track; the next
// queued query starts once the player is idle.
func (p *Player) Skip(ctx context.Context) error {
	p.mu.Lock()
	p.invalidateLocked()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return nil
	}

	stopped, err := session.Audio.StopAndWait(ctx, p.opts.Timings.Idle)
	if err != nil {
		return fmt.Errorf("skip: %w", err)
	}
	if !stopped {
		go p.afterIdle()
	}
	return nil
}

// Stop clears the queue, abandons any advance in flight and stops the current
// track.
func (p *Player) Stop(ctx context.Context) error {
	p.queue.Clear()

	p.mu.Lock()
	p.invalidateLocked()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return nil
	}

	if _, err := session.Audio.StopAndWait(ctx, p.opts.Timings.Idle); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// Leave tears down the voice session, if any.
func (p *Player) Leave() {
	p.queue.Clear()
	if session := p.currentSession(); session != nil {
		session.Destroy()
	}
}

func (p *Player) currentSession() *voice.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Player) invalidateLocked() {
	p.generation++
	if p.advance != nil {
		p.advance.cancel()
		p.advance = nil
	}
}

func (p *Player) armLeaveTimer() {
	after := p.opts.Timings.AutoLeave
	if after <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.idleLocked() {
		return
	}
	p.stopLeaveTimerLocked()

	session := p.session
	p.leaveTimer = time.AfterFunc(after, func() {
		p.mu.Lock()
		leave := p.session == session && p.idleLocked()
		p.mu.Unlock()
		if leave {
			p.logger.Info("leaving idle voice channel", zap.Duration("after", after))
			session.Destroy()
		}
	})
}

func (p *Player) idleLocked() bool {
	return p.session != nil &&
		p.advance == nil &&
		p.queue.Len() == 0 &&
		p.session.Audio.Status() == voice.AudioIdle
}

func (p *Player) stopLeaveTimerLocked() {
	if p.leaveTimer != nil {
		p.leaveTimer.Stop()
		p.leaveTimer = nil
	}
}
