package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

type AudioStatus int

const (
	AudioIdle AudioStatus = iota
	AudioBuffering
	AudioPlaying
)

func (s AudioStatus) String() string {
	switch s {
	case AudioIdle:
		return "idle"
	case AudioBuffering:
		return "buffering"
	case AudioPlaying:
		return "playing"
	default:
		return fmt.Sprintf("audio(%d)", int(s))
	}
}

// AudioPlayer pumps one Resource at a time into a FrameSink.
type AudioPlayer struct {
	sink   FrameSink
	logger *zap.Logger

	mu        sync.Mutex
	status    AudioStatus
	cancel    context.CancelFunc
	waiters   watchers[AudioStatus]
	listeners []func(prev, next AudioStatus)
}

func NewAudioPlayer(sink FrameSink, logger *zap.Logger) *AudioPlayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudioPlayer{sink: sink, logger: logger}
}

func (p *AudioPlayer) Status() AudioStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// OnStateChange registers fn for every status transition. fn runs outside the
// player lock and may call back into the player.
func (p *AudioPlayer) OnStateChange(fn func(prev, next AudioStatus)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Play starts streaming res. The player owns res from here and closes it when
// playback ends.
func (p *AudioPlayer) Play(res Resource) error {
	p.mu.Lock()
	if p.status != AudioIdle {
		p.mu.Unlock()
		return ErrNotIdle
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	fire := p.setStatusLocked(AudioBuffering)
	p.mu.Unlock()
	fire()

	go p.pump(ctx, res)
	return nil
}

// Stop halts the current resource. It reports whether anything was playing.
func (p *AudioPlayer) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == AudioIdle || p.cancel == nil {
		return false
	}
	p.cancel()
	return true
}

// StopAndWait halts the current resource and waits for the player to go idle.
// The wait is registered before stopping so a quick restart cannot hide the
// idle transition. stopped reports whether anything was playing.
func (p *AudioPlayer) StopAndWait(ctx context.Context, timeout time.Duration) (stopped bool, err error) {
	p.mu.Lock()
	if p.status == AudioIdle || p.cancel == nil {
		p.mu.Unlock()
		return false, nil
	}
	wt := p.waiters.add(AudioIdle)
	p.cancel()
	p.mu.Unlock()

	return true, await(ctx, wt, timeout, "audio player", func() {
		p.mu.Lock()
		p.waiters.remove(wt)
		p.mu.Unlock()
	})
}

func (p *AudioPlayer) WaitFor(ctx context.Context, target AudioStatus, timeout time.Duration) error {
	p.mu.Lock()
	if p.status == target {
		p.mu.Unlock()
		return nil
	}
	wt := p.waiters.add(target)
	p.mu.Unlock()

	return await(ctx, wt, timeout, "audio player", func() {
		p.mu.Lock()
		p.waiters.remove(wt)
		p.mu.Unlock()
	})
}

func (p *AudioPlayer) pump(ctx context.Context, res Resource) {
	defer func() {
		if err := res.Close(); err != nil {
			p.logger.Debug("failed to close audio resource", zap.Error(err))
		}
		p.sink.Speaking(false)

		p.mu.Lock()
		p.cancel = nil
		fire := p.setStatusLocked(AudioIdle)
		p.mu.Unlock()
		fire()
	}()

	started := false
	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := res.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && ctx.Err() == nil {
				p.logger.Warn("audio resource failed", zap.Error(err))
			}
			return
		}
		if len(frame) == 0 {
			continue
		}

		if !started {
			started = true
			p.sink.Speaking(true)
			p.mu.Lock()
			fire := p.setStatusLocked(AudioPlaying)
			p.mu.Unlock()
			fire()
		}

		if err := p.sink.SendFrame(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrFrameTimeout) {
				continue
			}
			p.logger.Warn("failed to send opus frame", zap.Error(err))
			return
		}
	}
}

// setStatusLocked records the transition and returns a func that runs the
// listeners; call it after releasing the lock.
func (p *AudioPlayer) setStatusLocked(next AudioStatus) func() {
	prev := p.status
	if prev == next {
		return func() {}
	}
	p.status = next
	p.waiters.notify(next, nil)
	listeners := append([]func(prev, next AudioStatus){}, p.listeners...)
	return func() {
		for _, fn := range listeners {
			fn(prev, next)
		}
	}
}
