package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	readyPollInterval = 500 * time.Millisecond
	frameSendTimeout  = time.Second
)

// DiscordLink is a Link backed by a discordgo voice connection.
type DiscordLink struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger

	mu            sync.Mutex
	channelID     string
	vc            *discordgo.VoiceConnection
	notify        func(Event)
	removeHandler func()
	stopWatch     chan struct{}
	closed        bool

	// kickPending is set while the bot has no channel after a 4014; readiness
	// drops caused by discordgo closing the dead connection are not reported.
	kickPending  bool
	pollInterval time.Duration
}

func NewDiscordLink(s *discordgo.Session, guildID, channelID string, logger *zap.Logger) *DiscordLink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscordLink{
		session:      s,
		guildID:      guildID,
		channelID:    channelID,
		logger:       logger.With(zap.String("guildID", guildID)),
		pollInterval: readyPollInterval,
	}
}

func (l *DiscordLink) Open(notify func(Event)) error {
	if l.session == nil {
		return errors.New("discord session is nil")
	}

	l.mu.Lock()
	l.notify = notify
	l.removeHandler = l.session.AddHandler(l.onVoiceStateUpdate)
	l.mu.Unlock()

	go func() {
		if err := l.join(); err != nil {
			l.logger.Warn("failed to join voice channel", zap.Error(err))
			notify(Event{Kind: EventDisconnected})
		}
	}()
	return nil
}

func (l *DiscordLink) Rejoin() error {
	return l.join()
}

func (l *DiscordLink) ChannelID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.channelID
}

func (l *DiscordLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	vc := l.vc
	l.vc = nil
	if l.stopWatch != nil {
		close(l.stopWatch)
		l.stopWatch = nil
	}
	if l.removeHandler != nil {
		l.removeHandler()
		l.removeHandler = nil
	}
	l.mu.Unlock()

	if vc == nil {
		return nil
	}
	safeSpeaking(vc, false)
	return vc.Disconnect()
}

func (l *DiscordLink) SendFrame(ctx context.Context, frame []byte) error {
	vc := l.current()
	if vc == nil || !vc.Ready {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return ErrLinkNotReady
		}
	}

	select {
	case vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(frameSendTimeout):
		return ErrFrameTimeout
	}
}

func (l *DiscordLink) Speaking(speaking bool) {
	safeSpeaking(l.current(), speaking)
}

func (l *DiscordLink) current() *discordgo.VoiceConnection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vc
}

func (l *DiscordLink) emit(ev Event) {
	l.mu.Lock()
	notify := l.notify
	closed := l.closed
	l.mu.Unlock()
	if notify != nil && !closed {
		notify(ev)
	}
}

func (l *DiscordLink) join() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrDestroyed
	}
	channelID := l.channelID
	l.kickPending = false
	old := l.vc
	l.vc = nil
	if l.stopWatch != nil {
		close(l.stopWatch)
		l.stopWatch = nil
	}
	l.mu.Unlock()

	if old != nil {
		_ = old.Disconnect()
	}

	l.emit(Event{Kind: EventSignalling})

	vc, err := l.session.ChannelVoiceJoin(l.guildID, channelID, false, true)
	if err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = vc.Disconnect()
		return ErrDestroyed
	}
	l.vc = vc
	stop := make(chan struct{})
	l.stopWatch = stop
	l.mu.Unlock()

	l.logger.Info("joined voice channel", zap.String("channelID", channelID))
	l.emit(Event{Kind: EventReady})
	go l.watch(vc, stop)
	return nil
}

// watch maps readiness flips of the underlying connection to events.
// discordgo reconnects the voice websocket on its own, so a drop is reported
// as Connecting and bounded by the ready deadline.
func (l *DiscordLink) watch(vc *discordgo.VoiceConnection, stop chan struct{}) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	last := true
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ready := vc.Ready
		if ready == last {
			continue
		}
		last = ready
		if ready {
			l.emit(Event{Kind: EventReady})
		} else if !l.isKickPending() {
			l.emit(Event{Kind: EventConnecting})
		}
	}
}

func (l *DiscordLink) onVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs == nil || vs.VoiceState == nil || vs.GuildID != l.guildID {
		return
	}
	if s.State == nil || s.State.User == nil || vs.UserID != s.State.User.ID {
		return
	}

	l.mu.Lock()
	bound := l.channelID
	if vs.ChannelID != "" {
		l.channelID = vs.ChannelID
	}
	l.kickPending = vs.ChannelID == ""
	l.mu.Unlock()

	switch {
	case vs.ChannelID == "":
		l.emit(Event{Kind: EventDisconnected, CloseCode: CloseCodeDisconnected})
	case vs.ChannelID != bound:
		l.logger.Info("moved to another voice channel",
			zap.String("from", bound), zap.String("to", vs.ChannelID))
		l.emit(Event{Kind: EventConnecting})
		if vc := l.current(); vc != nil && vc.Ready {
			l.emit(Event{Kind: EventReady})
		}
	}
}

func (l *DiscordLink) isKickPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kickPending
}

func safeSpeaking(vc *discordgo.VoiceConnection, speaking bool) {
	if vc == nil || !vc.Ready {
		return
	}
	_ = vc.Speaking(speaking)
}
