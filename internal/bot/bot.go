package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hxnx/jukebot/config"
	commands "github.com/hxnx/jukebot/internal/features"
	"github.com/hxnx/jukebot/internal/music"
)

// Bulk overwrites per guild.
const commandSyncRate = rate.Limit(2)

var Module = fx.Module("bot",
	fx.Provide(NewSession, New),
	fx.Invoke(func(*Bot) {}),
)

func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	return s, nil
}

type Bot struct {
	config  *config.Config
	session *discordgo.Session
	manager *music.Manager
	logger  *zap.Logger
	limiter *rate.Limiter

	mu           sync.Mutex
	started      bool
	presenceStop chan struct{}
	syncCancel   context.CancelFunc
}

type Params struct {
	fx.In

	LC      fx.Lifecycle
	Config  *config.Config
	Session *discordgo.Session
	Manager *music.Manager
	Logger  *zap.Logger
}

func New(p Params) *Bot {
	b := &Bot{
		config:  p.Config,
		session: p.Session,
		manager: p.Manager,
		logger:  p.Logger.Named("bot"),
		limiter: rate.NewLimiter(commandSyncRate, 1),
	}

	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error { return b.Start() },
		OnStop:  func(context.Context) error { return b.Stop() },
	})
	return b
}

func (b *Bot) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	syncCtx, cancel := context.WithCancel(context.Background())
	b.syncCancel = cancel
	b.registerHandlers(syncCtx)

	if err := b.session.Open(); err != nil {
		cancel()
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	b.startPresenceUpdater()
	b.started = true
	b.logger.Info("bot session opened")
	return nil
}

func (b *Bot) registerHandlers(ctx context.Context) {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if r.User != nil {
			b.logger.Info("bot ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
		} else {
			b.logger.Info("bot ready")
		}
		b.updatePresence()

		if !b.config.CanSyncCommands() {
			b.logger.Warn("DISCORD_CLIENT_ID not set, skipping command sync")
			return
		}

		guildIDs := make([]string, 0, len(r.Guilds))
		for _, g := range r.Guilds {
			guildIDs = append(guildIDs, g.ID)
		}

		go b.syncCommands(ctx, guildIDs, func(guildID string) error {
			_, err := commands.RegisterCommands(s, b.config.ClientID, guildID, b.logger)
			return err
		})
	})
}

// syncCommands pushes the command list to every guild, one at a time under
// the limiter. A failing guild does not stop the rest.
func (b *Bot) syncCommands(ctx context.Context, guildIDs []string, register func(guildID string) error) int {
	synced := 0
	for _, guildID := range guildIDs {
		if err := b.limiter.Wait(ctx); err != nil {
			return synced
		}
		if err := register(guildID); err != nil {
			b.logger.Warn("failed to sync commands", zap.String("guildID", guildID), zap.Error(err))
			continue
		}
		synced++
	}
	b.logger.Info("commands synced", zap.Int("guilds", synced), zap.Int("total", len(guildIDs)))
	return synced
}

func (b *Bot) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}

	b.started = false
	b.syncCancel()
	b.stopPresenceUpdater()
	if err := b.session.Close(); err != nil {
		return err
	}

	b.logger.Info("bot session closed")
	return nil
}
