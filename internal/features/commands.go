package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	musiccmd "github.com/hxnx/jukebot/internal/features/music/commands"
	musiclisteners "github.com/hxnx/jukebot/internal/features/music/listeners"
	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

const handlerTimeout = 60 * time.Second

var ErrUnknownCommand = errors.New("unknown command")

// Command pairs a registered definition with the handler that serves it.
type Command struct {
	Definition *discordgo.ApplicationCommand
	Handler    shared.Handler
}

func NewCommands(d musiccmd.Deps) []Command {
	return []Command{
		{
			Definition: &discordgo.ApplicationCommand{
				Name:        "play",
				Description: "Plays a song",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "query",
						Description: "Search query or YouTube link",
						Required:    true,
					},
				},
			},
			Handler: musiccmd.Play(d),
		},
		{
			Definition: &discordgo.ApplicationCommand{
				Name:        "stop",
				Description: "Stops playback and clears the queue",
			},
			Handler: musiccmd.Stop(d),
		},
		{
			Definition: &discordgo.ApplicationCommand{
				Name:        "skip",
				Description: "Skips the current song",
			},
			Handler: musiccmd.Skip(d),
		},
	}
}

// CommandList is what gets registered with Discord. Handlers are not invoked
// here, so empty deps are enough to read the definitions.
var CommandList = Definitions(NewCommands(musiccmd.Deps{}))

func Definitions(cmds []Command) []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, cmd := range cmds {
		defs = append(defs, cmd.Definition)
	}
	return defs
}

type Dispatcher struct {
	handlers map[string]shared.Handler
	logger   *zap.Logger
}

func NewDispatcher(cmds []Command, logger *zap.Logger) *Dispatcher {
	handlers := make(map[string]shared.Handler, len(cmds))
	for _, cmd := range cmds {
		handlers[cmd.Definition.Name] = cmd.Handler
	}
	return &Dispatcher{handlers: handlers, logger: logger}
}

// Dispatch runs the handler registered under name.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, req shared.Request) (string, error) {
	handler, ok := d.handlers[name]
	if !ok {
		return "", fmt.Errorf("%w '%s'", ErrUnknownCommand, name)
	}
	return handler(ctx, req)
}

// Reply turns a handler outcome into the text shown to the user.
func Reply(reply string, err error) string {
	if err != nil {
		return err.Error()
	}
	return reply
}

func (d *Dispatcher) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	logger := d.logger.With(
		zap.String("command", name),
		zap.String("guildID", i.GuildID),
		zap.String("userID", shared.GetInteractionUserID(i)),
	)

	if err := shared.DeferEphemeral(s, i); err != nil {
		logger.Warn("failed to defer interaction", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	reply, err := d.Dispatch(ctx, name, shared.NewRequest(i))
	if err != nil {
		logger.Info("command failed", zap.Error(err))
	}

	if err := shared.EditReply(s, i, Reply(reply, err)); err != nil {
		logger.Warn("failed to edit reply", zap.Error(err))
	}
}

func RegisterCommands(s *discordgo.Session, appID string, guildID string, logger *zap.Logger) ([]*discordgo.ApplicationCommand, error) {
	scope := "global"
	if guildID != "" {
		scope = fmt.Sprintf("guild:%s", guildID)
	}

	logger.Debug("registering commands", zap.Int("count", len(CommandList)), zap.String("scope", scope))

	cmds, err := s.ApplicationCommandBulkOverwrite(appID, guildID, CommandList)
	if err != nil {
		return nil, fmt.Errorf("cannot bulk overwrite commands: %w", err)
	}
	return cmds, nil
}

func AddHandlers(s *discordgo.Session, d *Dispatcher, m *music.Manager, logger *zap.Logger) {
	s.AddHandler(d.HandleInteraction)

	watcher := &musiclisteners.EmptyChannelWatcher{
		Players: musiccmd.ManagerPlayers(m),
		Logger:  logger.Named("voice-state"),
	}
	s.AddHandler(watcher.HandleVoiceStateUpdate)
}

var Module = fx.Module("features",
	fx.Provide(NewDispatcherFromManager),
	fx.Invoke(AddHandlers),
)

func NewDispatcherFromManager(s *discordgo.Session, m *music.Manager, logger *zap.Logger) *Dispatcher {
	cmds := NewCommands(musiccmd.Deps{
		Players: musiccmd.ManagerPlayers(m),
		Locate:  musiccmd.StateLocator(s),
	})
	return NewDispatcher(cmds, logger.Named("commands"))
}
