package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/hxnx/jukebot/config"
	commands "github.com/hxnx/jukebot/internal/features"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(logger); err != nil {
		logger.Error("command registration failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(logger *zap.Logger) error {
	cfg, err := config.LoadRegister()
	if err != nil {
		return err
	}

	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}

	cmds, err := commands.RegisterCommands(s, cfg.ClientID, cfg.GuildID, logger)
	if err != nil {
		return err
	}

	logger.Info("registered commands", zap.Int("count", len(cmds)), zap.String("guildID", cfg.GuildID))
	return nil
}
