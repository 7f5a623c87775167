package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/hxnx/jukebot/internal/music"
)

const (
	replyInvalidQuery = "Invalid query"
	replyNotMember    = "Something went wrong"
)

// Player is the slice of music.Player the handlers drive.
type Player interface {
	Play(ctx context.Context, channelID, query string) error
	Skip(ctx context.Context) error
	Stop(ctx context.Context) error
}

// VoiceLocator returns the voice channel a user is connected to.
type VoiceLocator func(guildID, userID string) (string, error)

type Deps struct {
	Players func(guildID string) Player
	Locate  VoiceLocator
}

// ManagerPlayers adapts a music.Manager to Deps.Players.
func ManagerPlayers(m *music.Manager) func(guildID string) Player {
	return func(guildID string) Player {
		return m.Get(guildID)
	}
}

// StateLocator finds the user's voice channel in the session state cache,
// falling back to a REST guild fetch.
func StateLocator(s *discordgo.Session) VoiceLocator {
	return func(guildID, userID string) (string, error) {
		guild, err := s.State.Guild(guildID)
		if err != nil {
			guild, err = s.Guild(guildID)
			if err != nil {
				return "", fmt.Errorf("lookup guild %s: %w", guildID, err)
			}
		}

		for _, vs := range guild.VoiceStates {
			if vs.UserID == userID && vs.ChannelID != "" {
				return vs.ChannelID, nil
			}
		}
		return "", music.ErrNoVoiceChannel
	}
}
