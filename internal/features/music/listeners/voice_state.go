package listeners

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	musiccmd "github.com/hxnx/jukebot/internal/features/music/commands"
)

const emptyChannelStopTimeout = 10 * time.Second

// EmptyChannelWatcher stops playback when everyone else leaves the bot's
// voice channel. The player's auto-leave timer then tears the session down.
type EmptyChannelWatcher struct {
	Players func(guildID string) musiccmd.Player
	Logger  *zap.Logger
}

func (w *EmptyChannelWatcher) HandleVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if s == nil || vs == nil || vs.GuildID == "" {
		return
	}

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	if botID == "" {
		return
	}

	guild := getGuildWithVoiceStates(s, vs.GuildID)
	if guild == nil {
		return
	}

	channelID, alone := botAlone(guild.VoiceStates, botID)
	if !alone {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), emptyChannelStopTimeout)
	defer cancel()

	if err := w.Players(vs.GuildID).Stop(ctx); err != nil {
		w.Logger.Warn("failed to stop in empty channel", zap.String("guildID", vs.GuildID), zap.Error(err))
		return
	}
	w.Logger.Info("voice channel empty, playback stopped",
		zap.String("guildID", vs.GuildID),
		zap.String("channelID", channelID),
	)
}

// botAlone reports the bot's channel and whether no other user is in it.
func botAlone(states []*discordgo.VoiceState, botID string) (string, bool) {
	botChannelID := ""
	for _, state := range states {
		if state.UserID == botID && state.ChannelID != "" {
			botChannelID = state.ChannelID
			break
		}
	}
	if botChannelID == "" {
		return "", false
	}

	for _, state := range states {
		if state.ChannelID == botChannelID && state.UserID != botID {
			return botChannelID, false
		}
	}
	return botChannelID, true
}

func getGuildWithVoiceStates(s *discordgo.Session, guildID string) *discordgo.Guild {
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g
		}
	}
	return nil
}
