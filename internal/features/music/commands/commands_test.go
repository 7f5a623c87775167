package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

type fakePlayer struct {
	played  []string
	channel string
	skips   int
	stops   int
	err     error
}

func (p *fakePlayer) Play(_ context.Context, channelID, query string) error {
	p.channel = channelID
	p.played = append(p.played, query)
	return p.err
}

func (p *fakePlayer) Skip(context.Context) error {
	p.skips++
	return p.err
}

func (p *fakePlayer) Stop(context.Context) error {
	p.stops++
	return p.err
}

func newDeps(p *fakePlayer, channels map[string]string) Deps {
	return Deps{
		Players: func(string) Player { return p },
		Locate: func(_, userID string) (string, error) {
			if ch, ok := channels[userID]; ok {
				return ch, nil
			}
			return "", music.ErrNoVoiceChannel
		},
	}
}

func queryOption(value any, typ discordgo.ApplicationCommandOptionType) []*discordgo.ApplicationCommandInteractionDataOption {
	return []*discordgo.ApplicationCommandInteractionDataOption{{Name: "query", Type: typ, Value: value}}
}

func TestPlay(t *testing.T) {
	p := &fakePlayer{}
	handler := Play(newDeps(p, map[string]string{"user": "voice-1"}))

	reply, err := handler(context.Background(), shared.Request{
		GuildID: "guild",
		UserID:  "user",
		Member:  true,
		Options: queryOption("lofi beats", discordgo.ApplicationCommandOptionString),
	})
	require.NoError(t, err)
	assert.Equal(t, "Playing", reply)
	assert.Equal(t, []string{"lofi beats"}, p.played)
	assert.Equal(t, "voice-1", p.channel)
}

func TestPlay_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		req     shared.Request
		reply   string
		wantErr error
	}{
		{
			name:  "missing query",
			req:   shared.Request{GuildID: "guild", UserID: "user", Member: true},
			reply: "Invalid query",
		},
		{
			name:  "blank query",
			req:   shared.Request{GuildID: "guild", UserID: "user", Member: true, Options: queryOption("   ", discordgo.ApplicationCommandOptionString)},
			reply: "Invalid query",
		},
		{
			name:  "query of the wrong type",
			req:   shared.Request{GuildID: "guild", UserID: "user", Member: true, Options: queryOption(float64(4), discordgo.ApplicationCommandOptionInteger)},
			reply: "Invalid query",
		},
		{
			name:  "not a member",
			req:   shared.Request{UserID: "user", Options: queryOption("song", discordgo.ApplicationCommandOptionString)},
			reply: "Something went wrong",
		},
		{
			name:    "not in a voice channel",
			req:     shared.Request{GuildID: "guild", UserID: "stranger", Member: true, Options: queryOption("song", discordgo.ApplicationCommandOptionString)},
			wantErr: music.ErrNoVoiceChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlayer{}
			reply, err := Play(newDeps(p, map[string]string{"user": "voice-1"}))(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.reply, reply)
			}
			assert.Empty(t, p.played)
		})
	}
}

func TestPlay_PlayerError(t *testing.T) {
	p := &fakePlayer{err: music.ErrWrongChannel}
	_, err := Play(newDeps(p, map[string]string{"user": "voice-2"}))(context.Background(), shared.Request{
		GuildID: "guild",
		UserID:  "user",
		Member:  true,
		Options: queryOption("song", discordgo.ApplicationCommandOptionString),
	})
	assert.ErrorIs(t, err, music.ErrWrongChannel)
}

func TestSkipAndStop(t *testing.T) {
	p := &fakePlayer{}
	deps := newDeps(p, nil)
	req := shared.Request{GuildID: "guild", UserID: "user", Member: true}

	reply, err := Skip(deps)(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Skipped", reply)

	reply, err = Stop(deps)(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Stopped", reply)

	assert.Equal(t, 1, p.skips)
	assert.Equal(t, 1, p.stops)

	p.err = errors.New("timed out")
	_, err = Skip(deps)(context.Background(), req)
	assert.Error(t, err)
}

func TestSkipAndStop_OutsideGuild(t *testing.T) {
	lookups := 0
	deps := Deps{Players: func(string) Player {
		lookups++
		return &fakePlayer{}
	}}
	req := shared.Request{UserID: "user"}

	reply, err := Skip(deps)(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Something went wrong", reply)

	reply, err = Stop(deps)(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Something went wrong", reply)

	assert.Zero(t, lookups, "no player is created without a guild")
}
