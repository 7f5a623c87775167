package music

import (
	"context"
	"errors"

	"github.com/hxnx/jukebot/internal/voice"
)

var (
	ErrNoVoiceChannel = errors.New("user is not in a voice channel")
	ErrWrongChannel   = errors.New("already playing in another channel")
	ErrNoResults      = errors.New("no video found for query")
	ErrResolveFailed  = errors.New("failed to resolve track")
	ErrEmptyQuery     = errors.New("empty query")
)

// Track is a resolved query.
type Track struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Searcher turns a free-text query into the first matching video.
type Searcher interface {
	Search(ctx context.Context, query string) (Track, error)
}

// Streamer opens a playable Opus resource for a track.
type Streamer interface {
	Open(ctx context.Context, track Track) (voice.Resource, error)
}

// HistoryRecorder is notified of every track that starts playing.
type HistoryRecorder interface {
	Record(ctx context.Context, guildID string, track Track) error
}

// Dialer builds the network link for a guild's voice channel.
type Dialer func(guildID, channelID string) voice.Link
