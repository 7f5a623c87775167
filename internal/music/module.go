package music

import (
	"context"

	"github.com/bwmarrin/discordgo"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hxnx/jukebot/config"
	"github.com/hxnx/jukebot/internal/voice"
)

var Module = fx.Module("music",
	fx.Provide(NewSearcher, NewStreamer, NewManagerFromConfig),
)

type SearcherParams struct {
	fx.In

	Config *config.Config
	Redis  *redislib.Client `optional:"true"`
	Logger *zap.Logger
}

// NewSearcher prefers the YouTube Data API when a key is configured and falls
// back to yt-dlp search otherwise. Results are cached.
func NewSearcher(p SearcherParams) (Searcher, error) {
	logger := p.Logger.Named("search")

	var base Searcher = NewYTDLPResolver(p.Config.YTDLPBinary)
	if p.Config.YouTubeAPIKey != "" {
		yt, err := NewYouTubeSearcher(context.Background(), p.Config.YouTubeAPIKey)
		if err != nil {
			return nil, err
		}
		base = yt
		logger.Info("using youtube data api for search")
	} else {
		logger.Info("YOUTUBE_API_KEY not set, searching with yt-dlp")
	}

	cached := NewCachedSearcher(base, p.Config.SearchCacheSize, p.Config.SearchCacheTTL, p.Redis, logger)
	return DirectLinkSearcher{Next: cached}, nil
}

func NewStreamer(cfg *config.Config, logger *zap.Logger) Streamer {
	logger = logger.Named("stream")
	return NewFallbackStreamer(logger,
		NewKKDAIStreamer(logger),
		NewFFmpegStreamer(cfg.FFmpegBinary, NewYTDLPResolver(cfg.YTDLPBinary), logger),
	)
}

type ManagerParams struct {
	fx.In

	LC       fx.Lifecycle
	Config   *config.Config
	Session  *discordgo.Session
	Searcher Searcher
	Streamer Streamer
	History  HistoryRecorder `optional:"true"`
	Logger   *zap.Logger
}

func NewManagerFromConfig(p ManagerParams) *Manager {
	logger := p.Logger.Named("player")

	timings := DefaultTimings()
	timings.AutoLeave = p.Config.AutoLeave()

	m := NewManager(Options{
		Searcher: p.Searcher,
		Streamer: p.Streamer,
		Dial: func(guildID, channelID string) voice.Link {
			return voice.NewDiscordLink(p.Session, guildID, channelID, logger.Named("link"))
		},
		History: p.History,
		Policy:  voice.DefaultPolicy(),
		Timings: timings,
		Logger:  logger,
	})

	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			m.Shutdown()
			return nil
		},
	})
	return m
}
