package music

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const searchKeyPrefix = "music:search:"

// YouTubeSearcher queries the YouTube Data API for the first video result.
type YouTubeSearcher struct {
	service *youtube.Service
}

func NewYouTubeSearcher(ctx context.Context, apiKey string) (*YouTubeSearcher, error) {
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return &YouTubeSearcher{service: service}, nil
}

func (s *YouTubeSearcher) Search(ctx context.Context, query string) (Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Track{}, ErrEmptyQuery
	}

	resp, err := s.service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return Track{}, fmt.Errorf("%w: youtube search: %v", ErrResolveFailed, err)
	}

	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		title := ""
		if item.Snippet != nil {
			title = html.UnescapeString(item.Snippet.Title)
		}
		return Track{ID: item.Id.VideoId, Title: title, URL: watchURL(item.Id.VideoId)}, nil
	}
	return Track{}, fmt.Errorf("%w: %q", ErrNoResults, query)
}

// DirectLinkSearcher short-circuits YouTube links and searches everything
// else with Next.
type DirectLinkSearcher struct {
	Next Searcher
}

func (s DirectLinkSearcher) Search(ctx context.Context, query string) (Track, error) {
	if id, ok := youTubeVideoID(strings.TrimSpace(query)); ok {
		return Track{ID: id, Title: strings.TrimSpace(query), URL: watchURL(id)}, nil
	}
	return s.Next.Search(ctx, query)
}

// CachedSearcher memoizes search results in process and, when a redis client
// is set, across restarts and shards.
type CachedSearcher struct {
	next   Searcher
	local  *expirable.LRU[string, Track]
	redis  *redislib.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedSearcher(next Searcher, size int, ttl time.Duration, redis *redislib.Client, logger *zap.Logger) *CachedSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSearcher{
		next:   next,
		local:  expirable.NewLRU[string, Track](size, nil, ttl),
		redis:  redis,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CachedSearcher) Search(ctx context.Context, query string) (Track, error) {
	key := cacheKey(query)
	if key == "" {
		return Track{}, ErrEmptyQuery
	}

	if track, ok := s.local.Get(key); ok {
		return track, nil
	}

	if track, ok := s.remote(ctx, key); ok {
		s.local.Add(key, track)
		return track, nil
	}

	track, err := s.next.Search(ctx, query)
	if err != nil {
		return Track{}, err
	}

	s.local.Add(key, track)
	s.store(ctx, key, track)
	return track, nil
}

func (s *CachedSearcher) remote(ctx context.Context, key string) (Track, bool) {
	if s.redis == nil {
		return Track{}, false
	}

	raw, err := s.redis.Get(ctx, searchKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			s.logger.Warn("search cache lookup failed", zap.Error(err))
		}
		return Track{}, false
	}

	var track Track
	if err := json.Unmarshal(raw, &track); err != nil || track.URL == "" {
		return Track{}, false
	}
	return track, true
}

func (s *CachedSearcher) store(ctx context.Context, key string, track Track) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(track)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, searchKeyPrefix+key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("search cache store failed", zap.Error(err))
	}
}

func cacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
