package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hxnx/jukebot/config"
)

var Module = fx.Module("redis",
	fx.Provide(NewClient),
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (cfg Config) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// Init connects and pings with exponential backoff.
func Init(ctx context.Context, cfg Config) (*redislib.Client, error) {
	client := redislib.NewClient(&redislib.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	attempts := 5
	backoff := 200 * time.Millisecond

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			return client, nil
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				_ = client.Close()
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
}

type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Logger *zap.Logger
}

// NewClient returns nil when redis is not configured or unreachable; the
// search cache then stays in process.
func NewClient(p Params) *redislib.Client {
	logger := p.Logger.Named("redis")

	redisCfg := p.Config.GetRedisConfig()
	if !redisCfg.Enabled {
		logger.Info("REDIS_HOST not set, search cache is in-process only")
		return nil
	}

	client, err := Init(context.Background(), Config{
		Host:     redisCfg.Host,
		Port:     redisCfg.Port,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	if err != nil {
		logger.Warn("redis initialization failed", zap.Error(err))
		return nil
	}
	logger.Info("redis connected", zap.String("addr", client.Options().Addr))

	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}
