package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hxnx/jukebot/config"
	"github.com/hxnx/jukebot/internal/music"
)

var Module = fx.Module("database",
	fx.Provide(
		NewDB,
		fx.Annotate(NewHistoryRepository, fx.As(new(music.HistoryRecorder))),
	),
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (cfg *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.DBName, cfg.SSLMode,
	)

	if cfg.Password != "" {
		connStr += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return connStr
}

// Open connects, pings and migrates.
func Open(ctx context.Context, cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS play_history (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		played_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`,
	`CREATE INDEX IF NOT EXISTS play_history_guild_idx ON play_history (guild_id, played_at DESC);`,
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to execute migration: %w\nQuery: %s", err, m)
		}
	}
	return nil
}

type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Logger *zap.Logger
}

// NewDB returns nil when postgres is not configured or unreachable; history
// is then disabled.
func NewDB(p Params) *sql.DB {
	logger := p.Logger.Named("database")

	dbCfg := p.Config.GetDBConfig()
	if !dbCfg.Enabled {
		logger.Info("DB_HOST or DB_NAME not set, play history disabled")
		return nil
	}

	db, err := Open(context.Background(), &Config{
		Host:     dbCfg.Host,
		Port:     dbCfg.Port,
		User:     dbCfg.User,
		Password: dbCfg.Password,
		DBName:   dbCfg.Name,
		SSLMode:  dbCfg.SSLMode,
	})
	if err != nil {
		logger.Warn("database initialization failed", zap.Error(err))
		return nil
	}
	logger.Info("database connection established")

	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db
}
