package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/hxnx/jukebot/internal/music"
)

const historyRepoTimeout = 2 * time.Second

type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository accepts a nil db; Record is then a no-op.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Record(ctx context.Context, guildID string, track music.Track) error {
	if r == nil || r.db == nil {
		return nil
	}
	if guildID == "" || track.URL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	const query = `
		INSERT INTO play_history (guild_id, video_id, title, url, played_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := r.db.ExecContext(ctx, query, guildID, track.ID, track.Title, track.URL)
	return err
}
