package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
)

func newTestBot(t *testing.T) *Bot {
	return &Bot{
		logger:  zaptest.NewLogger(t),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestSyncCommands(t *testing.T) {
	b := newTestBot(t)

	var seen []string
	synced := b.syncCommands(context.Background(), []string{"a", "b", "c"}, func(guildID string) error {
		seen = append(seen, guildID)
		if guildID == "b" {
			return errors.New("missing access")
		}
		return nil
	})

	assert.Equal(t, []string{"a", "b", "c"}, seen, "a failing guild does not stop the sync")
	assert.Equal(t, 2, synced)
}

func TestSyncCommands_Cancelled(t *testing.T) {
	b := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	synced := b.syncCommands(ctx, []string{"a", "b"}, func(string) error {
		calls++
		return nil
	})
	assert.Zero(t, synced)
	assert.Zero(t, calls)
}

func TestPresenceStatus(t *testing.T) {
	assert.Equal(t, "/play in 3 servers", presenceStatus(0, 3))
	assert.Equal(t, "playing in 1 channel", presenceStatus(1, 3))
	assert.Equal(t, "playing in 2 channels", presenceStatus(2, 3))
}
