package bot

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const presenceUpdateInterval = 60 * time.Second

func (b *Bot) startPresenceUpdater() {
	if b.presenceStop != nil {
		return
	}
	stop := make(chan struct{})
	b.presenceStop = stop
	go func() {
		ticker := time.NewTicker(presenceUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				b.updatePresence()
			}
		}
	}()
}

func (b *Bot) stopPresenceUpdater() {
	if b.presenceStop == nil {
		return
	}
	close(b.presenceStop)
	b.presenceStop = nil
}

func (b *Bot) updatePresence() {
	guildCount := 0
	if b.session.State != nil {
		guildCount = len(b.session.State.Guilds)
	}

	status := presenceStatus(b.manager.ActiveSessions(), guildCount)
	if err := b.session.UpdateGameStatus(0, status); err != nil {
		b.logger.Debug("failed to update presence", zap.Error(err))
	}
}

func presenceStatus(active, guilds int) string {
	if active == 0 {
		return fmt.Sprintf("/play in %d servers", guilds)
	}
	if active == 1 {
		return "playing in 1 channel"
	}
	return fmt.Sprintf("playing in %d channels", active)
}
