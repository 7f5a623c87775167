package commands

import (
	"context"

	shared "github.com/hxnx/jukebot/internal/features/shared"
)

// Stop clears the queue before stopping the current track.
func Stop(d Deps) shared.Handler {
	return func(ctx context.Context, req shared.Request) (string, error) {
		if req.GuildID == "" {
			return replyNotMember, nil
		}
		if err := d.Players(req.GuildID).Stop(ctx); err != nil {
			return "", err
		}
		return "Stopped", nil
	}
}
