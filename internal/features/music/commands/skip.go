package commands

import (
	"context"

	shared "github.com/hxnx/jukebot/internal/features/shared"
)

func Skip(d Deps) shared.Handler {
	return func(ctx context.Context, req shared.Request) (string, error) {
		if req.GuildID == "" {
			return replyNotMember, nil
		}
		if err := d.Players(req.GuildID).Skip(ctx); err != nil {
			return "", err
		}
		return "Skipped", nil
	}
}
