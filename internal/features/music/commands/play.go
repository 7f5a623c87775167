package commands

import (
	"context"
	"strings"

	shared "github.com/hxnx/jukebot/internal/features/shared"
)

func Play(d Deps) shared.Handler {
	return func(ctx context.Context, req shared.Request) (string, error) {
		query, ok := shared.StringOption(req.Options, "query")
		if !ok || strings.TrimSpace(query) == "" {
			return replyInvalidQuery, nil
		}
		if !req.Member {
			return replyNotMember, nil
		}

		channelID, err := d.Locate(req.GuildID, req.UserID)
		if err != nil {
			return "", err
		}

		if err := d.Players(req.GuildID).Play(ctx, channelID, query); err != nil {
			return "", err
		}
		return "Playing", nil
	}
}
