package shared

import (
	"context"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// Request is the part of an application command interaction handlers need.
type Request struct {
	GuildID string
	UserID  string
	// Member is false when the interaction did not come from a guild member.
	Member  bool
	Options []*discordgo.ApplicationCommandInteractionDataOption
}

// Handler runs one command and returns the reply text.
type Handler func(ctx context.Context, req Request) (string, error)

func NewRequest(i *discordgo.InteractionCreate) Request {
	req := Request{
		GuildID: i.GuildID,
		UserID:  GetInteractionUserID(i),
		Member:  i.Member != nil,
	}
	if i.Type == discordgo.InteractionApplicationCommand {
		req.Options = i.ApplicationCommandData().Options
	}
	return req
}

// DeferEphemeral acknowledges the interaction; the reply follows through
// EditReply.
func DeferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

const maxContentLength = 2000

func EditReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	content = Truncate(content, maxContentLength)
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}

// Truncate shortens content to at most limit characters, ending in "...".
// It never splits a multi-byte character.
func Truncate(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit-3]) + "..."
}

// StringOption returns the named option when it is present and a string.
func StringOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	for _, opt := range options {
		if opt.Name != name {
			continue
		}
		if opt.Type != discordgo.ApplicationCommandOptionString {
			return "", false
		}
		value, ok := opt.Value.(string)
		return value, ok
	}
	return "", false
}

func GetInteractionUserID(i *discordgo.InteractionCreate) string {
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
