package shared

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))

	long := strings.Repeat("é", 2500)
	got := Truncate(long, maxContentLength)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxContentLength, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	exact := strings.Repeat("한", maxContentLength)
	assert.Equal(t, exact, Truncate(exact, maxContentLength), "multi-byte text at the limit is kept whole")
}

func TestStringOption(t *testing.T) {
	options := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "limit", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
		{Name: "query", Type: discordgo.ApplicationCommandOptionString, Value: "lofi"},
	}

	value, ok := StringOption(options, "query")
	assert.True(t, ok)
	assert.Equal(t, "lofi", value)

	_, ok = StringOption(options, "limit")
	assert.False(t, ok)

	_, ok = StringOption(options, "missing")
	assert.False(t, ok)
}
