package music

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hxnx/jukebot/internal/voice"
)

func TestManager(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager(Options{
		Searcher: &fakeSearcher{},
		Streamer: &fakeStreamer{},
		Dial:     dialer.dial,
		Policy:   voice.DefaultPolicy(),
		Timings:  DefaultTimings(),
		Logger:   zap.NewNop(),
	})

	a := m.Get("guild-a")
	assert.Same(t, a, m.Get("guild-a"))
	b := m.Get("guild-b")
	assert.NotSame(t, a, b)
	assert.Zero(t, m.ActiveSessions())

	require.NoError(t, a.Play(context.Background(), "voice-a", "song"))
	assert.Equal(t, 1, m.ActiveSessions())
	assert.False(t, b.HasSession(), "guilds are isolated")

	m.Shutdown()
	require.Eventually(t, func() bool { return m.ActiveSessions() == 0 }, time.Second, time.Millisecond)
}
