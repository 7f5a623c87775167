package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAudioPlayer_PlaysToEnd(t *testing.T) {
	link := &fakeLink{}
	p := NewAudioPlayer(link, zaptest.NewLogger(t))

	var mu sync.Mutex
	var seen []AudioStatus
	idle := make(chan struct{})
	p.OnStateChange(func(prev, next AudioStatus) {
		mu.Lock()
		seen = append(seen, next)
		mu.Unlock()
		if next == AudioIdle {
			close(idle)
		}
	})

	res := &fakeResource{frames: [][]byte{{1}, {}, {2}, {3}}}
	require.NoError(t, p.Play(res))

	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatal("player did not return to idle")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []AudioStatus{AudioBuffering, AudioPlaying, AudioIdle}, seen)
	_, _, frames := link.counts()
	assert.Equal(t, 3, frames, "empty frames are skipped")
	assert.True(t, res.isClosed())
	link.mu.Lock()
	assert.False(t, link.speaking)
	link.mu.Unlock()
}

func TestAudioPlayer_NotIdle(t *testing.T) {
	p := NewAudioPlayer(&fakeLink{}, zaptest.NewLogger(t))
	require.NoError(t, p.Play(&fakeResource{endless: true, delay: time.Millisecond}))
	defer p.Stop()

	assert.ErrorIs(t, p.Play(&fakeResource{}), ErrNotIdle)
}

func TestAudioPlayer_Stop(t *testing.T) {
	p := NewAudioPlayer(&fakeLink{}, zaptest.NewLogger(t))
	assert.False(t, p.Stop(), "nothing to stop")

	res := &fakeResource{endless: true, delay: time.Millisecond}
	require.NoError(t, p.Play(res))
	require.NoError(t, p.WaitFor(context.Background(), AudioPlaying, time.Second))

	assert.True(t, p.Stop())
	require.NoError(t, p.WaitFor(context.Background(), AudioIdle, time.Second))
	assert.True(t, res.isClosed())
	assert.Equal(t, AudioIdle, p.Status())
}

func TestAudioPlayer_ResourceFailure(t *testing.T) {
	p := NewAudioPlayer(&fakeLink{}, zaptest.NewLogger(t))
	res := &fakeResource{frames: [][]byte{{1}}, failErr: errors.New("decoder crashed")}
	require.NoError(t, p.Play(res))

	require.Eventually(t, func() bool { return res.isClosed() && p.Status() == AudioIdle },
		time.Second, time.Millisecond)
}

func TestAudioPlayer_WaitForTimeout(t *testing.T) {
	p := NewAudioPlayer(&fakeLink{}, zaptest.NewLogger(t))
	err := p.WaitFor(context.Background(), AudioPlaying, 5*time.Millisecond)
	assert.ErrorIs(t, err, ErrStateTimeout)
}

func TestAudioStatus_String(t *testing.T) {
	assert.Equal(t, "idle", AudioIdle.String())
	assert.Equal(t, "buffering", AudioBuffering.String())
	assert.Equal(t, "playing", AudioPlaying.String())
	assert.Equal(t, "audio(9)", AudioStatus(9).String())
}

func TestAudioPlayer_StopAndWait(t *testing.T) {
	p := NewAudioPlayer(&fakeLink{}, zaptest.NewLogger(t))

	stopped, err := p.StopAndWait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, stopped)

	res := &fakeResource{endless: true, delay: time.Millisecond}
	require.NoError(t, p.Play(res))

	stopped, err = p.StopAndWait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.Equal(t, AudioIdle, p.Status())
	assert.True(t, res.isClosed())
}
