package voice

import (
	"context"
	"errors"
)

var (
	ErrStateTimeout = errors.New("state wait timed out")
	ErrDestroyed    = errors.New("voice connection destroyed")
	ErrNotIdle      = errors.New("audio player is not idle")
	ErrLinkNotReady = errors.New("voice link is not ready")
	ErrFrameTimeout = errors.New("timed out sending opus frame")
)

// FrameSink accepts 20ms Opus frames for transmission.
type FrameSink interface {
	SendFrame(ctx context.Context, frame []byte) error
	Speaking(speaking bool)
}

// Link is the network side of a voice connection. Open starts joining and
// reports every status change through notify until Close.
type Link interface {
	FrameSink
	Open(notify func(Event)) error
	Rejoin() error
	Close() error
	ChannelID() string
}

// Resource is a playable source of Opus frames. ReadFrame returns io.EOF once
// the source is exhausted.
type Resource interface {
	ReadFrame() ([]byte, error)
	Close() error
}
