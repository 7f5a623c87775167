package voice

import "go.uber.org/zap"

// Session binds a connection to the audio player that feeds it. Destroying
// the connection halts playback.
type Session struct {
	*Connection
	Audio *AudioPlayer
}

// NewSession wires a player to link. Call Open to start joining.
func NewSession(link Link, policy Policy, logger *zap.Logger) *Session {
	conn := NewConnection(link, policy, logger)
	audio := NewAudioPlayer(link, logger)
	conn.stopPlayback = func() { audio.Stop() }
	return &Session{Connection: conn, Audio: audio}
}
