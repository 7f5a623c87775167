package music

import (
	"sync"
)

// Manager is the per-guild player registry.
type Manager struct {
	opts Options

	mu      sync.Mutex
	players map[string]*Player
}

func NewManager(opts Options) *Manager {
	return &Manager{
		opts:    opts,
		players: make(map[string]*Player),
	}
}

// Get returns the guild's player, creating it on first use.
func (m *Manager) Get(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[guildID]; ok {
		return p
	}
	p := NewPlayer(guildID, m.opts)
	m.players[guildID] = p
	return p
}

// ActiveSessions counts guilds currently holding a voice session.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	n := 0
	for _, p := range players {
		if p.HasSession() {
			n++
		}
	}
	return n
}

// Shutdown leaves every voice channel.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	for _, p := range players {
		p.Leave()
	}
}
