// Package voice drives one voice-channel connection and the audio player feeding it.
//
// The connection lifecycle is an explicit state machine:
//
//	Idle ──join──▶ Signalling ──▶ Connecting ──▶ Ready
//	                   ▲                            │
//	                   │ rejoin (linear backoff)    │ drop
//	                   └──────── Disconnected ◀─────┘
//	                                  │
//	                     4014 not recovered / attempts exhausted /
//	                     ready deadline missed / explicit destroy
//	                                  ▼
//	                              Destroyed (terminal)
//
// Machine.Apply is pure: it returns the next machine and the side effects the
// caller must run. Connection is the driver that runs them against a Link.
package voice

import (
	"fmt"
	"time"
)

type State int

const (
	StateIdle State = iota
	StateSignalling
	StateConnecting
	StateReady
	StateDisconnected
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSignalling:
		return "signalling"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CloseCodeDisconnected is the voice gateway close code sent both when the bot
// is kicked from a channel and when it is moved to another one.
const CloseCodeDisconnected = 4014

type EventKind int

const (
	// Reported by the link.
	EventSignalling EventKind = iota
	EventConnecting
	EventReady
	EventDisconnected

	// Requested by the owner.
	EventDestroy

	// Fired by timers armed through effects.
	EventRecoveryExpired
	EventRejoinDue
	EventReadyDeadline
)

func (k EventKind) String() string {
	switch k {
	case EventSignalling:
		return "signalling"
	case EventConnecting:
		return "connecting"
	case EventReady:
		return "ready"
	case EventDisconnected:
		return "disconnected"
	case EventDestroy:
		return "destroy"
	case EventRecoveryExpired:
		return "recovery-expired"
	case EventRejoinDue:
		return "rejoin-due"
	case EventReadyDeadline:
		return "ready-deadline"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

type Event struct {
	Kind      EventKind
	CloseCode int
}

type EffectKind int

const (
	// Start the recovery window timer; it fires EventRecoveryExpired.
	EffectAwaitRecovery EffectKind = iota
	// Start the rejoin timer; it fires EventRejoinDue.
	EffectScheduleRejoin
	// Ask the link to rejoin the bound channel.
	EffectRejoin
	// Start the ready deadline timer; it fires EventReadyDeadline.
	EffectArmReadyDeadline
	// Stop the ready deadline timer.
	EffectDisarmReadyDeadline
	// Tear the link down.
	EffectClose
	// Halt the audio player.
	EffectStopPlayback
)

func (k EffectKind) String() string {
	switch k {
	case EffectAwaitRecovery:
		return "await-recovery"
	case EffectScheduleRejoin:
		return "schedule-rejoin"
	case EffectRejoin:
		return "rejoin"
	case EffectArmReadyDeadline:
		return "arm-ready-deadline"
	case EffectDisarmReadyDeadline:
		return "disarm-ready-deadline"
	case EffectClose:
		return "close"
	case EffectStopPlayback:
		return "stop-playback"
	default:
		return fmt.Sprintf("effect(%d)", int(k))
	}
}

type Effect struct {
	Kind  EffectKind
	After time.Duration
}

// Policy holds the reconnection timings.
type Policy struct {
	RecoveryWindow    time.Duration
	RejoinStep        time.Duration
	MaxRejoinAttempts int
	ReadyDeadline     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		RecoveryWindow:    5 * time.Second,
		RejoinStep:        5 * time.Second,
		MaxRejoinAttempts: 5,
		ReadyDeadline:     20 * time.Second,
	}
}

// RejoinDelay is the wait before the rejoin that follows the given number of
// attempts already made.
func (p Policy) RejoinDelay(attempts int) time.Duration {
	return time.Duration(attempts+1) * p.RejoinStep
}

type Machine struct {
	Policy         Policy
	State          State
	RejoinAttempts int
	// ReadyWait is set while a ready deadline is armed.
	ReadyWait bool
}

func NewMachine(policy Policy) Machine {
	return Machine{Policy: policy, State: StateIdle}
}

func (m Machine) Apply(ev Event) (Machine, []Effect) {
	if m.State == StateDestroyed {
		return m, nil
	}

	switch ev.Kind {
	case EventSignalling:
		return m.enterNegotiation(StateSignalling, nil)

	case EventConnecting:
		return m.enterNegotiation(StateConnecting, nil)

	case EventReady:
		m.State = StateReady
		m.RejoinAttempts = 0
		if m.ReadyWait {
			m.ReadyWait = false
			return m, []Effect{{Kind: EffectDisarmReadyDeadline}}
		}
		return m, nil

	case EventDisconnected:
		m.State = StateDisconnected
		if ev.CloseCode == CloseCodeDisconnected {
			return m, []Effect{{Kind: EffectAwaitRecovery, After: m.Policy.RecoveryWindow}}
		}
		if m.RejoinAttempts < m.Policy.MaxRejoinAttempts {
			return m, []Effect{{Kind: EffectScheduleRejoin, After: m.Policy.RejoinDelay(m.RejoinAttempts)}}
		}
		return m.destroy()

	case EventRecoveryExpired:
		if m.State == StateDisconnected {
			return m.destroy()
		}
		return m, nil

	case EventRejoinDue:
		if m.State != StateDisconnected {
			return m, nil
		}
		m.RejoinAttempts++
		return m.enterNegotiation(StateSignalling, []Effect{{Kind: EffectRejoin}})

	case EventReadyDeadline:
		m.ReadyWait = false
		if m.State == StateReady {
			return m, nil
		}
		return m.destroy()

	case EventDestroy:
		return m.destroy()
	}

	return m, nil
}

func (m Machine) enterNegotiation(next State, effects []Effect) (Machine, []Effect) {
	m.State = next
	if !m.ReadyWait {
		m.ReadyWait = true
		effects = append(effects, Effect{Kind: EffectArmReadyDeadline, After: m.Policy.ReadyDeadline})
	}
	return m, effects
}

func (m Machine) destroy() (Machine, []Effect) {
	m.State = StateDestroyed
	m.ReadyWait = false
	return m, []Effect{{Kind: EffectClose}, {Kind: EffectStopPlayback}}
}
