package connectivity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Mode is the operator override on top of the raw network signal.
type Mode string

const (
	// ModeAuto trusts the probe signal.
	ModeAuto Mode = "auto"
	// ModeOnline forces treat-as-online; submissions fail fast and fall
	// back to queueing when the network is actually down.
	ModeOnline Mode = "online"
	// ModeOffline forces queueing regardless of actual connectivity.
	ModeOffline Mode = "offline"
)

var ErrUnknownMode = errors.New("unknown connectivity mode")

type State string

const (
	Online  State = "online"
	Offline State = "offline"
)

// Prober reports actual network reachability. Injected so tests can drive
// transitions without real network state.
type Prober interface {
	Online(ctx context.Context) bool
}

// Monitor derives the effective connectivity state from the probe signal and
// the operator override, and notifies subscribers on every effective
// transition. Nothing is persisted; the mode resets to auto on restart.
type Monitor struct {
	mu           sync.Mutex
	signalOnline bool
	mode         Mode
	subscribers  []chan State
}

func NewMonitor(signalOnline bool) *Monitor {
	return &Monitor{
		signalOnline: signalOnline,
		mode:         ModeAuto,
	}
}

// Run drives the probe until ctx is done.
func (m *Monitor) Run(ctx context.Context, prober Prober, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.SetSignal(prober.Online(ctx))
		}
	}
}

// SetSignal records the raw reachability signal.
func (m *Monitor) SetSignal(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.effectiveLocked()
	m.signalOnline = online
	m.notifyLocked(before)
}

func (m *Monitor) SetMode(mode Mode) error {
	switch mode {
	case ModeAuto, ModeOnline, ModeOffline:
	default:
		return ErrUnknownMode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.effectiveLocked()
	m.mode = mode
	m.notifyLocked(before)

	return nil
}

func (m *Monitor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mode
}

func (m *Monitor) SignalOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.signalOnline
}

// Effective returns the state after applying the operator override.
func (m *Monitor) Effective() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.effectiveLocked()
}

// Subscribe returns a channel receiving every effective-state transition.
// The channel is buffered; an undelivered notification is coalesced with
// the next one rather than blocking the monitor.
func (m *Monitor) Subscribe() <-chan State {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan State, 1)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

func (m *Monitor) effectiveLocked() State {
	switch m.mode {
	case ModeOnline:
		return Online
	case ModeOffline:
		return Offline
	default:
		if m.signalOnline {
			return Online
		}
		return Offline
	}
}

func (m *Monitor) notifyLocked(before State) {
	after := m.effectiveLocked()
	if after == before {
		return
	}

	for _, ch := range m.subscribers {
		select {
		case ch <- after:
		default:
			// Subscriber has an unread notification; replace it so it
			// always sees the latest state.
			select {
			case <-ch:
			default:
			}
			ch <- after
		}
	}
}
