package netsync

// NodeState is the node's own synchronization phase, spec 4.4's
// {Saturated, NearlySaturated, Synchronizing} machine.
type NodeState int

const (
	// Saturated means the node believes it is at the tip of every peer's
	// chain and nothing is in flight.
	Saturated NodeState = iota
	// NearlySaturated means in-flight work has drained below the window
	// and the remaining gap to the best-known height is under threshold,
	// but the node has not yet confirmed it is fully caught up.
	NearlySaturated
	// Synchronizing means the node is actively pulling headers and blocks
	// to close a gap of at least threshold against a peer's claimed tip.
	Synchronizing
)

func (s NodeState) String() string {
	switch s {
	case Saturated:
		return "saturated"
	case NearlySaturated:
		return "nearly-saturated"
	case Synchronizing:
		return "synchronizing"
	default:
		return "unknown"
	}
}

// catchUpThreshold is the height gap, spec 4.4's "current tip + threshold",
// past which the node leaves Saturated and starts pulling headers.
const catchUpThreshold = 3

// recalculateStateLocked re-derives m.state from the current tip,
// best-known height, and in-flight count, per spec 4.4's transition table.
// Must be called with m.mu held.
func (m *Manager) recalculateStateLocked() {
	tip := m.store.BestBlock().Height
	gap := int64(m.bestKnownHeight) - int64(tip)
	inFlight := len(m.inFlight)

	switch m.state {
	case Saturated:
		if gap > catchUpThreshold {
			m.state = Synchronizing
			m.log.Infof("leaving saturated state: best known height %d is %d ahead of tip %d", m.bestKnownHeight, gap, tip)
		}
	case Synchronizing:
		if inFlight < m.window && gap <= catchUpThreshold {
			m.state = NearlySaturated
			m.flushParkedContinuationsLocked()
		}
	case NearlySaturated:
		if inFlight == 0 && gap <= 0 {
			m.state = Saturated
			m.flushParkedContinuationsLocked()
		} else if gap > catchUpThreshold {
			m.state = Synchronizing
		}
	}
}

// State reports the node's current synchronization phase.
func (m *Manager) State() NodeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AfterNearlySaturated parks a continuation to run once the node reaches
// NearlySaturated (or runs it at once if the node is already NearlySaturated
// or Saturated), spec 4.4's after_peer_nearly_blocks_verified hook: a caller
// that wants to issue a fresh getheaders only once catch-up has drained
// registers one of these instead of firing immediately.
func (m *Manager) AfterNearlySaturated(continuation func()) {
	m.mu.Lock()
	ready := m.state != Synchronizing
	if !ready {
		m.parked = append(m.parked, continuation)
	}
	m.mu.Unlock()

	if ready {
		continuation()
	}
}

func (m *Manager) flushParkedContinuationsLocked() {
	parked := m.parked
	m.parked = nil
	for _, continuation := range parked {
		go continuation()
	}
}
