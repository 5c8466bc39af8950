package session

import "github.com/dhkiller350/cyber-chat/internal/domain"

// Start arms the periodic latency probe. It fires for the whole
// process lifetime regardless of session state, even before a room is
// joined; there is no way (or need) to cancel it.
func (s *Session) Start() {
	s.clk.AfterFunc(s.cfg.PingInterval, s.probeTick)
}

func (s *Session) probeTick() {
	s.mu.Lock()
	s.probeLocked()
	s.mu.Unlock()

	s.clk.AfterFunc(s.cfg.PingInterval, s.probeTick)
}

// probeLocked sends one ping and records the send instant. A probe
// fired while an earlier one is unacknowledged overwrites the pending
// timestamp: only the latest round trip is meaningful.
func (s *Session) probeLocked() {
	s.probeAt = s.clk.Now()
	s.probeArmed = true
	if err := s.tr.Emit(domain.EventPing, nil); err != nil {
		s.probeArmed = false
	}
}

// handlePongLocked pairs the acknowledgement with the last probe. The
// previous latency value stays visible between probes.
func (s *Session) handlePongLocked() {
	if !s.probeArmed {
		return
	}
	s.probeArmed = false
	s.latency = s.clk.Now().Sub(s.probeAt)
	s.notifyLocked(LatencyUpdated{Latency: s.latency})
}
