package session

import (
	"fmt"
	"time"

	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/pkg/log"
)

// handleKickedLocked surfaces a server-issued kick and schedules the
// forced return to the login screen. A cooldown rejection is message
// only: the user was never re-admitted, so there is nothing to tear
// down.
func (s *Session) handleKickedLocked(ev KickedEvent) {
	switch ev.Type {
	case domain.KickServer:
		s.noticeLocked("KICKED FROM SERVER: " + ev.Reason)
		minutes := ev.Cooldown / int64(time.Minute/time.Millisecond)
		s.noticeLocked(fmt.Sprintf("You are temporarily blocked for %d minutes.", minutes))
	case domain.KickCooldown:
		s.noticeLocked("KICK COOLDOWN ACTIVE: " + ev.Reason)
		return
	default:
		s.noticeLocked("You have been kicked: " + ev.Reason)
	}

	s.logger.Warn().
		Str(log.FieldRoom, s.room).
		Str("reason", ev.Reason).
		Msg("kicked")
	s.scheduleForcedReturnLocked(s.cfg.KickNoticeDelay)
}

// handleBannedLocked surfaces a permanent ban. Besides the forced
// transition, the transport is torn down for good and the room list is
// cleared so no entry for the banning server stays visible.
func (s *Session) handleBannedLocked(ev BannedEvent) {
	s.noticeLocked("PERMANENTLY BANNED: " + ev.Reason)
	s.noticeLocked("This server is no longer accessible to you.")
	s.logger.Warn().Str("reason", ev.Reason).Msg("banned")

	s.banned = true
	s.rooms = nil
	s.notifyLocked(RoomListUpdated{})

	s.scheduleForcedReturnLocked(s.cfg.BanNoticeDelay)
}

// scheduleForcedReturnLocked arms the delayed returnToMenu-equivalent
// transition. A later moderation event replaces a pending one.
func (s *Session) scheduleForcedReturnLocked(delay time.Duration) {
	if s.forceTimer != nil {
		s.forceTimer.Stop()
	}
	s.forceTimer = s.clk.AfterFunc(delay, s.forcedReturn)
}

func (s *Session) forcedReturn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearRoomLocked()
	s.identity = ""
	s.setStateLocked(StateUnauthenticated)

	if s.banned {
		// Sticky for the process lifetime: no reconnects.
		s.connected = false
		s.tr.Shutdown()
		s.notifyLocked(ConnectionChanged{Connected: false})
	}
}
