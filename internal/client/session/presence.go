package session

import (
	"strings"

	"github.com/dhkiller350/cyber-chat/internal/domain"
)

// typingSet tracks who is composing in the active room, preserving
// insertion order so the phrase is stable across recomputes.
type typingSet struct {
	order []string
}

func (t *typingSet) add(username string) bool {
	for _, u := range t.order {
		if u == username {
			return false
		}
	}
	t.order = append(t.order, username)
	return true
}

func (t *typingSet) remove(username string) bool {
	for i, u := range t.order {
		if u == username {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return true
		}
	}
	return false
}

func (t *typingSet) reset() {
	t.order = nil
}

// phrase renders the indicator text: "X is typing" for one user,
// "A, B and C are typing" for several. Empty when nobody types.
func (t *typingSet) phrase() string {
	switch len(t.order) {
	case 0:
		return ""
	case 1:
		return t.order[0] + " is typing"
	default:
		head := strings.Join(t.order[:len(t.order)-1], ", ")
		return head + " and " + t.order[len(t.order)-1] + " are typing"
	}
}

func (s *Session) handleUserTypingLocked(username string) {
	// The local identity never appears in the typing set.
	if username == s.identity {
		return
	}
	if s.typing.add(username) {
		s.notifyLocked(TypingChanged{Phrase: s.typing.phrase()})
	}
}

func (s *Session) handleUserStoppedTypingLocked(username string) {
	if s.typing.remove(username) {
		s.notifyLocked(TypingChanged{Phrase: s.typing.phrase()})
	}
}

// InputActivity reports one keystroke in the active room. Every call
// signals typing to the server; the stop signal fires only after the
// debounce window passes without another keystroke. A new keystroke
// replaces the pending stop timer (last writer wins).
func (s *Session) InputActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == "" {
		return
	}

	payload := domain.TypingPayload{Room: s.room, Username: s.identity}
	if err := s.tr.Emit(domain.EventTyping, payload); err != nil {
		return
	}

	if s.typingTimer != nil {
		s.typingTimer.Reset(s.cfg.TypingDebounce)
		return
	}
	s.typingTimer = s.clk.AfterFunc(s.cfg.TypingDebounce, s.emitStopTyping)
}

func (s *Session) emitStopTyping() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == "" {
		return
	}
	payload := domain.TypingPayload{Room: s.room, Username: s.identity}
	if err := s.tr.Emit(domain.EventStopTyping, payload); err != nil {
		s.logger.Debug().Err(err).Msg("stop-typing signal dropped")
	}
}
