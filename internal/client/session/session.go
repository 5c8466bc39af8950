// Package session implements the client-side chat session core: one
// state machine that reconciles inbound transport events against local
// user intent and exposes the result as notifications.
//
// The package is split by component:
//   - session.go: lifecycle states, user intents, event reducer
//   - command.go: /command routing
//   - presence.go: typing set and outbound typing debounce
//   - moderation.go: kick/ban handling and forced transitions
//   - latency.go: periodic round-trip probe
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhkiller350/cyber-chat/internal/clock"
	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/pkg/log"
)

// State is the session lifecycle position.
type State int

const (
	StateUnauthenticated State = iota
	StateRoomSelection
	StateInRoom
)

func (s State) String() string {
	switch s {
	case StateRoomSelection:
		return "room_selection"
	case StateInRoom:
		return "in_room"
	default:
		return "unauthenticated"
	}
}

// Validation errors for local user input. Recovered locally; no state
// change accompanies any of them.
var (
	ErrIdentityRequired = errors.New("username required")
	ErrIdentityTooShort = errors.New("username must be at least 2 characters")
	ErrRoomRequired     = errors.New("room id required")
	ErrInvalidState     = errors.New("action not valid in current state")
)

// Transport is the outbound half of the event channel the session
// drives. *transport.Transport satisfies it.
type Transport interface {
	Emit(event string, payload any) error
	Connected() bool
	Shutdown()
}

// Config carries the session timing knobs.
type Config struct {
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	TypingDebounce  time.Duration `mapstructure:"typing_debounce"`
	KickNoticeDelay time.Duration `mapstructure:"kick_notice_delay"`
	BanNoticeDelay  time.Duration `mapstructure:"ban_notice_delay"`
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = 5 * time.Second
	}
	if c.TypingDebounce <= 0 {
		c.TypingDebounce = time.Second
	}
	if c.KickNoticeDelay <= 0 {
		c.KickNoticeDelay = 3 * time.Second
	}
	if c.BanNoticeDelay <= 0 {
		c.BanNoticeDelay = 5 * time.Second
	}
	return c
}

// Session owns identity, room membership and connectivity for one
// process lifetime. All mutation goes through its own methods; the
// mutex stands in for the single-threaded event loop of the design.
type Session struct {
	mu     sync.Mutex
	cfg    Config
	clk    clock.Clock
	tr     Transport
	sink   Sink
	logger zerolog.Logger

	state        State
	identity     string
	room         string
	role         domain.Role
	userCount    int
	connected    bool
	banned       bool
	messageCount int
	rooms        []domain.RoomSummary
	startedAt    time.Time

	typing      typingSet
	typingTimer clock.Timer
	forceTimer  clock.Timer

	probeAt    time.Time
	probeArmed bool
	latency    time.Duration
}

// New builds a Session in StateUnauthenticated. Call Start to arm the
// latency probe cycle.
func New(cfg Config, tr Transport, sink Sink, clk clock.Clock, logger zerolog.Logger) *Session {
	return &Session{
		cfg:       cfg.withDefaults(),
		clk:       clk,
		tr:        tr,
		sink:      sink,
		logger:    logger,
		state:     StateUnauthenticated,
		startedAt: clk.Now(),
	}
}

// Snapshot is a point-in-time copy of session state for rendering.
type Snapshot struct {
	State        State
	Identity     string
	DisplayName  string
	Room         string
	Role         domain.Role
	UserCount    int
	Connected    bool
	Banned       bool
	Latency      time.Duration
	MessageCount int
	Rooms        []domain.RoomSummary
	TypingPhrase string
	Uptime       time.Duration
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := append([]domain.RoomSummary(nil), s.rooms...)
	return Snapshot{
		State:        s.state,
		Identity:     s.identity,
		DisplayName:  domain.DisplayName(s.identity),
		Room:         s.room,
		Role:         s.role,
		UserCount:    s.userCount,
		Connected:    s.connected,
		Banned:       s.banned,
		Latency:      s.latency,
		MessageCount: s.messageCount,
		Rooms:        rooms,
		TypingPhrase: s.typing.phrase(),
		Uptime:       s.clk.Now().Sub(s.startedAt),
	}
}

// SubmitIdentity sets the display name and moves to room selection.
func (s *Session) SubmitIdentity(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnauthenticated {
		return ErrInvalidState
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrIdentityRequired
	}
	if len([]rune(name)) < 2 {
		return ErrIdentityTooShort
	}

	s.identity = name
	s.setStateLocked(StateRoomSelection)
	s.logger.Info().Str(log.FieldUsername, name).Msg("identity established")
	return nil
}

// RequestJoin asks the server for room membership. The state stays in
// room selection until the server confirms.
func (s *Session) RequestJoin(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRoomSelection {
		return ErrInvalidState
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrRoomRequired
	}

	payload := domain.JoinRoomPayload{RoomID: roomID, Username: s.identity}
	if err := s.tr.Emit(domain.EventJoinRoom, payload); err != nil {
		s.noticeLocked("Cannot join room: Not connected to server")
	}
	return nil
}

// TrySend routes outgoing user input: commands to the router, plain
// text to the server. Empty input is a no-op; an unusable link is a
// notice, not an error.
func (s *Session) TrySend(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	if !s.connected || !s.tr.Connected() {
		s.noticeLocked("Cannot send message: Not connected to server")
		return
	}
	if s.room == "" {
		s.noticeLocked("Cannot send message: Not in a room")
		return
	}

	if strings.HasPrefix(text, "/") {
		s.routeCommandLocked(text)
		return
	}

	if err := s.tr.Emit(domain.EventSendMessage, text); err != nil {
		s.noticeLocked("Cannot send message: Not connected to server")
		return
	}
	s.messageCount++
}

// LeaveRoom drops room membership locally and returns to room
// selection. No departure event is sent; the server reconciles
// membership on socket close or the next join.
func (s *Session) LeaveRoom() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInRoom {
		return ErrInvalidState
	}
	s.clearRoomLocked()
	s.setStateLocked(StateRoomSelection)
	return nil
}

// ReturnToMenu clears the whole session back to unauthenticated.
func (s *Session) ReturnToMenu() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUnauthenticated {
		return ErrInvalidState
	}
	s.clearRoomLocked()
	s.identity = ""
	s.setStateLocked(StateUnauthenticated)
	s.noticeLocked("Returned to main menu")
	return nil
}

// HandleEvent is the single entry point for inbound transport events.
// Events are applied in call order and never batched.
func (s *Session) HandleEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := ev.(type) {
	case ConnectedEvent:
		s.handleConnectedLocked()
	case DisconnectedEvent:
		s.handleDisconnectedLocked()
	case ConnectErrorEvent:
		s.noticeLocked("Connection error. Please check your network.")
	case RoomListEvent:
		s.rooms = append([]domain.RoomSummary(nil), ev.Rooms...)
		s.notifyLocked(RoomListUpdated{Rooms: append([]domain.RoomSummary(nil), s.rooms...)})
	case JoinedRoomEvent:
		s.handleJoinedRoomLocked(ev)
	case HistoryEvent:
		s.notifyLocked(HistoryReplayed{Messages: ev.Messages})
	case NewMessageEvent:
		s.handleNewMessageLocked(ev.Message)
	case ServerErrorEvent:
		s.noticeLocked("ERROR: " + ev.Text)
	case UserTypingEvent:
		s.handleUserTypingLocked(ev.Username)
	case UserStoppedTypingEvent:
		s.handleUserStoppedTypingLocked(ev.Username)
	case PongEvent:
		s.handlePongLocked()
	case CommandResponseEvent:
		s.handleCommandResponseLocked(ev)
	case KickedEvent:
		s.handleKickedLocked(ev)
	case BannedEvent:
		s.handleBannedLocked(ev)
	}
}

func (s *Session) handleConnectedLocked() {
	s.connected = true
	s.notifyLocked(ConnectionChanged{Connected: true})
	s.logger.Info().Msg("connected")

	// No server-side re-sync event exists, so a room held across a
	// disconnect is provisional: request a fresh confirmation. The
	// joinedRoom handler is idempotent for the room we are in.
	if s.room != "" {
		payload := domain.JoinRoomPayload{RoomID: s.room, Username: s.identity}
		if err := s.tr.Emit(domain.EventJoinRoom, payload); err != nil {
			s.logger.Warn().Err(err).Str(log.FieldRoom, s.room).Msg("rejoin after reconnect failed")
		}
	}
}

func (s *Session) handleDisconnectedLocked() {
	s.connected = false
	s.notifyLocked(ConnectionChanged{Connected: false})
	s.logger.Warn().Msg("disconnected")
	if s.room != "" {
		s.noticeLocked("Connection lost. Attempting to reconnect...")
	}
}

func (s *Session) handleJoinedRoomLocked(ev JoinedRoomEvent) {
	if s.state == StateInRoom && s.room == ev.RoomID {
		// Duplicate confirmation (e.g. rejoin after reconnect).
		// Applying it again would replay welcome side effects.
		s.userCount = ev.UserCount
		return
	}

	s.room = ev.RoomID
	s.role = domain.RoleFromFlags(ev.IsAdmin, ev.IsHost)
	s.userCount = ev.UserCount
	s.typing.reset()
	s.notifyLocked(TypingChanged{})
	s.notifyLocked(MessagesCleared{})
	s.setStateLocked(StateInRoom)

	// Host and admin suffixes stack; a hosting admin gets both.
	welcome := "Connection established. Welcome to the matrix."
	if ev.IsHost {
		welcome += " You are the server host."
	}
	if ev.IsAdmin {
		welcome += " Admin privileges active."
	}
	s.noticeLocked(welcome)
	s.logger.Info().
		Str(log.FieldRoom, s.room).
		Str("role", s.role.String()).
		Int("user_count", s.userCount).
		Msg("joined room")
}

func (s *Session) handleNewMessageLocked(m domain.Message) {
	s.notifyLocked(MessageAppended{Message: m})
	if m.Type == domain.MessageUser && m.Username == s.identity {
		s.notifyLocked(CreditsAwarded{Amount: 1})
	}
}

func (s *Session) handleCommandResponseLocked(ev CommandResponseEvent) {
	s.notifyLocked(MessageAppended{Message: domain.Message{
		Type:      domain.MessageSystem,
		Username:  strings.ToUpper(ev.Type),
		Content:   ev.Content,
		Timestamp: s.clk.Now(),
	}})
}

// setStateLocked records a transition and cancels any pending forced
// transition that targeted the previous state.
func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.notifyLocked(StateChanged{State: st})
}

// clearRoomLocked resets everything scoped to room membership. Role
// always resets with the room.
func (s *Session) clearRoomLocked() {
	s.room = ""
	s.role = domain.RoleMember
	s.userCount = 0
	s.typing.reset()
	s.notifyLocked(TypingChanged{})
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
}

func (s *Session) noticeLocked(content string) {
	s.notifyLocked(MessageAppended{Message: domain.Message{
		Type:      domain.MessageSystem,
		Username:  domain.SystemAuthor,
		Content:   content,
		Timestamp: s.clk.Now(),
	}})
}

func (s *Session) notifyLocked(n Notification) {
	if s.sink != nil {
		s.sink.Notify(n)
	}
}
