package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhkiller350/cyber-chat/internal/clock"
	"github.com/dhkiller350/cyber-chat/internal/domain"
)

type emitted struct {
	event   string
	payload any
}

type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	shutdown  bool
	emitErr   error
	events    []emitted
}

func (f *fakeTransport) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.events = append(f.events, emitted{event: event, payload: payload})
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	f.connected = false
}

func (f *fakeTransport) sent(event string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type recordingSink struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingSink) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingSink) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// notices returns the contents of system messages in emission order.
func (r *recordingSink) notices() []string {
	var out []string
	for _, n := range r.all() {
		if m, ok := n.(MessageAppended); ok && m.Message.Type == domain.MessageSystem {
			out = append(out, m.Message.Content)
		}
	}
	return out
}

func newTestSession(t *testing.T) (*Session, *fakeTransport, *recordingSink, *clock.Fake) {
	t.Helper()
	tr := &fakeTransport{connected: true}
	sink := &recordingSink{}
	clk := clock.NewFake()
	s := New(Config{}, tr, sink, clk, zerolog.Nop())
	return s, tr, sink, clk
}

// connect drives the session to a connected, identified state.
func connect(t *testing.T, s *Session, name string) {
	t.Helper()
	s.HandleEvent(ConnectedEvent{})
	require.NoError(t, s.SubmitIdentity(name))
}

// joinRoom drives the session all the way into a room.
func joinRoom(t *testing.T, s *Session, room string, userCount int, role domain.Role) {
	t.Helper()
	require.NoError(t, s.RequestJoin(room))
	s.HandleEvent(JoinedRoomEvent{
		RoomID:    room,
		UserCount: userCount,
		IsAdmin:   role == domain.RoleAdmin,
		IsHost:    role == domain.RoleHost,
	})
	require.Equal(t, StateInRoom, s.Snapshot().State)
}

func TestSubmitIdentityValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrIdentityRequired},
		{name: "whitespace only", input: "   ", wantErr: ErrIdentityRequired},
		{name: "single character", input: "a", wantErr: ErrIdentityTooShort},
		{name: "single character padded", input: " a ", wantErr: ErrIdentityTooShort},
		{name: "two characters", input: "ab", wantErr: nil},
		{name: "trimmed", input: "  Neo  ", wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, _ := newTestSession(t)
			err := s.SubmitIdentity(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, StateUnauthenticated, s.Snapshot().State)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StateRoomSelection, s.Snapshot().State)
		})
	}
}

func TestSubmitIdentityOnlyFromUnauthenticated(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	require.NoError(t, s.SubmitIdentity("Neo"))
	assert.ErrorIs(t, s.SubmitIdentity("Smith"), ErrInvalidState)
}

func TestIdentityDisplayUppercasesButPreservesCase(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	require.NoError(t, s.SubmitIdentity("Neo"))

	snap := s.Snapshot()
	assert.Equal(t, "Neo", snap.Identity)
	assert.Equal(t, "NEO", snap.DisplayName)
}

func TestRequestJoinValidation(t *testing.T) {
	s, tr, _, _ := newTestSession(t)
	connect(t, s, "Neo")

	require.ErrorIs(t, s.RequestJoin("   "), ErrRoomRequired)
	assert.Empty(t, tr.sent(domain.EventJoinRoom))

	require.NoError(t, s.RequestJoin("zion"))
	joins := tr.sent(domain.EventJoinRoom)
	require.Len(t, joins, 1)
	assert.Equal(t, domain.JoinRoomPayload{RoomID: "zion", Username: "Neo"}, joins[0].payload)

	// State stays in room selection until the server confirms.
	assert.Equal(t, StateRoomSelection, s.Snapshot().State)
}

func TestScenarioNeoJoinsZion(t *testing.T) {
	s, tr, _, _ := newTestSession(t)
	connect(t, s, "Neo")

	require.NoError(t, s.RequestJoin("zion"))
	s.HandleEvent(JoinedRoomEvent{RoomID: "zion", UserCount: 3, IsHost: true})

	snap := s.Snapshot()
	assert.Equal(t, StateInRoom, snap.State)
	assert.Equal(t, "zion", snap.Room)
	assert.Equal(t, domain.RoleHost, snap.Role)

	s.TrySend("hello")
	assert.Equal(t, 1, s.Snapshot().MessageCount)
	sends := tr.sent(domain.EventSendMessage)
	require.Len(t, sends, 1)
	assert.Equal(t, "hello", sends[0].payload)

	// Role-gated command: forwarded verbatim, never counted.
	s.TrySend("/shutdown")
	assert.Equal(t, 1, s.Snapshot().MessageCount)
	sends = tr.sent(domain.EventSendMessage)
	require.Len(t, sends, 2)
	assert.Equal(t, "/shutdown", sends[1].payload)
}

func TestTrySendGuards(t *testing.T) {
	t.Run("empty input is a no-op", func(t *testing.T) {
		s, tr, sink, _ := newTestSession(t)
		connect(t, s, "Neo")
		joinRoom(t, s, "zion", 1, domain.RoleMember)
		before := len(sink.notices())

		s.TrySend("   ")

		assert.Empty(t, tr.sent(domain.EventSendMessage))
		assert.Len(t, sink.notices(), before)
	})

	t.Run("disconnected produces a notice, not an error", func(t *testing.T) {
		s, tr, sink, _ := newTestSession(t)
		connect(t, s, "Neo")
		joinRoom(t, s, "zion", 1, domain.RoleMember)
		tr.connected = false
		s.HandleEvent(DisconnectedEvent{})

		s.TrySend("hello")

		assert.Empty(t, tr.sent(domain.EventSendMessage))
		assert.Contains(t, sink.notices(), "Cannot send message: Not connected to server")
		assert.Equal(t, 0, s.Snapshot().MessageCount)
	})

	t.Run("no room produces a notice", func(t *testing.T) {
		s, tr, sink, _ := newTestSession(t)
		connect(t, s, "Neo")

		s.TrySend("hello")

		assert.Empty(t, tr.sent(domain.EventSendMessage))
		assert.Contains(t, sink.notices(), "Cannot send message: Not in a room")
	})

	t.Run("emit failure does not count the message", func(t *testing.T) {
		s, tr, _, _ := newTestSession(t)
		connect(t, s, "Neo")
		joinRoom(t, s, "zion", 1, domain.RoleMember)
		tr.emitErr = errors.New("broken pipe")

		s.TrySend("hello")

		assert.Equal(t, 0, s.Snapshot().MessageCount)
	})
}

func TestLeaveRoomResetsRoleWithRoom(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	connect(t, s, "Neo")
	joinRoom(t, s, "zion", 3, domain.RoleHost)

	require.NoError(t, s.LeaveRoom())

	snap := s.Snapshot()
	assert.Equal(t, StateRoomSelection, snap.State)
	assert.Empty(t, snap.Room)
	assert.Equal(t, domain.RoleMember, snap.Role)
	assert.Equal(t, "Neo", snap.Identity)
}

func TestReturnToMenuClearsIdentity(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	connect(t, s, "Neo")
	joinRoom(t, s, "zion", 3, domain.RoleAdmin)

	require.NoError(t, s.ReturnToMenu())

	snap := s.Snapshot()
	assert.Equal(t, StateUnauthenticated, snap.State)
	assert.Empty(t, snap.Identity)
	assert.Empty(t, snap.Room)
	assert.Equal(t, domain.RoleMember, snap.Role)
}

func TestJoinedRoomIdempotent(t *testing.T) {
	s, _, sink, _ := newTestSession(t)
	connect(t, s, "Neo")
	joinRoom(t, s, "zion", 3, domain.RoleHost)
	welcomes := len(sink.notices())

	// Duplicate confirmation for the same room, e.g. after reconnect.
	s.HandleEvent(JoinedRoomEvent{RoomID: "zion", UserCount: 5, IsHost: true})

	snap := s.Snapshot()
	assert.Equal(t, StateInRoom, snap.State)
	assert.Equal(t, 5, snap.UserCount)
	assert.Len(t, sink.notices(), welcomes, "welcome side effects must not replay")
}

func TestWelcomeSuffixesStack(t *testing.T) {
	tests := []struct {
		name    string
		isHost  bool
		isAdmin bool
		want    string
	}{
		{
			name: "member",
			want: "Connection established. Welcome to the matrix.",
		},
		{
			name:   "host only",
			isHost: true,
			want:   "Connection established. Welcome to the matrix. You are the server host.",
		},
		{
			name:    "admin only",
			isAdmin: true,
			want:    "Connection established. Welcome to the matrix. Admin privileges active.",
		},
		{
			name:    "hosting admin gets both, host first",
			isHost:  true,
			isAdmin: true,
			want:    "Connection established. Welcome to the matrix. You are the server host. Admin privileges active.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, sink, _ := newTestSession(t)
			connect(t, s, "Neo")

			require.NoError(t, s.RequestJoin("zion"))
			s.HandleEvent(JoinedRoomEvent{RoomID: "zion", UserCount: 1, IsAdmin: tt.isAdmin, IsHost: tt.isHost})

			assert.Contains(t, sink.notices(), tt.want)
		})
	}
}

func TestHistoryOrderPreserved(t *testing.T) {
	s, _, sink, _ := newTestSession(t)
	connect(t, s, "Neo")
	joinRoom(t, s, "zion", 1, domain.RoleMember)

	// Deliberately non-chronological timestamps: server order wins.
	now := time.Now()
	history := []domain.Message{
		{Type: domain.MessageUser, Username: "Trinity", Content: "m1", Timestamp: now},
		{Type: domain.MessageUser, Username: "Morpheus", Content: "m2", Timestamp: now.Add(-time.Hour)},
		{Type: domain.MessageUser, Username: "Tank", Content: "m3", Timestamp: now.Add(time.Hour)},
	}
	s.HandleEvent(HistoryEvent{Messages: history})

	var replayed []domain.Message
	for _, n := range sink.all() {
		if h, ok := n.(HistoryReplayed); ok {
			replayed = h.Messages
		}
	}
	require.Len(t, replayed, 3)
	assert.Equal(t, "m1", replayed[0].Content)
	assert.Equal(t, "m2", replayed[1].Content)
	assert.Equal(t, "m3", replayed[2].Content)
}

func TestOwnMessageAwardsCredits(t *testing.T) {
	s, _, sink, _ := newTestSession(t)
	connect(t, s, "Neo")
	joinRoom(t, s, "zion", 2, domain.RoleMember)

	s.HandleEvent(NewMessageEvent{Message: domain.Message{
		Type: domain.MessageUser, Username: "Neo", Content: "hi",
	}})
	s.HandleEvent(NewMessageEvent{Message: domain.Message{
		Type: domain.MessageUser, Username: "Trinity", Content: "hi yourself",
	}})
	s.HandleEvent(NewMessageEvent{Message: domain.Message{
		Type: domain.MessageSystem, Username: "Neo", Content: "not a user message",
	}})

	credits := 0
	for _, n := range sink.all() {
		if c, ok := n.(CreditsAwarded); ok {
			credits += c.Amount
		}
	}
	assert.Equal(t, 1, credits)
}

func TestServerErrorSurfacedVerbatim(t *testing.T) {
	s, _, sink, _ := newTestSession(t)
	connect(t, s, "Neo")

	s.HandleEvent(ServerErrorEvent{Text: "Username already taken in this room"})

	assert.Contains(t, sink.notices(), "ERROR: Username already taken in this room")
	assert.Equal(t, StateRoomSelection, s.Snapshot().State)
}

func TestCommandResponseUsesTypeAsAuthor(t *testing.T) {
	s, _, sink, _ := newTestSession(t)
	connect(t, s, "Neo")

	s.HandleEvent(CommandResponseEvent{Type: domain.ResponseSuccess, Content: "User kicked"})

	var got domain.Message
	for _, n := range sink.all() {
		if m, ok := n.(MessageAppended); ok {
			got = m.Message
		}
	}
	assert.Equal(t, domain.MessageSystem, got.Type)
	assert.Equal(t, "SUCCESS", got.Username)
	assert.Equal(t, "User kicked", got.Content)
}

func TestDisconnectPreservesRoomOptimistically(t *testing.T) {
	s, tr, sink, _ := newTestSession(t)
	connect(t, s, "Neo")
	joinRoom(t, s, "zion", 3, domain.RoleMember)

	tr.connected = false
	s.HandleEvent(DisconnectedEvent{})

	snap := s.Snapshot()
	assert.False(t, snap.Connected)
	assert.Equal(t, "zion", snap.Room, "room survives the disconnect pending reconciliation")
	assert.Equal(t, StateInRoom, snap.State)
	assert.Contains(t, sink.notices(), "Connection lost. Attempting to reconnect...")
}

func TestReconnectRequestsFreshJoinConfirmation(t *testing.T) {
	s, tr, _, _ := newTestSession(t)
	connect(t, s, "Neo")
	joinRoom(t, s, "zion", 3, domain.RoleMember)
	require.Len(t, tr.sent(domain.EventJoinRoom), 1)

	tr.connected = false
	s.HandleEvent(DisconnectedEvent{})
	tr.connected = true
	s.HandleEvent(ConnectedEvent{})

	joins := tr.sent(domain.EventJoinRoom)
	require.Len(t, joins, 2)
	assert.Equal(t, domain.JoinRoomPayload{RoomID: "zion", Username: "Neo"}, joins[1].payload)
}

func TestRoomListReplacedWholesale(t *testing.T) {
	s, _, sink, _ := newTestSession(t)

	s.HandleEvent(RoomListEvent{Rooms: []domain.RoomSummary{
		{ID: "zion", UserCount: 3},
		{ID: "nebuchadnezzar", UserCount: 1},
	}})
	s.HandleEvent(RoomListEvent{Rooms: []domain.RoomSummary{
		{ID: "zion", UserCount: 4},
	}})

	assert.Equal(t, []domain.RoomSummary{{ID: "zion", UserCount: 4}}, s.Snapshot().Rooms)

	var updates int
	for _, n := range sink.all() {
		if _, ok := n.(RoomListUpdated); ok {
			updates++
		}
	}
	assert.Equal(t, 2, updates)
}

func TestEventReplayIsDeterministic(t *testing.T) {
	// The same recorded sequence applied to two sessions must produce
	// identical state, without a transport in sight.
	replay := func() Snapshot {
		s, _, _, _ := newTestSession(t)
		connect(t, s, "Neo")
		events := []Event{
			RoomListEvent{Rooms: []domain.RoomSummary{{ID: "zion", UserCount: 2}}},
			JoinedRoomEvent{RoomID: "zion", UserCount: 3, IsAdmin: true},
			UserTypingEvent{Username: "Trinity"},
			NewMessageEvent{Message: domain.Message{Type: domain.MessageUser, Username: "Trinity", Content: "hi"}},
			UserStoppedTypingEvent{Username: "Trinity"},
			UserTypingEvent{Username: "Morpheus"},
		}
		for _, ev := range events {
			s.HandleEvent(ev)
		}
		snap := s.Snapshot()
		snap.Uptime = 0
		return snap
	}

	assert.Equal(t, replay(), replay())
}

func TestBindDecodesWireEvents(t *testing.T) {
	// Exercise the JSON boundary the same way the transport does.
	s, _, sink, _ := newTestSession(t)
	connect(t, s, "Neo")

	raw := json.RawMessage(`{"roomId":"zion","userCount":3,"isAdmin":false,"isHost":true}`)
	var p domain.JoinedRoomPayload
	require.NoError(t, json.Unmarshal(raw, &p))
	s.HandleEvent(JoinedRoomEvent{RoomID: p.RoomID, UserCount: p.UserCount, IsAdmin: p.IsAdmin, IsHost: p.IsHost})

	snap := s.Snapshot()
	assert.Equal(t, "zion", snap.Room)
	assert.Equal(t, domain.RoleHost, snap.Role)
	assert.NotEmpty(t, sink.notices())
}
