package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/internal/server/config"
	"github.com/dhkiller350/cyber-chat/internal/server/hub"
	"github.com/dhkiller350/cyber-chat/internal/server/store"
)

func newTestService(t *testing.T) (ChatService, *hub.Hub, *store.MemoryStore) {
	t.Helper()
	h := hub.NewHub()
	st := store.NewMemoryStore()
	svc := NewChatService(h, st, config.ModerationConfig{
		Admins:       []string{"Morpheus"},
		KickCooldown: 2 * time.Minute,
		DefaultMute:  time.Minute,
		HistoryLimit: 5,
	})
	return svc, h, st
}

// connect registers a socketless client and discards the greeting.
func connect(t *testing.T, svc ChatService, h *hub.Hub, id string) *hub.Client {
	t.Helper()
	c := hub.NewClient(id, nil, config.WebSocketConfig{})
	h.Register(c)
	svc.HandleConnect(c)
	drain(t, c)
	return c
}

func join(t *testing.T, svc ChatService, c *hub.Client, username, room string) {
	t.Helper()
	require.NoError(t, svc.HandleJoinRoom(context.Background(), c, domain.JoinRoomPayload{
		RoomID:   room,
		Username: username,
	}))
}

func drain(t *testing.T, c *hub.Client) []domain.Envelope {
	t.Helper()
	var out []domain.Envelope
	for {
		select {
		case frame, ok := <-c.Send:
			if !ok {
				return out
			}
			var env domain.Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventNames(envs []domain.Envelope) []string {
	names := make([]string, len(envs))
	for i, env := range envs {
		names[i] = env.Event
	}
	return names
}

func findEvent(t *testing.T, envs []domain.Envelope, event string) domain.Envelope {
	t.Helper()
	for _, env := range envs {
		if env.Event == event {
			return env
		}
	}
	t.Fatalf("event %s not found in %v", event, eventNames(envs))
	return domain.Envelope{}
}

func payload(t *testing.T, env domain.Envelope, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestJoinFlow(t *testing.T) {
	svc, h, _ := newTestService(t)
	ctx := context.Background()

	neo := hub.NewClient("c1", nil, config.WebSocketConfig{})
	h.Register(neo)
	svc.HandleConnect(neo)

	greeting := drain(t, neo)
	require.Len(t, greeting, 1)
	assert.Equal(t, domain.EventRoomList, greeting[0].Event)

	require.NoError(t, svc.HandleJoinRoom(ctx, neo, domain.JoinRoomPayload{RoomID: "zion", Username: "Neo"}))

	envs := drain(t, neo)
	var joined domain.JoinedRoomPayload
	payload(t, findEvent(t, envs, domain.EventJoinedRoom), &joined)
	assert.Equal(t, "zion", joined.RoomID)
	assert.Equal(t, 1, joined.UserCount)
	assert.True(t, joined.IsHost, "first member hosts the room")
	assert.False(t, joined.IsAdmin)

	var history []domain.Message
	payload(t, findEvent(t, envs, domain.EventMessageHistory), &history)
	assert.Empty(t, history, "fresh room has no scrollback")

	var rooms []domain.RoomSummary
	payload(t, findEvent(t, envs, domain.EventRoomList), &rooms)
	require.Len(t, rooms, 1)
	assert.Equal(t, domain.RoomSummary{ID: "zion", UserCount: 1}, rooms[0])
}

func TestSecondJoinerSeesArrivalAndHistory(t *testing.T) {
	svc, h, _ := newTestService(t)
	ctx := context.Background()

	neo := connect(t, svc, h, "c1")
	join(t, svc, neo, "Neo", "zion")
	require.NoError(t, svc.HandleSendMessage(ctx, neo, "follow the white rabbit"))
	drain(t, neo)

	trinity := connect(t, svc, h, "c2")
	join(t, svc, trinity, "Trinity", "zion")

	envs := drain(t, trinity)
	var joined domain.JoinedRoomPayload
	payload(t, findEvent(t, envs, domain.EventJoinedRoom), &joined)
	assert.Equal(t, 2, joined.UserCount)
	assert.False(t, joined.IsHost)

	var history []domain.Message
	payload(t, findEvent(t, envs, domain.EventMessageHistory), &history)
	require.Len(t, history, 2, "join notice and chat line")
	assert.Equal(t, domain.MessageSystem, history[0].Type)
	assert.Equal(t, "follow the white rabbit", history[1].Content)

	// The room hears about the arrival; the joiner does not.
	neoEnvs := drain(t, neo)
	var arrival domain.Message
	payload(t, findEvent(t, neoEnvs, domain.EventNewMessage), &arrival)
	assert.Equal(t, "Trinity has joined the room", arrival.Content)
	for _, env := range envs {
		if env.Event == domain.EventNewMessage {
			t.Fatal("joiner received its own arrival notice")
		}
	}
}

func TestConfiguredAdminFlag(t *testing.T) {
	svc, h, _ := newTestService(t)

	first := connect(t, svc, h, "c1")
	join(t, svc, first, "Neo", "zion")

	morpheus := connect(t, svc, h, "c2")
	join(t, svc, morpheus, "morpheus", "zion")

	var joined domain.JoinedRoomPayload
	payload(t, findEvent(t, drain(t, morpheus), domain.EventJoinedRoom), &joined)
	assert.True(t, joined.IsAdmin, "admin match is case-insensitive")
	assert.False(t, joined.IsHost)
}

func TestJoinValidation(t *testing.T) {
	svc, h, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload domain.JoinRoomPayload
		want    string
	}{
		{name: "short username", payload: domain.JoinRoomPayload{RoomID: "zion", Username: "N"}, want: "Username must be at least 2 characters"},
		{name: "whitespace username", payload: domain.JoinRoomPayload{RoomID: "zion", Username: "  x  "}, want: "Username must be at least 2 characters"},
		{name: "missing room", payload: domain.JoinRoomPayload{Username: "Neo"}, want: "Room name required"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := connect(t, svc, h, string(rune('a'+i)))
			require.NoError(t, svc.HandleJoinRoom(ctx, c, tt.payload))

			var text string
			payload(t, findEvent(t, drain(t, c), domain.EventError), &text)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	svc, h, _ := newTestService(t)

	neo := connect(t, svc, h, "c1")
	join(t, svc, neo, "Neo", "zion")

	imposter := connect(t, svc, h, "c2")
	join(t, svc, imposter, "neo", "zion")

	var text string
	payload(t, findEvent(t, drain(t, imposter), domain.EventError), &text)
	assert.Equal(t, "Username neo is already taken in this room", text)
	assert.Equal(t, 1, h.UserCount("zion"))
}

func TestRejoinSameSeatIsIdempotent(t *testing.T) {
	svc, h, _ := newTestService(t)

	neo := connect(t, svc, h, "c1")
	join(t, svc, neo, "Neo", "zion")
	drain(t, neo)

	// Reconnect confirmation resends the join without a new arrival notice.
	join(t, svc, neo, "Neo", "zion")

	envs := drain(t, neo)
	var joined domain.JoinedRoomPayload
	payload(t, findEvent(t, envs, domain.EventJoinedRoom), &joined)
	assert.Equal(t, 1, joined.UserCount)
	for _, env := range envs {
		assert.NotEqual(t, domain.EventNewMessage, env.Event)
	}
	assert.Equal(t, 1, h.UserCount("zion"))
}

func TestRoomHopAnnouncesDeparture(t *testing.T) {
	svc, h, _ := newTestService(t)

	neo := connect(t, svc, h, "c1")
	trinity := connect(t, svc, h, "c2")
	join(t, svc, neo, "Neo", "zion")
	join(t, svc, trinity, "Trinity", "zion")
	drain(t, neo)
	drain(t, trinity)

	join(t, svc, neo, "Neo", "matrix")

	var departure domain.Message
	payload(t, findEvent(t, drain(t, trinity), domain.EventNewMessage), &departure)
	assert.Equal(t, "Neo has left the room", departure.Content)
	assert.Equal(t, 1, h.UserCount("zion"))
	assert.Equal(t, 1, h.UserCount("matrix"))
}

func TestMessageBroadcastIncludesSender(t *testing.T) {
	svc, h, _ := newTestService(t)
	ctx := context.Background()

	neo := connect(t, svc, h, "c1")
	trinity := connect(t, svc, h, "c2")
	join(t, svc, neo, "Neo", "zion")
	join(t, svc, trinity, "Trinity", "zion")
	drain(t, neo)
	drain(t, trinity)

	require.NoError(t, svc.HandleSendMessage(ctx, neo, "wake up"))

	for _, c := range []*hub.Client{neo, trinity} {
		var msg domain.Message
		payload(t, findEvent(t, drain(t, c), domain.EventNewMessage), &msg)
		assert.Equal(t, domain.MessageUser, msg.Type)
		assert.Equal(t, "Neo", msg.Username)
		assert.Equal(t, "wake up", msg.Content)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestSendRequiresRoom(t *testing.T) {
	svc, h, _ := newTestService(t)

	c := connect(t, svc, h, "c1")
	require.NoError(t, svc.HandleSendMessage(context.Background(), c, "hello"))

	var text string
	payload(t, findEvent(t, drain(t, c), domain.EventError), &text)
	assert.Equal(t, "Not in a room", text)
}

func TestHistoryCapped(t *testing.T) {
	svc, h, _ := newTestService(t)
	ctx := context.Background()

	neo := connect(t, svc, h, "c1")
	join(t, svc, neo, "Neo", "zion")
	for i := 0; i < 10; i++ {
		require.NoError(t, svc.HandleSendMessage(ctx, neo, "line"))
	}
	drain(t, neo)

	trinity := connect(t, svc, h, "c2")
	join(t, svc, trinity, "Trinity", "zion")

	var history []domain.Message
	payload(t, findEvent(t, drain(t, trinity), domain.EventMessageHistory), &history)
	assert.Len(t, history, 5)
}

func TestTypingRelayedToOthersOnly(t *testing.T) {
	svc, h, _ := newTestService(t)
	ctx := context.Background()

	neo := connect(t, svc, h, "c1")
	trinity := connect(t, svc, h, "c2")
	join(t, svc, neo, "Neo", "zion")
	join(t, svc, trinity, "Trinity", "zion")
	drain(t, neo)
	drain(t, trinity)

	require.NoError(t, svc.HandleTyping(ctx, neo))
	require.NoError(t, svc.HandleStopTyping(ctx, neo))

	assert.Empty(t, drain(t, neo))

	envs := drain(t, trinity)
	require.Len(t, envs, 2)
	assert.Equal(t, domain.EventUserTyping, envs[0].Event)
	assert.Equal(t, domain.EventUserStoppedTyping, envs[1].Event)

	var p domain.UserTypingPayload
	payload(t, envs[0], &p)
	assert.Equal(t, "Neo", p.Username)
}

func TestPingAnsweredWithPong(t *testing.T) {
	svc, h, _ := newTestService(t)

	c := connect(t, svc, h, "c1")
	require.NoError(t, svc.HandlePing(context.Background(), c))

	envs := drain(t, c)
	require.Len(t, envs, 1)
	assert.Equal(t, domain.EventPong, envs[0].Event)
}

func TestDisconnectAnnouncesDeparture(t *testing.T) {
	svc, h, _ := newTestService(t)

	neo := connect(t, svc, h, "c1")
	trinity := connect(t, svc, h, "c2")
	join(t, svc, neo, "Neo", "zion")
	join(t, svc, trinity, "Trinity", "zion")
	drain(t, neo)
	drain(t, trinity)

	svc.HandleDisconnect(context.Background(), neo)

	envs := drain(t, trinity)
	var departure domain.Message
	payload(t, findEvent(t, envs, domain.EventNewMessage), &departure)
	assert.Equal(t, "Neo has left the room", departure.Content)

	var rooms []domain.RoomSummary
	payload(t, findEvent(t, envs, domain.EventRoomList), &rooms)
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, rooms[0].UserCount)
}
