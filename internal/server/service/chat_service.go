package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dhkiller350/cyber-chat/internal/domain"
	"github.com/dhkiller350/cyber-chat/internal/server/config"
	"github.com/dhkiller350/cyber-chat/internal/server/hub"
	"github.com/dhkiller350/cyber-chat/internal/server/store"
	"github.com/dhkiller350/cyber-chat/pkg/log"
)

type chatService struct {
	hub      *hub.Hub
	store    store.ModerationStore
	cfg      config.ModerationConfig
	shutdown chan string

	mu      sync.Mutex
	history map[string][]domain.Message // roomID -> newest-last, capped
}

func NewChatService(h *hub.Hub, st store.ModerationStore, cfg config.ModerationConfig) ChatService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.KickCooldown <= 0 {
		cfg.KickCooldown = 2 * time.Minute
	}
	if cfg.DefaultMute <= 0 {
		cfg.DefaultMute = time.Minute
	}
	return &chatService{
		hub:      h,
		store:    st,
		cfg:      cfg,
		shutdown: make(chan string, 1),
		history:  make(map[string][]domain.Message),
	}
}

func (s *chatService) ShutdownRequested() <-chan string {
	return s.shutdown
}

func (s *chatService) HandleConnect(c *hub.Client) {
	c.SendEvent(domain.EventRoomList, s.hub.RoomSummaries())
}

func (s *chatService) HandleJoinRoom(ctx context.Context, c *hub.Client, p domain.JoinRoomPayload) error {
	username := strings.TrimSpace(p.Username)
	room := strings.TrimSpace(p.RoomID)

	if utf8.RuneCountInString(username) < 2 {
		return c.SendEvent(domain.EventError, "Username must be at least 2 characters")
	}
	if room == "" {
		return c.SendEvent(domain.EventError, "Room name required")
	}

	if reason, banned, err := s.store.BanReason(ctx, username); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUsername, username).Msg("ban lookup failed")
		return c.SendEvent(domain.EventError, "Server error, try again")
	} else if banned {
		if reason == "" {
			reason = "You are banned from this server"
		}
		return c.SendEvent(domain.EventBanned, domain.BannedPayload{Reason: reason})
	}

	if left, err := s.store.CooldownRemaining(ctx, username); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUsername, username).Msg("cooldown lookup failed")
		return c.SendEvent(domain.EventError, "Server error, try again")
	} else if left > 0 {
		return c.SendEvent(domain.EventKicked, domain.KickedPayload{
			Type:     domain.KickCooldown,
			Reason:   fmt.Sprintf("You were kicked recently. Try again in %d seconds.", int(left.Seconds()+1)),
			Cooldown: left.Milliseconds(),
		})
	}

	// Reconnect confirmation: same client, same seat.
	if c.Room() == room && c.Username() == username {
		return s.confirmJoin(c, room)
	}

	if taken := s.findMember(room, username); taken != nil && taken.ID != c.ID {
		return c.SendEvent(domain.EventError, fmt.Sprintf("Username %s is already taken in this room", username))
	}

	if prev := c.Room(); prev != "" {
		s.departRoom(c, prev, fmt.Sprintf("%s has left the room", c.Username()))
	}

	c.SetIdentity(username, s.isConfiguredAdmin(username))
	s.hub.JoinRoom(c, room)

	if err := s.confirmJoin(c, room); err != nil {
		return err
	}

	notice := domain.SystemMessage(fmt.Sprintf("%s has joined the room", username))
	s.appendHistory(room, notice)
	s.hub.BroadcastToRoom(room, domain.EventNewMessage, notice, c.ID)
	s.hub.BroadcastAll(domain.EventRoomList, s.hub.RoomSummaries())
	return nil
}

// confirmJoin sends joinedRoom and the history snapshot taken before
// the join notice, so a member never sees their own arrival twice.
func (s *chatService) confirmJoin(c *hub.Client, room string) error {
	if err := c.SendEvent(domain.EventJoinedRoom, domain.JoinedRoomPayload{
		RoomID:    room,
		UserCount: s.hub.UserCount(room),
		IsAdmin:   c.IsAdmin(),
		IsHost:    c.IsHost(),
	}); err != nil {
		return err
	}
	return c.SendEvent(domain.EventMessageHistory, s.historySnapshot(room))
}

func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, content string) error {
	room := c.Room()
	if room == "" {
		return c.SendEvent(domain.EventError, "Not in a room")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if strings.HasPrefix(content, "/") {
		return s.handleCommand(ctx, c, room, content)
	}

	if left, err := s.store.MuteRemaining(ctx, c.Username()); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUsername, c.Username()).Msg("mute lookup failed")
	} else if left > 0 {
		return c.SendEvent(domain.EventError, fmt.Sprintf("You are muted for another %d seconds", int(left.Seconds()+1)))
	}

	msg := domain.Message{
		Type:      domain.MessageUser,
		Username:  c.Username(),
		Content:   content,
		Timestamp: time.Now(),
	}
	s.appendHistory(room, msg)
	// Sender included: the client counts credits off its own echoed line.
	s.hub.BroadcastToRoom(room, domain.EventNewMessage, msg, "")
	return nil
}

func (s *chatService) HandleTyping(_ context.Context, c *hub.Client) error {
	room := c.Room()
	if room == "" {
		return nil
	}
	s.hub.BroadcastToRoom(room, domain.EventUserTyping, domain.UserTypingPayload{Username: c.Username()}, c.ID)
	return nil
}

func (s *chatService) HandleStopTyping(_ context.Context, c *hub.Client) error {
	room := c.Room()
	if room == "" {
		return nil
	}
	s.hub.BroadcastToRoom(room, domain.EventUserStoppedTyping, domain.UserTypingPayload{Username: c.Username()}, c.ID)
	return nil
}

func (s *chatService) HandlePing(_ context.Context, c *hub.Client) error {
	return c.SendEvent(domain.EventPong, nil)
}

func (s *chatService) HandleDisconnect(_ context.Context, c *hub.Client) {
	username := c.Username()
	room := s.hub.Unregister(c)
	if room == "" || username == "" {
		return
	}
	notice := domain.SystemMessage(fmt.Sprintf("%s has left the room", username))
	s.appendHistory(room, notice)
	s.hub.BroadcastToRoom(room, domain.EventNewMessage, notice, "")
	s.hub.BroadcastAll(domain.EventRoomList, s.hub.RoomSummaries())
}

// departRoom removes a still-connected client from its room, used when
// it hops to another room in one connection.
func (s *chatService) departRoom(c *hub.Client, room, noticeText string) {
	s.hub.LeaveRoom(c)
	notice := domain.SystemMessage(noticeText)
	s.appendHistory(room, notice)
	s.hub.BroadcastToRoom(room, domain.EventNewMessage, notice, "")
}

func (s *chatService) handleCommand(ctx context.Context, c *hub.Client, room, content string) error {
	fields := strings.Fields(content)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/kick":
		return s.requireAdmin(c, cmd, func() error { return s.cmdKick(ctx, c, room, args) })
	case "/ban":
		return s.requireAdmin(c, cmd, func() error { return s.cmdBan(ctx, c, room, args) })
	case "/unban":
		return s.requireAdmin(c, cmd, func() error { return s.cmdUnban(ctx, c, args) })
	case "/banlist":
		return s.requireAdmin(c, cmd, func() error { return s.cmdBanlist(ctx, c) })
	case "/mute":
		return s.requireAdmin(c, cmd, func() error { return s.cmdMute(ctx, c, args) })
	case "/users":
		return s.requireAdmin(c, cmd, func() error { return s.cmdUsers(c, room) })
	case "/shutdown":
		if !c.IsHost() {
			return s.respond(c, domain.ResponseError, "Only the room host can use /shutdown")
		}
		return s.cmdShutdown(c)
	default:
		return s.respond(c, domain.ResponseError, fmt.Sprintf("Unknown command: %s", cmd))
	}
}

func (s *chatService) requireAdmin(c *hub.Client, cmd string, run func() error) error {
	if !c.IsAdmin() && !c.IsHost() {
		return s.respond(c, domain.ResponseError, fmt.Sprintf("You do not have permission to use %s", cmd))
	}
	return run()
}

func (s *chatService) cmdKick(ctx context.Context, c *hub.Client, room string, args []string) error {
	target, err := s.resolveTarget(c, room, args, "/kick")
	if target == nil {
		return err
	}

	name := target.Username()
	if err := s.store.SetCooldown(ctx, name, s.cfg.KickCooldown); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUsername, name).Msg("cooldown write failed")
	}

	target.SendEvent(domain.EventKicked, domain.KickedPayload{
		Type:     domain.KickServer,
		Reason:   fmt.Sprintf("Kicked by %s", c.Username()),
		Cooldown: s.cfg.KickCooldown.Milliseconds(),
	})
	s.departRoom(target, room, fmt.Sprintf("%s was kicked from the room", name))
	s.hub.BroadcastAll(domain.EventRoomList, s.hub.RoomSummaries())

	log.Ctx(ctx).Info().Str(log.FieldUsername, name).Str("by", c.Username()).Str(log.FieldRoom, room).Msg("user kicked")
	return s.respond(c, domain.ResponseSuccess, fmt.Sprintf("%s has been kicked", name))
}

func (s *chatService) cmdBan(ctx context.Context, c *hub.Client, room string, args []string) error {
	if len(args) == 0 {
		return s.respond(c, domain.ResponseError, "Usage: /ban <username>")
	}
	name := args[0]
	if strings.EqualFold(name, c.Username()) {
		return s.respond(c, domain.ResponseError, "You cannot ban yourself")
	}

	// Canonicalize to the online member's casing before persisting.
	target := s.findMember(room, name)
	if target != nil {
		name = target.Username()
	}

	if err := s.store.Ban(ctx, name, fmt.Sprintf("Banned by %s", c.Username())); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUsername, name).Msg("ban write failed")
		return s.respond(c, domain.ResponseError, "Server error, try again")
	}

	// Online targets are ejected immediately; offline names stay barred.
	if target != nil {
		target.SendEvent(domain.EventBanned, domain.BannedPayload{Reason: fmt.Sprintf("Banned by %s", c.Username())})
		s.departRoom(target, room, fmt.Sprintf("%s was banned from the server", name))
		s.hub.BroadcastAll(domain.EventRoomList, s.hub.RoomSummaries())
	}

	log.Ctx(ctx).Info().Str(log.FieldUsername, name).Str("by", c.Username()).Msg("user banned")
	return s.respond(c, domain.ResponseSuccess, fmt.Sprintf("%s has been banned", name))
}

func (s *chatService) cmdUnban(ctx context.Context, c *hub.Client, args []string) error {
	if len(args) == 0 {
		return s.respond(c, domain.ResponseError, "Usage: /unban <username>")
	}
	name := args[0]

	removed, err := s.store.Unban(ctx, name)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUsername, name).Msg("unban failed")
		return s.respond(c, domain.ResponseError, "Server error, try again")
	}
	if !removed {
		return s.respond(c, domain.ResponseError, fmt.Sprintf("%s is not banned", name))
	}
	return s.respond(c, domain.ResponseSuccess, fmt.Sprintf("%s has been unbanned", name))
}

func (s *chatService) cmdBanlist(ctx context.Context, c *hub.Client) error {
	names, err := s.store.Banned(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("banlist failed")
		return s.respond(c, domain.ResponseError, "Server error, try again")
	}
	if len(names) == 0 {
		return s.respond(c, domain.ResponseInfo, "No banned users")
	}
	return s.respond(c, domain.ResponseInfo, "Banned users: "+strings.Join(names, ", "))
}

func (s *chatService) cmdMute(ctx context.Context, c *hub.Client, args []string) error {
	if len(args) == 0 {
		return s.respond(c, domain.ResponseError, "Usage: /mute <username> [seconds]")
	}
	name := args[0]
	if strings.EqualFold(name, c.Username()) {
		return s.respond(c, domain.ResponseError, "You cannot mute yourself")
	}

	d := s.cfg.DefaultMute
	if len(args) > 1 {
		secs, err := strconv.Atoi(args[1])
		if err != nil || secs <= 0 {
			return s.respond(c, domain.ResponseError, "Usage: /mute <username> [seconds]")
		}
		d = time.Duration(secs) * time.Second
	}

	if err := s.store.Mute(ctx, name, d); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUsername, name).Msg("mute write failed")
		return s.respond(c, domain.ResponseError, "Server error, try again")
	}
	return s.respond(c, domain.ResponseSuccess, fmt.Sprintf("%s has been muted for %d seconds", name, int(d.Seconds())))
}

func (s *chatService) cmdUsers(c *hub.Client, room string) error {
	members := s.hub.MembersOf(room)
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Username())
	}
	return s.respond(c, domain.ResponseInfo, fmt.Sprintf("Users in %s: %s", room, strings.Join(names, ", ")))
}

func (s *chatService) cmdShutdown(c *hub.Client) error {
	s.hub.BroadcastAll(domain.EventCommandResponse, domain.CommandResponsePayload{
		Type:    domain.ResponseInfo,
		Content: "Server is shutting down",
	})
	select {
	case s.shutdown <- c.Username():
	default:
	}
	return nil
}

// resolveTarget validates a <username> argument against the actor's
// room. A nil target with nil error means the response already went out.
func (s *chatService) resolveTarget(c *hub.Client, room string, args []string, cmd string) (*hub.Client, error) {
	if len(args) == 0 {
		return nil, s.respond(c, domain.ResponseError, fmt.Sprintf("Usage: %s <username>", cmd))
	}
	name := args[0]
	target := s.findMember(room, name)
	if target == nil {
		return nil, s.respond(c, domain.ResponseError, fmt.Sprintf("User %s not found in this room", name))
	}
	if target.ID == c.ID {
		return nil, s.respond(c, domain.ResponseError, "You cannot kick yourself")
	}
	return target, nil
}

func (s *chatService) respond(c *hub.Client, kind, content string) error {
	return c.SendEvent(domain.EventCommandResponse, domain.CommandResponsePayload{Type: kind, Content: content})
}

// findMember matches case-insensitively so /kick neo lands on NEO.
func (s *chatService) findMember(room, username string) *hub.Client {
	for _, m := range s.hub.MembersOf(room) {
		if strings.EqualFold(m.Username(), username) {
			return m
		}
	}
	return nil
}

func (s *chatService) isConfiguredAdmin(username string) bool {
	for _, admin := range s.cfg.Admins {
		if strings.EqualFold(admin, username) {
			return true
		}
	}
	return false
}

func (s *chatService) appendHistory(room string, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := append(s.history[room], msg)
	if overflow := len(lines) - s.cfg.HistoryLimit; overflow > 0 {
		lines = lines[overflow:]
	}
	s.history[room] = lines
}

func (s *chatService) historySnapshot(room string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.history[room]...)
}
