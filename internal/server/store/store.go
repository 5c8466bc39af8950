// Package store persists moderation state: permanent bans, rejoin
// cooldowns after a kick, and temporary mutes. Bans survive forever;
// cooldowns and mutes expire on their own.
//
// Usernames match case-insensitively throughout, so a restriction on
// "Neo" also holds for "neo" and "NEO". Banned reports the casing the
// name carried when it was banned.
package store

import (
	"context"
	"time"
)

type ModerationStore interface {
	// Ban permanently bars a username. Rebanning overwrites the reason.
	Ban(ctx context.Context, username, reason string) error
	// Unban lifts a ban and reports whether one existed.
	Unban(ctx context.Context, username string) (bool, error)
	// BanReason returns the recorded reason when the username is banned.
	BanReason(ctx context.Context, username string) (string, bool, error)
	// Banned lists every banned username, sorted.
	Banned(ctx context.Context) ([]string, error)

	// SetCooldown bars the username from rejoining for the duration.
	SetCooldown(ctx context.Context, username string, d time.Duration) error
	// CooldownRemaining returns how long the bar still holds, zero when
	// none is active.
	CooldownRemaining(ctx context.Context, username string) (time.Duration, error)

	// Mute silences the username for the duration.
	Mute(ctx context.Context, username string, d time.Duration) error
	// MuteRemaining returns how long the mute still holds, zero when
	// none is active.
	MuteRemaining(ctx context.Context, username string) (time.Duration, error)

	Close() error
}
