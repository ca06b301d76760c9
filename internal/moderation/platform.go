package moderation

import (
	"context"
	"time"
)

// Platform is the messaging-platform capability surface the engine drives.
// Every call may fail with a platform error which the engine surfaces to
// the caller, never as a crash.
type Platform interface {
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	UnrestrictMember(ctx context.Context, chatID, userID int64) error
	BanMember(ctx context.Context, chatID, userID int64) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}
