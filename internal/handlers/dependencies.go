package handlers

import (
	"context"
	"time"
)

// platformClient is the slice of the platform surface the handlers drive
// themselves; everything command-shaped goes through the moderation engine
// instead.
type platformClient interface {
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	UnrestrictMember(ctx context.Context, chatID, userID int64) error
	BanMember(ctx context.Context, chatID, userID int64) error
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	ChannelMember(ctx context.Context, channel string, userID int64) (bool, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}
