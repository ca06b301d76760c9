package db

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Client is the storage backend boundary. Implementations must make every
// upsert atomic per key; IncrementWarns in particular must be a single
// compare-free atomic step so two racing warns cannot read the same stale
// count.
type Client interface {
	Close() error

	UpsertGroup(ctx context.Context, group *Group) error
	GetGroup(ctx context.Context, chatID int64) (*Group, error)
	SetEmperor(ctx context.Context, chatID, userID int64) error
	UpdateGroupConfig(ctx context.Context, group *Group) error

	GetRole(ctx context.Context, chatID, userID int64) (string, error)
	SetRole(ctx context.Context, chatID, userID int64, role string) error
	DeleteRole(ctx context.Context, chatID, userID int64) error

	GetWarn(ctx context.Context, chatID, userID int64) (*Warn, error)
	IncrementWarns(ctx context.Context, chatID, userID int64, reason string) (int, error)
	ResetWarns(ctx context.Context, chatID, userID int64) error

	SetMute(ctx context.Context, chatID, userID int64, expiresAt time.Time) error
	GetMute(ctx context.Context, chatID, userID int64) (*Mute, error)
	DeleteMute(ctx context.Context, chatID, userID int64) error

	AppendAudit(ctx context.Context, entry *AuditEntry) error
	AddReferral(ctx context.Context, refUserID, newUserID int64) error
}
