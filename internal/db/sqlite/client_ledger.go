package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shirkavand/imperator/internal/db"
)

func (c *sqliteClient) GetWarn(ctx context.Context, chatID, userID int64) (*db.Warn, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var warn db.Warn
	err := c.db.GetContext(ctx, &warn, `
		SELECT chat_id, user_id, count, last_reason FROM warns WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &warn, nil
}

// IncrementWarns bumps the counter in one statement and returns the new
// count, so concurrent warns never observe the same stale value.
func (c *sqliteClient) IncrementWarns(ctx context.Context, chatID, userID int64, reason string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var count int
	err := c.db.GetContext(ctx, &count, `
		INSERT INTO warns (chat_id, user_id, count, last_reason) VALUES (?, ?, 1, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			count = count + 1,
			last_reason = excluded.last_reason
		RETURNING count
	`, chatID, userID, reason)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (c *sqliteClient) ResetWarns(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM warns WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return err
}

func (c *sqliteClient) SetMute(ctx context.Context, chatID, userID int64, expiresAt time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO mutes (chat_id, user_id, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET expires_at = excluded.expires_at
	`
	_, err := c.db.ExecContext(ctx, query, chatID, userID, expiresAt)
	return err
}

func (c *sqliteClient) GetMute(ctx context.Context, chatID, userID int64) (*db.Mute, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var mute db.Mute
	err := c.db.GetContext(ctx, &mute, `
		SELECT chat_id, user_id, expires_at FROM mutes WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &mute, nil
}

func (c *sqliteClient) DeleteMute(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM mutes WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return err
}

func (c *sqliteClient) AppendAudit(ctx context.Context, entry *db.AuditEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ts := entry.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO audit (chat_id, actor_id, action, target_id, reason, ts) VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ChatID, entry.ActorID, entry.Action, entry.TargetID, entry.Reason, ts)
	return err
}

func (c *sqliteClient) AddReferral(ctx context.Context, refUserID, newUserID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `INSERT INTO referrals (ref_user_id, new_user_id) VALUES (?, ?)`, refUserID, newUserID)
	return err
}
