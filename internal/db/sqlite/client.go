package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"

	"github.com/iamwavecut/tool"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/shirkavand/imperator/internal/db"
	"github.com/shirkavand/imperator/resources"
)

type sqliteClient struct {
	db    *sqlx.DB
	mutex sync.RWMutex
}

func NewSQLiteClient(ctx context.Context, workDir, dbName string) (*sqliteClient, error) {
	dbx, err := sqlx.Open("sqlite", filepath.Join(workDir, dbName))
	if err != nil {
		return nil, err
	}
	dbx.SetMaxOpenConns(42)

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.ExecContext(ctx, dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		log.Infof("applied %d migrations", n)
	}

	return &sqliteClient{db: dbx}, nil
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}

func (c *sqliteClient) UpsertGroup(ctx context.Context, group *db.Group) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO groups (id, title, emperor_id, rules, language, welcome_enabled, antispam_enabled, captcha_enabled, force_join_enabled, force_join_channel)
		VALUES (:id, :title, :emperor_id, :rules, :language, :welcome_enabled, :antispam_enabled, :captcha_enabled, :force_join_enabled, :force_join_channel)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = CURRENT_TIMESTAMP
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, group))
}

func (c *sqliteClient) GetGroup(ctx context.Context, chatID int64) (*db.Group, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var group db.Group
	err := c.db.GetContext(ctx, &group, `
		SELECT id, title, emperor_id, rules, language, welcome_enabled, antispam_enabled, captcha_enabled, force_join_enabled, force_join_channel, created_at, updated_at
		FROM groups WHERE id = ?
	`, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// SetEmperor only fires when no emperor is currently recorded.
func (c *sqliteClient) SetEmperor(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		UPDATE groups SET emperor_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND emperor_id = 0
	`, userID, chatID)
	return err
}

func (c *sqliteClient) UpdateGroupConfig(ctx context.Context, group *db.Group) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		UPDATE groups SET
			title = :title,
			rules = :rules,
			language = :language,
			welcome_enabled = :welcome_enabled,
			antispam_enabled = :antispam_enabled,
			captcha_enabled = :captcha_enabled,
			force_join_enabled = :force_join_enabled,
			force_join_channel = :force_join_channel,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = :id
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, group))
}

func (c *sqliteClient) GetRole(ctx context.Context, chatID, userID int64) (string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var role string
	err := c.db.GetContext(ctx, &role, `SELECT role FROM roles WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", db.ErrNotFound
		}
		return "", err
	}
	return role, nil
}

func (c *sqliteClient) SetRole(ctx context.Context, chatID, userID int64, role string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO roles (chat_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET role = excluded.role
	`
	_, err := c.db.ExecContext(ctx, query, chatID, userID, role)
	return err
}

func (c *sqliteClient) DeleteRole(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM roles WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return err
}
