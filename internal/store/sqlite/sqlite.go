// Package sqlite is the development and test backend. It trades concurrency
// for zero setup: the pool is pinned to a single connection.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"cipherbot/apps/backend/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS intents (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	intent_name TEXT NOT NULL UNIQUE,
	pattern     TEXT,
	response    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS conversations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	message    TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS conversations_user_id_idx ON conversations (user_id);
`

type DB struct {
	db *sql.DB
}

// NewDB opens (creating if needed) the database file at path.
func NewDB(path string) (store.Driver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", path)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return &DB{db: sqlDB}, nil
}

func (d *DB) ListIntents(ctx context.Context) ([]*store.Intent, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, intent_name, COALESCE(pattern, ''), response FROM intents ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query intents")
	}
	defer rows.Close()

	list := make([]*store.Intent, 0)
	for rows.Next() {
		intent := &store.Intent{}
		if err := rows.Scan(&intent.ID, &intent.Name, &intent.Pattern, &intent.Response); err != nil {
			return nil, errors.Wrap(err, "failed to scan intent")
		}
		list = append(list, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate intents")
	}
	return list, nil
}

func (d *DB) UpsertIntent(ctx context.Context, intent *store.Intent) (*store.Intent, error) {
	if intent == nil || strings.TrimSpace(intent.Name) == "" {
		return nil, errors.New("intent name is required")
	}
	err := d.db.QueryRowContext(
		ctx,
		`INSERT INTO intents (intent_name, pattern, response)
		 VALUES (?, ?, ?)
		 ON CONFLICT (intent_name) DO UPDATE
		 SET pattern = excluded.pattern, response = excluded.response
		 RETURNING id`,
		intent.Name,
		intent.Pattern,
		intent.Response,
	).Scan(&intent.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upsert intent %q", intent.Name)
	}
	return intent, nil
}

func (d *DB) DeleteIntents(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(names))
	for _, name := range names {
		args = append(args, name)
	}
	result, err := d.db.ExecContext(
		ctx,
		`DELETE FROM intents WHERE intent_name IN (`+placeholders(len(names))+`)`,
		args...,
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete intents")
	}
	return result.RowsAffected()
}

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	if create == nil {
		return nil, errors.New("conversation is nil")
	}
	createdAt := create.CreatedAt.UTC()
	if create.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	err := d.db.QueryRowContext(
		ctx,
		`INSERT INTO conversations (user_id, message, response, created_ts)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`,
		create.UserID,
		create.Message,
		create.Response,
		createdAt.Unix(),
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert conversation")
	}
	create.CreatedAt = time.Unix(createdAt.Unix(), 0).UTC()
	return create, nil
}

func (d *DB) CountConversations(ctx context.Context, find *store.FindConversation) (int64, error) {
	query := `SELECT COUNT(*) FROM conversations`
	args := []any{}
	if find != nil && find.UserID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *find.UserID)
	}
	var count int64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count conversations")
	}
	return count, nil
}

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

func (d *DB) ValidateSchema(ctx context.Context) error {
	for _, table := range store.RequiredTables {
		var count int
		err := d.db.QueryRowContext(
			ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
			table,
		).Scan(&count)
		if err != nil {
			return errors.Wrapf(err, "failed checking schema for %s", table)
		}
		if count == 0 {
			return errors.Errorf("required table %s is missing; run `migrate`", table)
		}
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = "?"
	}
	return strings.Join(list, ", ")
}
