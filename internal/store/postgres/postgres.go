package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"cipherbot/apps/backend/internal/db"
	"cipherbot/apps/backend/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS intents (
	id          BIGSERIAL PRIMARY KEY,
	intent_name TEXT NOT NULL UNIQUE,
	pattern     TEXT,
	response    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS conversations (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	message    TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS conversations_user_id_idx ON conversations (user_id);
`

type DB struct {
	pool *pgxpool.Pool
}

// NewDB connects to PostgreSQL using the given URL or DSN.
func NewDB(ctx context.Context, databaseURL string) (store.Driver, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database url is empty")
	}
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect postgres")
	}
	return &DB{pool: pool}, nil
}

// NewFromPool wraps an existing pool. The driver takes ownership of it.
func NewFromPool(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (d *DB) ListIntents(ctx context.Context) ([]*store.Intent, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, intent_name, COALESCE(pattern, ''), response FROM intents ORDER BY id`)
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
	err := d.pool.QueryRow(
		ctx,
		`INSERT INTO intents (intent_name, pattern, response)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (intent_name) DO UPDATE
		 SET pattern = EXCLUDED.pattern, response = EXCLUDED.response
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
	tag, err := d.pool.Exec(ctx, `DELETE FROM intents WHERE intent_name = ANY($1)`, names)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete intents")
	}
	return tag.RowsAffected(), nil
}

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	if create == nil {
		return nil, errors.New("conversation is nil")
	}
	createdAt := create.CreatedAt.UTC()
	if create.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	err := d.pool.QueryRow(
		ctx,
		`INSERT INTO conversations (user_id, message, response, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		create.UserID,
		create.Message,
		create.Response,
		createdAt,
	).Scan(&create.ID, &create.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert conversation")
	}
	return create, nil
}

func (d *DB) CountConversations(ctx context.Context, find *store.FindConversation) (int64, error) {
	query := `SELECT COUNT(*) FROM conversations`
	args := []any{}
	if find != nil && find.UserID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *find.UserID)
	}
	var count int64
	if err := d.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count conversations")
	}
	return count, nil
}

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

func (d *DB) ValidateSchema(ctx context.Context) error {
	for _, table := range store.RequiredTables {
		ok, err := d.tableExists(ctx, table)
		if err != nil {
			return errors.Wrapf(err, "failed checking schema for %s", table)
		}
		if !ok {
			return errors.Errorf("required table %s is missing; run `migrate`", table)
		}
	}
	return nil
}

func (d *DB) tableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.tables
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		 )`,
		table,
	).Scan(&exists)
	return exists, err
}

func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}
