// Package store defines the persisted records and the driver contract shared
// by the postgres and sqlite backends.
package store

import (
	"context"
	"time"
)

// Intent is a keyword-trigger rule. Pattern is a pipe-delimited keyword list.
type Intent struct {
	ID       int64
	Name     string
	Pattern  string
	Response string
}

// Conversation is one persisted exchange. Rows are append-only.
type Conversation struct {
	ID        int64
	UserID    int64
	Message   string
	Response  string
	CreatedAt time.Time
}

type FindConversation struct {
	UserID *int64
}

// Driver is implemented by every database backend.
type Driver interface {
	// ListIntents returns all intents in table order.
	ListIntents(ctx context.Context) ([]*Intent, error)
	UpsertIntent(ctx context.Context, intent *Intent) (*Intent, error)
	DeleteIntents(ctx context.Context, names []string) (int64, error)

	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	CountConversations(ctx context.Context, find *FindConversation) (int64, error)

	// Migrate creates the intents and conversations tables if missing.
	Migrate(ctx context.Context) error
	// ValidateSchema reports an error when a required table is absent.
	ValidateSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// RequiredTables lists the tables the application reads or writes.
var RequiredTables = []string{"intents", "conversations"}
