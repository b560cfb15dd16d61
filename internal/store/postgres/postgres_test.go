package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherbot/apps/backend/internal/store"
)

func newIntegrationDB(t *testing.T) store.Driver {
	t.Helper()
	databaseURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("integration tests skipped: TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver, err := NewDB(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	require.NoError(t, driver.Migrate(ctx))
	pool := driver.(*DB).pool
	_, err = pool.Exec(ctx, `TRUNCATE TABLE intents, conversations RESTART IDENTITY`)
	require.NoError(t, err)
	return driver
}

func TestNewDBRejectsEmptyURL(t *testing.T) {
	_, err := NewDB(context.Background(), "  ")
	assert.Error(t, err)
}

func TestPostgresIntentRoundTrip(t *testing.T) {
	driver := newIntegrationDB(t)
	ctx := context.Background()

	require.NoError(t, driver.ValidateSchema(ctx))
	for _, intent := range store.DefaultIntents() {
		_, err := driver.UpsertIntent(ctx, intent)
		require.NoError(t, err)
	}

	intents, err := driver.ListIntents(ctx)
	require.NoError(t, err)
	require.Len(t, intents, len(store.DefaultIntents()))
	assert.Equal(t, "greeting", intents[0].Name)

	deleted, err := driver.DeleteIntents(ctx, []string{"greeting"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestPostgresConversationInsert(t *testing.T) {
	driver := newIntegrationDB(t)
	ctx := context.Background()

	created, err := driver.CreateConversation(ctx, &store.Conversation{UserID: 3, Message: "hello", Response: "Hi"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	at := time.Date(2025, 11, 3, 8, 30, 15, 0, time.UTC)
	stamped, err := driver.CreateConversation(ctx, &store.Conversation{UserID: 3, Message: "again", Response: "Hi", CreatedAt: at})
	require.NoError(t, err)
	assert.True(t, at.Equal(stamped.CreatedAt), "got %s", stamped.CreatedAt)

	count, err := driver.CountConversations(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
