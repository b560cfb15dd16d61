package main

import (
	"os"
	"path/filepath"
	"testing"

	"cipherbot/apps/backend/internal/store"
)

func TestLoadIntentsDefaultsMatchMigrateSeed(t *testing.T) {
	intents, err := loadIntents("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	defaults := store.DefaultIntents()
	if len(intents) != len(defaults) {
		t.Fatalf("expected %d intents, got %d", len(defaults), len(intents))
	}
	for i, item := range defaults {
		if intents[i].Name != item.Name || intents[i].Pattern != item.Pattern || intents[i].Response != item.Response {
			t.Fatalf("intent %d differs: got %+v want %+v", i, intents[i], item)
		}
	}
}

func TestLoadIntentsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intents.json")
	if err := os.WriteFile(path, []byte(`[{"name":"weather","pattern":"weather|rain","response":"Check the sky."}]`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	intents, err := loadIntents(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if len(intents) != 1 || intents[0].Name != "weather" {
		t.Fatalf("unexpected intents: %+v", intents)
	}

	if err := os.WriteFile(path, []byte(`[{"name":"","response":"x"}]`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := loadIntents(path); err == nil {
		t.Fatalf("expected nameless intent to be rejected")
	}
}
