package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"

	"cipherbot/apps/backend/internal/store"
)

type seedIntent struct {
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Response string `json:"response"`
}

func main() {
	var (
		mode     string
		file     string
		database string
	)

	flag.StringVar(&mode, "mode", "seed", "seed or cleanup")
	flag.StringVar(&file, "file", "", "JSON file with [{name, pattern, response}] (default: built-in set)")
	flag.StringVar(&database, "db", "", "DATABASE_URL override")
	flag.Parse()

	intents, err := loadIntents(file)
	if err != nil {
		log.Fatalf("load intents: %v", err)
	}

	ctx := context.Background()
	dbURL := strings.TrimSpace(database)
	if dbURL == "" {
		dbURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dbURL == "" {
		dbURL = "postgres://postgres@localhost:5432/chatbot_db"
	}

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer conn.Close(ctx)

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "cleanup", "delete", "remove":
		names := make([]string, 0, len(intents))
		for _, item := range intents {
			names = append(names, item.Name)
		}
		tag, err := conn.Exec(ctx, `DELETE FROM intents WHERE intent_name = ANY($1)`, names)
		if err != nil {
			log.Fatalf("cleanup: %v", err)
		}
		fmt.Printf("cleanup complete deleted=%d\n", tag.RowsAffected())
		return
	case "seed":
	default:
		log.Fatalf("unsupported mode %q (use seed or cleanup)", mode)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, item := range intents {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO intents (intent_name, pattern, response)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (intent_name) DO UPDATE
			 SET pattern = EXCLUDED.pattern, response = EXCLUDED.response`,
			item.Name,
			item.Pattern,
			item.Response,
		); err != nil {
			log.Fatalf("upsert intent %q: %v", item.Name, err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit: %v", err)
	}
	fmt.Printf("seed complete upserted=%d\n", inserted)
}

func loadIntents(path string) ([]seedIntent, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultSeedIntents(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var intents []seedIntent
	if err := json.Unmarshal(raw, &intents); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for index, item := range intents {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("intent #%d has no name", index+1)
		}
		if strings.TrimSpace(item.Response) == "" {
			return nil, fmt.Errorf("intent %q has no response", item.Name)
		}
	}
	if len(intents) == 0 {
		return nil, errors.New("no intents in file")
	}
	return intents, nil
}

// defaultSeedIntents is the set written by `migrate --seed`.
func defaultSeedIntents() []seedIntent {
	defaults := store.DefaultIntents()
	intents := make([]seedIntent, 0, len(defaults))
	for _, item := range defaults {
		intents = append(intents, seedIntent{Name: item.Name, Pattern: item.Pattern, Response: item.Response})
	}
	return intents
}
