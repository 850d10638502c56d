// Command import backfills the code store from a JSON export of an older
// database. Discovery timestamps are preserved from the export; duplicates
// are skipped through the store's normal uniqueness contract.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/codes"
	"github.com/shiftwatch/shiftwatch/internal/config"
	"github.com/shiftwatch/shiftwatch/internal/database"
	"github.com/shiftwatch/shiftwatch/internal/logging"
	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/repository"
)

// exportRecord is one row of the legacy export file.
type exportRecord struct {
	Code         string    `json:"code"`
	RewardType   string    `json:"reward_type"`
	Source       string    `json:"source"`
	Context      string    `json:"context"`
	DiscoveredAt time.Time `json:"discovered_at"`
	IsActive     *bool     `json:"is_active"`
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <export.json>\n", os.Args[0])
		os.Exit(2)
	}
	path := os.Args[1]

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.App.LogLevel, cfg.App.LogFormat, cfg.App.IsDevelopment())

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to read export file")
	}
	var exported []exportRecord
	if err := json.Unmarshal(data, &exported); err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to parse export file")
	}

	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store := repository.NewCodeStore(db.Postgres)

	seen := make(map[string]struct{}, len(exported))
	records := make([]*model.CodeRecord, 0, len(exported))
	skipped := 0
	for _, ex := range exported {
		normalized := codes.Normalize(ex.Code)
		if normalized == "" {
			skipped++
			continue
		}
		if _, dup := seen[normalized]; dup {
			skipped++
			continue
		}
		seen[normalized] = struct{}{}

		active := true
		if ex.IsActive != nil {
			active = *ex.IsActive
		}
		records = append(records, &model.CodeRecord{
			RawCode:        strings.TrimSpace(ex.Code),
			NormalizedCode: normalized,
			RewardType:     ex.RewardType,
			Source:         ex.Source,
			Context:        ex.Context,
			// Backdated from the export; created_at stays fresh.
			DiscoveredAt: ex.DiscoveredAt.UTC(),
			IsActive:     active,
		})
	}

	outcomes, err := store.BatchInsert(ctx, records)
	if err != nil {
		logger.Fatal().Err(err).Msg("import failed, nothing committed")
	}

	inserted, existing := 0, 0
	for _, outcome := range outcomes {
		if outcome == model.OutcomeInserted {
			inserted++
		} else {
			existing++
		}
	}
	logger.Info().
		Int("inserted", inserted).
		Int("already_known", existing).
		Int("skipped", skipped).
		Msg("import completed")
}
