//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/datagen"
	"github.com/pgEdge/pgedge-dwh/internal/db"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
)

var (
	seedUsers   int
	seedArtists int
	seedSongs   int
	seedEvents  int
	seedRandom  uint64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the staging tables with synthetic data",
	Long: `Generate a song catalog and event log and write them into songs_stg
and events_stg, so the transformations can be run against a local
PostgreSQL without access to S3. Requires the postgres dialect.

Example:
  pgedge-dwh provision --dialect postgres
  pgedge-dwh seed --dialect postgres --events 5000 --seed 42
  pgedge-dwh load --dialect postgres --skip-copy`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 0,
		"number of distinct users (default from config)")
	seedCmd.Flags().IntVar(&seedArtists, "artists", 0,
		"number of artists in the catalog (default from config)")
	seedCmd.Flags().IntVar(&seedSongs, "songs", 0,
		"number of songs in the catalog (default from config)")
	seedCmd.Flags().IntVar(&seedEvents, "events", -1,
		"number of log events (default from config)")
	seedCmd.Flags().Uint64Var(&seedRandom, "seed", 0,
		"random seed for reproducible data (0 = random)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if seedUsers > 0 {
		cfg.Seed.Users = seedUsers
	}
	if seedArtists > 0 {
		cfg.Seed.Artists = seedArtists
	}
	if seedSongs > 0 {
		cfg.Seed.Songs = seedSongs
	}
	if seedEvents >= 0 {
		cfg.Seed.Events = seedEvents
	}
	if seedRandom != 0 {
		cfg.Seed.RandomSeed = seedRandom
	}

	if err := cfg.ValidateSeed(); err != nil {
		return err
	}

	gen := datagen.DefaultStagingConfig()
	gen.Users = cfg.Seed.Users
	gen.Artists = cfg.Seed.Artists
	gen.Songs = cfg.Seed.Songs
	gen.Events = cfg.Seed.Events

	faker := datagen.NewFaker()
	if cfg.Seed.RandomSeed != 0 {
		faker = datagen.NewFakerWithSeed(cfg.Seed.RandomSeed)
	}

	data, err := datagen.GenerateStaging(faker, gen)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.ConnectPool(ctx, cfg.Cluster)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	log := logging.ForRun("seed")
	log.Info().
		Int("songs", len(data.Songs)).
		Int("events", len(data.Events)).
		Uint64("seed", cfg.Seed.RandomSeed).
		Msg("Seeding staging tables")

	start := time.Now()
	result, err := data.CopyTo(ctx, pool)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "songs_stg: %d rows\nevents_stg: %d rows\n",
		result.Songs, result.Events)
	log.Info().
		Dur("duration", time.Since(start)).
		Msg("Staging tables seeded")
	return nil
}
