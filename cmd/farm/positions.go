package main

import (
	"github.com/spf13/cobra"

	"yieldFarm/internal/config"
	"yieldFarm/internal/storage"
)

func newPositionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List journaled positions",
		RunE:  runPositions,
	}
	cmd.Flags().String("journal", "./data/positions.jsonl", "position journal path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN (overrides the journal file)")
	return cmd
}

func runPositions(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMint(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	journal := storage.Journal(storage.NewJsonlJournal(cfg.Journal))
	if cfg.PGDSN != "" {
		store, err := connectStore(ctx, cfg.Config)
		if err != nil {
			return err
		}
		defer store.Close()
		journal = store
	}

	records, err := journal.List(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, records)
}
