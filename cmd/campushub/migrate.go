package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/campus-hub/campus-event-hub/config"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply, roll back or list the PostgreSQL schema migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations need db.driver=%s, got %q", config.DriverPostgres, cfg.Database.Driver)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := postgres.NewConnection(ctx, postgres.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	m := postgres.NewMigrator(conn)

	switch args[0] {
	case "up":
		n, err := m.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", logger.Int("count", n))
	case "down":
		v, err := m.Rollback(ctx)
		if err != nil {
			return err
		}
		if v == 0 {
			log.Info("nothing to roll back")
		} else {
			log.Info("migration rolled back", logger.Int("version", v))
		}
	case "status":
		status, err := m.Status(ctx)
		if err != nil {
			return err
		}
		return printMigrations(cmd.OutOrStdout(), status)
	}
	return nil
}

func printMigrations(w io.Writer, status []postgres.Migration) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
	for _, m := range status {
		applied := "pending"
		if m.IsApplied {
			applied = m.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%03d\t%s\t%s\n", m.Version, m.Name, applied)
	}
	return tw.Flush()
}
