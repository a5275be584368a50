package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/feedbackhub/feedbackhub/internal/database"
)

var errNoDatabase = errors.New("database is not configured: set DB_HOST and DB_PASSWORD")

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Manage the database schema",
	Long:      "Apply pending migrations (up), roll back the latest one (down) or list every migration with its state (status).",
	ValidArgs: []string{"up", "down", "status"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.DatabaseEnabled() {
			return errNoDatabase
		}

		log := newLogger(cfg)
		defer func() { _ = log.Sync() }()

		ctx := cmd.Context()
		pool, err := database.NewPool(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		migrator, err := database.NewDefaultMigrator(pool)
		if err != nil {
			return err
		}

		if err := migrator.EnsureMigrationsTable(ctx); err != nil {
			return err
		}

		switch args[0] {
		case "up":
			return migrateUp(ctx, pool, log)
		case "down":
			if err := migrator.Down(ctx); err != nil {
				return fmt.Errorf("roll back migration: %w", err)
			}
			log.Info("rolled back latest migration")
			return nil
		default:
			status, err := migrator.Status(ctx)
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), status)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// writeStatus prints one row per known migration.
func writeStatus(out io.Writer, migrations []database.Migration) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Version", "Name", "Applied"})
	for _, m := range migrations {
		state := "pending"
		if m.AppliedAt != nil {
			state = m.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{fmt.Sprintf("%03d", m.Version), m.Name, state})
	}
	t.Render()
	return nil
}
