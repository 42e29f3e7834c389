package main

import (
	"fmt"
	"os"

	"github.com/geocoder89/authgate/internal/config"
	"github.com/geocoder89/authgate/internal/db"
	"github.com/spf13/cobra"
)

type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

type openFunc func(databaseURL string) (migrator, error)

func main() {
	open := func(url string) (migrator, error) { return db.NewMigrator(url) }

	if err := newRootCmd(open).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open openFunc) *cobra.Command {
	var databaseURL string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the authgate Postgres schema",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL / DB_* settings)")

	withMigrator := func(fn func(cmd *cobra.Command, m migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			url := databaseURL
			if url == "" {
				url = config.Load().DBURL
			}

			m, err := open(url)
			if err != nil {
				return fmt.Errorf("open migrator: %w", err)
			}
			defer func() { _ = m.Close() }()

			return fn(cmd, m)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	}

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all users and admins)",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return fmt.Errorf("refusing to drop the schema without --yes")
			}
			return nil
		},
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("Schema rolled back")
			return nil
		}),
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm dropping every table")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: withMigrator(func(cmd *cobra.Command, m migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Printf("version=%d dirty=%t\n", v, dirty)
			return nil
		}),
	}

	root.AddCommand(up, down, version)
	return root
}
