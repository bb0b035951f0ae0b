package cmd

import (
	"context"
	"database/sql"
	"log"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations/<driver> directory",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "", "sql migrations directory (default db/migrations/<driver>)")
}

// openMigrationDB opens a plain database/sql handle and sets the goose
// dialect. goose's own sqlite opener expects a different driver than
// mattn/go-sqlite3 registers, so sqlite is opened here directly.
func openMigrationDB(driver, source string) (*sql.DB, error) {
	if driver != "sqlite" {
		return goose.OpenDBWithDriver("pgx", source)
	}
	db, err := sql.Open("sqlite3", source)
	if err != nil {
		return nil, err
	}
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	db, err := openMigrationDB(cfg.Database.Driver, cfg.Database.Source)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	defer db.Close()

	goose.SetTableName("schema_migrations")

	dir := migrateDir
	if dir == "" {
		dir = migrationDir(cfg.Database.Driver)
	}

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, dir); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}

	return nil
}

func migrationDir(driver string) string {
	if driver == "sqlite" {
		return filepath.Join("db", "migrations", "sqlite")
	}
	return filepath.Join("db", "migrations", "postgres")
}
