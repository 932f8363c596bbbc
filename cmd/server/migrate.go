package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/mindbridge/internal/api"
	"github.com/soaringjerry/mindbridge/internal/config"
	"github.com/soaringjerry/mindbridge/internal/db"
	"github.com/soaringjerry/mindbridge/internal/observability"
	"github.com/soaringjerry/mindbridge/internal/services"
)

// snapshot is the JSON interchange format accepted by `migrate --import`.
type snapshot struct {
	Users       []snapshotUser              `json:"users"`
	Assessments []services.AssessmentRecord `json:"assessments"`
	Moods       []services.MoodEntry        `json:"moods"`
	Audit       []services.AuditEntry       `json:"audit"`
}

// snapshotUser carries the password hash that services.User hides from JSON.
type snapshotUser struct {
	services.User
	PassHash []byte `json:"pass_hash"`
}

func newMigrateCommand() *cobra.Command {
	var importPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQLite schema migrations and optionally import a JSON snapshot",
		Long: `Applies pending SQL migrations to the configured SQLite database.

With --import, a JSON snapshot (users, assessments, moods, audit) is copied
into the configured store. The import only runs against a store that has no
users yet, so re-running it is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			observability.Init(cmd.ErrOrStderr(), cfg.LogLevel)
			return runMigrate(cmd.Context(), cfg, importPath)
		},
	}
	cmd.Flags().StringVar(&importPath, "import", "", "JSON snapshot to import into an empty store")
	return cmd
}

func runMigrate(ctx context.Context, cfg *config.Config, importPath string) error {
	log := observability.Logger()
	if cfg.Storage.Backend == config.BackendMemory {
		return errors.New("migrate needs a persistent storage backend (sqlite or firestore)")
	}
	if cfg.Storage.Backend == config.BackendSQLite {
		sqlDB, err := db.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		applied, err := db.RunMigrations(ctx, sqlDB, cfg.Storage.MigrationsDir)
		if cerr := sqlDB.Close(); cerr != nil {
			log.Warn("close sqlite", "error", cerr)
		}
		if err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations complete", "applied", applied)
	}
	if importPath == "" {
		return nil
	}

	snap, err := readSnapshot(importPath)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(snap.Users) > 0 {
		existing, err := store.GetUser(ctx, snap.Users[0].ID)
		if err != nil {
			return fmt.Errorf("check store: %w", err)
		}
		if existing != nil {
			log.Info("snapshot already imported, skipping", "path", importPath)
			return nil
		}
	}

	log.Info("importing snapshot", "path", importPath,
		"users", len(snap.Users), "assessments", len(snap.Assessments), "moods", len(snap.Moods))
	if err := copySnapshotToStore(ctx, snap, store); err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	log.Info("snapshot import completed")
	return nil
}

func readSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}

// copySnapshotToStore writes users before their dependent rows.
func copySnapshotToStore(ctx context.Context, snap *snapshot, dst api.Store) error {
	for i := range snap.Users {
		su := snap.Users[i]
		u := su.User
		u.PassHash = su.PassHash
		if u.ID == "" || u.Email == "" {
			return fmt.Errorf("user %d: id and email are required", i)
		}
		if err := dst.AddUser(ctx, &u); err != nil {
			return fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	for i := range snap.Assessments {
		if err := dst.AddAssessment(ctx, &snap.Assessments[i]); err != nil {
			return fmt.Errorf("assessment %s: %w", snap.Assessments[i].ID, err)
		}
	}
	for i := range snap.Moods {
		if err := dst.AddMood(ctx, &snap.Moods[i]); err != nil {
			return fmt.Errorf("mood %s: %w", snap.Moods[i].ID, err)
		}
	}
	for _, e := range snap.Audit {
		if err := dst.AddAudit(ctx, e); err != nil {
			return fmt.Errorf("audit entry: %w", err)
		}
	}
	return nil
}
