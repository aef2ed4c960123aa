package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"trivia-service/internal/config"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/postgres"
	pgmigrations "trivia-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations and optionally seeds the question bank.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seedFile string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			if seedFile == "" {
				return nil
			}
			return seedQuestions(cmd.Context(), cfg, seedFile, log)
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed-questions", "", "YAML file of questions to store as the configured bank")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.Info("migrations applied", zap.String("group", group.String()))
	return nil
}

func seedQuestions(ctx context.Context, cfg config.Config, path string, log *zap.Logger) error {
	bankID := config.StringOr(cfg.Quiz.BankID, defaultBankID)
	bank, err := memory.NewFileQuestionLoader(path).LoadBank(ctx, bankID)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	for i, q := range bank.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.NewQuestionLoader(pool).SaveBank(ctx, bank); err != nil {
		return err
	}
	log.Info("question bank seeded", zap.String("bank", bankID), zap.Int("questions", len(bank.Questions)))
	return nil
}
