package cli

import (
	"context"
	"fmt"

	"clinical-quiz-service/internal/infra/postgres"
	redisinfra "clinical-quiz-service/internal/infra/redis"
	"clinical-quiz-service/internal/seed"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd loads institutions and cases from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load institutions and clinical cases from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "cases.yaml", "seed file")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	bundle, err := seed.Load(file)
	if err != nil {
		return fmt.Errorf("seed file %s: %w", file, err)
	}

	db, err := openBun(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := Migrate(ctx, db, log); err != nil {
		return err
	}
	if err := postgres.NewSeeder(db).Seed(ctx, bundle); err != nil {
		return err
	}

	// cached copies of reseeded cases would otherwise outlive the change
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		cache := redisinfra.NewCaseRepository(client, nil, 0)
		for _, c := range bundle.Cases {
			if err := cache.Invalidate(ctx, c.ID); err != nil {
				log.Warn("invalidate cached case", zap.String("caseId", c.ID), zap.Error(err))
			}
		}
	}

	log.Info("seed applied",
		zap.Int("institutions", len(bundle.Institutions)),
		zap.Int("cases", len(bundle.Cases)))
	return nil
}
