package main

import (
	"context"
	"flag"

	"donneur-go/internal/common"
	"donneur-go/internal/config"
	"donneur-go/internal/identity"

	"github.com/juju/collections/set"
	"go.uber.org/zap"
)

// existingNames returns the names of organizations already registered
func existingNames(ctx context.Context, ident *identity.Service) (set.Strings, error) {
	orgs, err := ident.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	names := set.NewStrings()
	for _, org := range orgs {
		names.Add(org.Name)
	}
	return names, nil
}

func seedOrganizations(ctx context.Context, ident *identity.Service, seedFile string) {
	zap.L().Info("Loading organization seed file", zap.String("file", seedFile))
	seeds, err := common.LoadOrganizations(seedFile)
	if err != nil {
		zap.L().Fatal("Failed to load organizations", zap.Error(err))
	}
	zap.L().Info("Organization seeds loaded", zap.Int("count", len(seeds)))

	names, err := existingNames(ctx, ident)
	if err != nil {
		zap.L().Fatal("Failed to read organizations from database", zap.Error(err))
	}

	var created, skipped int
	var failed []string

	for _, seed := range seeds {
		if names.Contains(seed.Name) {
			zap.L().Info("Organization already exists", zap.String("name", seed.Name))
			skipped++
			continue
		}

		org, err := ident.CreateOrganization(ctx, seed.Params())
		if err != nil {
			zap.L().Error("Error creating organization",
				zap.String("name", seed.Name),
				zap.Error(err))
			failed = append(failed, seed.Name)
			continue
		}

		zap.L().Info("Created organization",
			zap.String("id", org.Id),
			zap.String("name", org.Name),
			zap.Bool("geocoded", org.Address.Latitude != nil))
		names.Add(seed.Name)
		created++
	}

	if len(failed) > 0 {
		zap.L().Warn("Organization seeding completed with some failures",
			zap.Int("created", created),
			zap.Int("skipped", skipped),
			zap.Strings("failed", failed))
	} else {
		zap.L().Info("Organization seeding completed successfully",
			zap.Int("created", created),
			zap.Int("skipped", skipped))
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	seedFlag := flag.String("organizations", "organizations.yaml", "Path to the organization seed file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	ident, mailer, err := common.InitializeIdentity(ctx, cfg, dbService)
	if err != nil {
		zap.L().Fatal("Failed to initialize identity service", zap.Error(err))
	}
	defer mailer.Wait()

	seedOrganizations(ctx, ident, *seedFlag)
	zap.L().Info("Initialization complete")
}
