package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"donneur-go/internal/api"
	"donneur-go/internal/auth"
	"donneur-go/internal/database"
	"donneur-go/internal/feed"
	"donneur-go/internal/formance"
	"donneur-go/internal/geocode"
	"donneur-go/internal/identity"
	"donneur-go/internal/ledger"
	"donneur-go/internal/media"
	"donneur-go/internal/models"
	"donneur-go/internal/notify"
	"donneur-go/internal/payment"
	"donneur-go/internal/social"
	"donneur-go/internal/stripe"
	"donneur-go/internal/translog"

	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is the fully wired application graph.
type Services struct {
	DbService    *database.Service
	Ledger       *ledger.Ledger
	Transactions *translog.Log
	Payments     *payment.Service
	Identity     *identity.Service
	Social       *social.Service
	Feed         *feed.Engine
	Mailer       *notify.Mailer
	Formance     *formance.Service
	Server       *api.Server
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	services, err := buildServices(ctx, cfg, dbService)
	if err != nil {
		dbService.Close()
		return nil, err
	}
	return services, nil
}

func buildServices(ctx context.Context, cfg *models.Config, dbService *database.Service) (*Services, error) {
	wallClock := clock.WallClock
	currency := cfg.Payments.Currency

	l := ledger.New(dbService)
	transactions := translog.New(dbService, l, currency, wallClock)

	var mirror *formance.Service
	if cfg.Formance.URL != "" {
		zap.L().Info("Connecting ledger mirror", zap.String("url", cfg.Formance.URL), zap.String("ledger", cfg.Formance.Ledger))
		svc, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			return nil, err
		}
		transactions.SetMirror(svc)
		mirror = svc
	}

	processor, err := stripe.NewProcessor(cfg.Payments, "")
	if err != nil {
		return nil, err
	}
	payments := payment.NewService(processor, transactions, dbService, dbService, dbService, currency)

	ident, mailer, err := InitializeIdentity(ctx, cfg, dbService)
	if err != nil {
		return nil, err
	}
	soc := social.NewService(dbService, dbService, dbService, dbService, wallClock)

	cache, err := feed.NewLRUCache(cfg.Feed.CacheSize)
	if err != nil {
		return nil, err
	}
	engine := feed.NewEngine(dbService, soc, ident, cache, wallClock, cfg.Feed.PageSize)
	soc.SetInvalidator(engine)

	verifier, err := auth.NewVerifier(cfg.Auth, ident)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	server := api.NewServer(api.Dependencies{
		Auth:         verifier,
		Identity:     ident,
		Payments:     payments,
		Ledger:       l,
		Transactions: transactions,
		Social:       soc,
		Feed:         engine,
		Health:       dbService,
		Currency:     currency,
	}, cfg.Server.AllowedOrigins)

	return &Services{
		DbService:    dbService,
		Ledger:       l,
		Transactions: transactions,
		Payments:     payments,
		Identity:     ident,
		Social:       soc,
		Feed:         engine,
		Mailer:       mailer,
		Formance:     mirror,
		Server:       server,
	}, nil
}

// InitializeIdentity wires the account service with its optional geocoder,
// mailer and media store. It needs no payment credentials, so the admin
// commands use it directly.
func InitializeIdentity(ctx context.Context, cfg *models.Config, dbService *database.Service) (*identity.Service, *notify.Mailer, error) {
	mailer := notify.NewMailer(cfg.Mail)

	var geocoder identity.Geocoder
	if cfg.Geocoder.APIKey != "" {
		client, err := geocode.NewClient(cfg.Geocoder)
		if err != nil {
			return nil, nil, err
		}
		geocoder = client
	} else {
		zap.L().Warn("No geocoder API key, organization coordinates will stay empty")
	}

	var images identity.ImageStore
	if cfg.Media.Bucket != "" {
		store, err := media.NewStore(ctx, cfg.Media)
		if err != nil {
			return nil, nil, err
		}
		images = store
	} else {
		zap.L().Warn("No media bucket configured, uploads are disabled")
	}

	return identity.NewService(dbService, dbService, dbService, geocoder, mailer, images, cfg.Mail.LinkBase), mailer, nil
}

// InitializeDatabaseOnly initializes just the database service without the
// payment processor. Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// Close waits for queued mail and releases the database.
func (cs *Services) Close() {
	if cs.Mailer != nil {
		cs.Mailer.Wait()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
