package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"moneta/internal/domain/aggregation"
	"moneta/internal/domain/exchange"
	"moneta/internal/infrastructure/crypto"
	"moneta/internal/infrastructure/pluggyai"
	"moneta/internal/infrastructure/postgres"
	"moneta/internal/infrastructure/simplefin"
	"moneta/internal/infrastructure/trading212"
	httphandlers "moneta/internal/interfaces/http"
	"moneta/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	ProviderHandler *httphandlers.ProviderHandler
	SecretHandler   *httphandlers.SecretHandler

	// Domain services
	Aggregation *aggregation.Service
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	logrus.Info("connected to database")

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize encryptor
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize repositories
	secretRepo := postgres.NewSecretRepository(db, encryptor)
	cacheRepo := postgres.NewCacheRepository(db)

	// Currency conversion with the cached USD->EUR rate
	converter := exchange.NewConverter(cacheRepo, secretRepo, cfg.Exchange.BaseURL, cfg.Exchange.CacheTTL)

	// Provider adapters
	t212 := aggregation.NewTrading212(trading212.NewClient(cfg.Providers.Trading212BaseURL), secretRepo, converter)
	pluggy := aggregation.NewPluggy(pluggyai.NewClient(cfg.Providers.PluggyBaseURL), secretRepo)
	sfin := aggregation.NewSimpleFIN(simplefin.NewClient(), secretRepo)

	aggregationService := aggregation.NewService(t212, pluggy, sfin)

	return &Dependencies{
		DB:              db,
		ProviderHandler: httphandlers.NewProviderHandler(aggregationService),
		SecretHandler:   httphandlers.NewSecretHandler(secretRepo),
		Aggregation:     aggregationService,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
