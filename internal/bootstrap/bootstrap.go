package bootstrap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bimakw/holdings-reconciler/internal/application/services"
	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/repositories"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/cache"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/database"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/ethereum"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/explorer"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/pricefeed"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/protocols"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/registry"
)

// App holds the wired services shared by the API server and the CLI
type App struct {
	DB    *database.PostgresDB
	Cache *cache.RedisCache

	Prices      *services.PriceService
	Tokens      *services.TokenService
	Blocks      *services.BlockIndexService
	NetTransfer *services.NetTransferService
	Wallet      *services.WalletService
	Balances    *services.BalanceService
	Transfers   *services.TransferService

	pool   *ethereum.ClientPool
	logger *zap.Logger
}

// New connects the optional stores and wires every service. The database is
// used only when enabled; a Redis failure degrades to running without a cache.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	catalog, err := registry.Load(cfg.Registry.Path, logger)
	if err != nil {
		return nil, err
	}

	app := &App{logger: logger}

	// Connect to database (optional)
	var tokenRepo repositories.TokenRepository
	var blockRepo repositories.BlockTimeRepository
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		app.DB = db
		tokenRepo = database.NewTokenRepo(db.DB())
		blockRepo = database.NewBlockTimeRepo(db.DB())
	}

	// Connect to Redis cache (optional)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis, cfg.API.CacheTTL, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
		} else {
			app.Cache = redisCache
		}
	}

	// Create clients
	app.pool = ethereum.NewClientPool(cfg.Chains, logger)
	explorerClient := explorer.NewClient(cfg.Explorer, logger)
	priceFeed := pricefeed.NewDefiLlamaClient(cfg.Price, logger)

	// Create services
	classifier := services.NewClassifier(catalog)
	app.Prices = services.NewPriceService(priceFeed, catalog, cfg.Price.CacheTTL, logger)
	app.Tokens = services.NewTokenService(app.pool, tokenRepo, classifier, logger)
	app.Blocks = services.NewBlockIndexService(explorerClient, blockRepo, cfg.Transfer.ZeroBlockIsMiss, logger)
	collector := services.NewTransferCollector(explorerClient, cfg.Transfer, logger)

	app.NetTransfer = services.NewNetTransferService(
		app.pool, catalog, app.Tokens, app.Prices, app.Blocks, collector, app.Cache, cfg.Transfer, logger,
	)
	app.Wallet = services.NewWalletService(app.pool, catalog, app.Tokens, app.Prices, logger)
	app.Balances = services.NewBalanceService(
		protocols.NewDefaultRegistry(catalog, app.pool, logger),
		app.Wallet, app.Tokens, app.Prices, app.Cache, logger,
	)
	app.Transfers = services.NewTransferService(explorerClient, app.Blocks, app.Cache, logger)

	logger.Info("Services ready",
		zap.Int64s("chains", catalog.Chains()),
		zap.Bool("database", app.DB != nil),
		zap.Bool("cache", app.Cache != nil),
	)

	return app, nil
}

// Close releases the RPC clients and the optional stores
func (a *App) Close() {
	a.pool.Close()
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn("Failed to close cache", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}

// NewLogger builds a production zap logger. format "console" switches the
// encoder for local runs.
func NewLogger(cfg config.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch cfg.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoding := "json"
	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
