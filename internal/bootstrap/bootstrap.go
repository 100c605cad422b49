package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/Gangireddy387/OnlineNotebook/internal/app/controllers"
	appMigrations "github.com/Gangireddy387/OnlineNotebook/internal/app/migrations"
	appRepos "github.com/Gangireddy387/OnlineNotebook/internal/app/repositories"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/repositories/gormstore"
	appRoutes "github.com/Gangireddy387/OnlineNotebook/internal/app/routes"
	appServices "github.com/Gangireddy387/OnlineNotebook/internal/app/services"
	"github.com/Gangireddy387/OnlineNotebook/internal/config"
	"github.com/Gangireddy387/OnlineNotebook/internal/db"
	appMiddleware "github.com/Gangireddy387/OnlineNotebook/internal/middleware"
	pkgAuth "github.com/Gangireddy387/OnlineNotebook/internal/pkg/auth"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/events"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/logger"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/relay"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/websocket"
	"github.com/Gangireddy387/OnlineNotebook/internal/seed"
)

// EventPublisher is a closable domain event sink
type EventPublisher interface {
	appServices.DomainEventPublisher
	Close() error
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store          appRepos.Store
	JWTService     *pkgAuth.JWTService
	Gate           *pkgAuth.Gate
	Services       *appServices.Services
	Hub            *websocket.Hub
	Dispatcher     *websocket.Dispatcher
	WSHandler      *websocket.Handler
	Relay          *relay.Relay // nil unless redis is enabled
	RedisBroker    *relay.RedisBroker
	Publisher      EventPublisher
	ChatController *appControllers.ChatController
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  prettyLog,
		Service: "onlinenotebook-chat",
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the configured persistence driver and applies its schema.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, seed.Writer, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		lgr.Info().Str("path", cfg.Database.SQLitePath).Msg("Opening sqlite store...")
		store, err := gormstore.Open(cfg.Database.SQLitePath, lgr)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to open sqlite store")
			return nil, nil, err
		}
		return store, store, nil

	default:
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(ctx, cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, nil, err
		}
		lgr.Info().Msg("Database connection successfully established.")

		lgr.Info().Msg("Running database migrations...")
		migrator := appMigrations.NewMigrator(database.Pool, lgr)
		if dir := cfg.Database.MigrationsDir; dir != "" {
			err = migrator.MigrateFromDirectory(ctx, dir)
		} else {
			err = migrator.Migrate(ctx)
		}
		if err != nil {
			database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		repos := appRepos.NewRepositories(database)
		return repos, repos, nil
	}
}

// BuildDependencies wires the store, the realtime hub and the services.
func BuildDependencies(cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Store: store, Logger: lgr}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.AccessTokenTTL(),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.Gate = pkgAuth.NewGate(deps.JWTService, store, logger.Component("gate"))

	deps.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		publisher, err := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to rabbitmq")
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		deps.Publisher = publisher
		lgr.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("Domain events publishing to rabbitmq")
	}

	nodeID := "node-" + uuid.NewString()[:8]
	deps.Hub = websocket.NewHub(nodeID, nil, logger.Component("hub"))
	deps.Services = appServices.NewServices(appServices.Dependencies{
		Store:     store,
		Members:   deps.Gate,
		Notifier:  deps.Hub,
		Publisher: deps.Publisher,
		Logger:    logger.Component("services"),
	})
	deps.Hub.SetPresence(deps.Services.Presence)

	if cfg.Redis.Enabled {
		broker, err := relay.NewRedisBroker(cfg.Redis.URL)
		if err != nil {
			_ = deps.Publisher.Close()
			lgr.Error().Err(err).Msg("Failed to connect to redis")
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.RedisBroker = broker
		deps.Relay = relay.New(broker, cfg.Redis.Channel, deps.Hub, logger.Component("relay"))
		lgr.Info().Str("node", nodeID).Str("channel", cfg.Redis.Channel).Msg("Cross-node relay enabled")
	}

	timings := cfg.Timings()
	deps.Dispatcher = websocket.NewDispatcher(deps.Hub, deps.Services.Chats, deps.Services.ChatRequests, logger.Component("dispatcher"))
	deps.WSHandler = websocket.NewHandler(deps.Hub, deps.Gate, deps.Dispatcher, websocket.Options{
		WriteWait:      timings.WriteWait,
		PongWait:       timings.PongWait,
		PingPeriod:     timings.PingPeriod,
		MaxMessageSize: cfg.Websocket.MaxMessageSize,
		SendBuffer:     cfg.Websocket.SendBuffer,
		InboundBuffer:  cfg.Websocket.InboundBuffer,
		AllowedOrigins: cfg.Websocket.AllowedOrigins,
	}, logger.Component("websocket"))

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.Gate)
	deps.ChatController = appControllers.NewChatController(deps.Services.Chats, deps.Services.ChatRequests)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupRouter(router,
		deps.ChatController,
		deps.AuthMiddleware,
		deps.WSHandler.HandleConnection,
		deps.Hub,
	)

	return router
}

// ResetStalePresence marks principals left connected by a previous run as
// offline so their next connection is announced again. With the Redis relay
// enabled other nodes share the table and nothing is reset.
func ResetStalePresence(ctx context.Context, cfg *config.Config, store appRepos.PresenceStore, lgr zerolog.Logger) (int64, error) {
	if cfg.Redis.Enabled {
		lgr.Debug().Msg("Shared presence table, skipping stale presence reset")
		return 0, nil
	}
	reset, err := store.ResetOnlineStatuses(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reset presence: %w", err)
	}
	if reset > 0 {
		lgr.Info().Int64("count", reset).Msg("Reset stale presence from previous run")
	}
	return reset, nil
}
