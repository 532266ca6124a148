package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/motobuddies/internal/app/controllers"
	appMigrations "github.com/yigit/motobuddies/internal/app/migrations"
	appRepos "github.com/yigit/motobuddies/internal/app/repositories"
	appRoutes "github.com/yigit/motobuddies/internal/app/routes"
	appServices "github.com/yigit/motobuddies/internal/app/services"
	"github.com/yigit/motobuddies/internal/config"
	"github.com/yigit/motobuddies/internal/db"
	appMiddleware "github.com/yigit/motobuddies/internal/middleware"
	pkgAuth "github.com/yigit/motobuddies/internal/pkg/auth"
	"github.com/yigit/motobuddies/internal/pkg/bus"
	"github.com/yigit/motobuddies/internal/pkg/email"
	"github.com/yigit/motobuddies/internal/pkg/filestorage"
	"github.com/yigit/motobuddies/internal/pkg/geocode"
	"github.com/yigit/motobuddies/internal/pkg/gpx"
	"github.com/yigit/motobuddies/internal/pkg/logger"
	"github.com/yigit/motobuddies/internal/pkg/telemetry"
	"github.com/yigit/motobuddies/internal/pkg/weather"
	"github.com/yigit/motobuddies/internal/pkg/websocket"
)

const metricsNamespace = "motobuddies"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config         *config.Config
	Logger         zerolog.Logger
	DB             *db.PostgresDB
	Repos          *appRepos.Repositories
	Services       *appServices.Services
	Controllers    appRoutes.Controllers
	JWTService     *pkgAuth.JWTService
	AuthMiddleware *appMiddleware.AuthMiddleware
	Hub            *websocket.Hub
	Bus            *bus.Bus                  // nil without NATS
	LocalStorage   *filestorage.LocalStorage // nil when objects live in S3

	relay io.Closer
}

// ConfigPath returns the config file location, overridable with CONFIG_PATH.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join("configs", "config.yaml")
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	lgr := logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  prettyLog,
		Service: cfg.Telemetry.ServiceName,
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the connection pool and, when enabled, applies pending migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if cfg.Database.AutoMigrate {
		if err := RunMigrations(ctx, cfg, lgr); err != nil {
			database.Close()
			return nil, err
		}
	}

	return database, nil
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) error {
	lgr.Info().Msg("Running database migrations...")
	migrator, err := appMigrations.NewMigrator(cfg.GetPostgresConnectionString(), lgr)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// NewBlobStore builds the configured GPX store. The local store is also
// returned so the router can serve its files.
func NewBlobStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (filestorage.BlobStore, *filestorage.LocalStorage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "s3":
		store, err := filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Endpoint:       cfg.Storage.S3.Endpoint,
			Region:         cfg.Storage.S3.Region,
			AccessKey:      cfg.Storage.S3.AccessKey,
			SecretKey:      cfg.Storage.S3.SecretKey,
			Bucket:         cfg.Storage.Bucket,
			ForcePathStyle: cfg.Storage.S3.ForcePathStyle,
			PublicURL:      cfg.Storage.S3.PublicURL,
		}, lgr.With().Str("component", "s3").Logger())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		return store, nil, nil
	default:
		baseURL := strings.TrimRight(cfg.Server.PublicBaseURL, "/") + "/uploads"
		store, err := filestorage.NewLocalStorage(cfg.Storage.LocalPath, baseURL, cfg.Storage.Bucket, lgr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return store, store, nil
	}
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: lgr, DB: database}
	location := cfg.Location()

	deps.Repos = appRepos.NewRepositories(database)

	blobs, local, err := NewBlobStore(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize blob storage")
		return nil, err
	}
	deps.LocalStorage = local

	deps.Hub = websocket.NewHub(logger.Component("websocket"))

	// With NATS every instance relays inserts to its own sockets; without
	// it the hub is the publisher.
	var publisher appServices.Publisher = deps.Hub
	if cfg.Realtime.NatsURL != "" {
		deps.Bus, err = bus.New(cfg.Realtime.NatsURL, nats.Name(cfg.Telemetry.ServiceName))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher = bus.NewNotificationPublisher(deps.Bus, cfg.Realtime.Subject)
		lgr.Info().Str("subject", cfg.Realtime.Subject).Msg("Realtime relay over NATS enabled")
	}

	var mailer email.EmailService
	if cfg.SMTPEnabled() {
		mailer = email.NewEmailService(email.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromName:  "MotoBuddies",
			FromEmail: cfg.SMTP.From,
			UseTLS:    cfg.SMTP.Port == 465,
			BaseURL:   cfg.Server.SiteURL,
		}, logger.Component("email"))
	}

	tracedClient := func(timeout time.Duration) *http.Client {
		return &http.Client{Timeout: timeout, Transport: telemetry.Transport(nil)}
	}
	weatherTimeout := config.Duration(cfg.Weather.Timeout, 5*time.Second)
	forecaster := weather.NewClient(cfg.Weather.BaseURL, weatherTimeout, cfg.Weather.HorizonDays,
		weather.WithHTTPClient(tracedClient(weatherTimeout)))
	places := geocode.NewClient(
		cfg.Geocoding.BaseURL,
		cfg.Geocoding.UserAgent,
		cfg.Geocoding.Limit,
		config.Duration(cfg.Geocoding.Timeout, 5*time.Second),
		config.Duration(cfg.Geocoding.Debounce, 350*time.Millisecond),
		geocode.WithTransport(telemetry.Transport(nil)),
	)
	tracks := gpx.NewFetcher(tracedClient(15*time.Second), int64(cfg.Storage.MaxSizeMB)<<20)

	repos := deps.Repos
	notificationService := appServices.NewNotificationService(
		repos.NotificationRepository,
		repos.GroupRepository,
		repos.MembershipRepository,
		repos.RideRepository,
		repos.ParticipantRepository,
		publisher,
		logger.Component("notifications"),
	)
	membershipService := appServices.NewMembershipService(
		repos.GroupRepository,
		repos.MembershipRepository,
		repos.ProfileRepository,
		notificationService,
		lgr,
	)
	deps.Services = &appServices.Services{
		Notification: notificationService,
		Membership:   membershipService,
		RSVP: appServices.NewRSVPService(
			repos.RideRepository,
			repos.ParticipantRepository,
			repos.ProfileRepository,
			membershipService,
			notificationService,
			lgr,
		),
		Ride: appServices.NewRideService(appServices.RideServiceDeps{
			Rides:         repos.RideRepository,
			Participants:  repos.ParticipantRepository,
			Profiles:      repos.ProfileRepository,
			Membership:    membershipService,
			Notifications: notificationService,
			Blobs:         blobs,
			Tracks:        tracks,
			Forecaster:    forecaster,
			Location:      location,
		}, lgr),
		Profile: appServices.NewProfileService(repos.ProfileRepository, lgr),
		Geocode: appServices.NewGeocodeService(places),
		Reminder: appServices.NewReminderService(
			repos.RideRepository,
			repos.ParticipantRepository,
			repos.ProfileRepository,
			notificationService,
			mailer,
			location,
			logger.Component("reminders"),
		),
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenIssuer: cfg.JWT.Issuer,
		Audience:    cfg.JWT.Audience,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, cfg.Server.APIKey)

	svc := deps.Services
	deps.Controllers = appRoutes.Controllers{
		Group:        appControllers.NewGroupController(svc.Membership, svc.Ride, lgr),
		Ride:         appControllers.NewRideController(svc.Ride, svc.RSVP, svc.Geocode, location, lgr),
		Profile:      appControllers.NewProfileController(svc.Profile),
		Notification: appControllers.NewNotificationController(svc.Notification, lgr),
		WebSocket:    websocket.NewHandler(deps.Hub, cfg.Realtime.AllowedOrigin, logger.Component("websocket")),
	}

	return deps, nil
}

// Start runs the hub and, with NATS, the relay into it until ctx is done.
func (d *Dependencies) Start(ctx context.Context) error {
	go d.Hub.Run(ctx)

	if d.Bus == nil {
		return nil
	}
	relay, err := bus.RelayNotifications(ctx, d.Bus, d.Config.Realtime.Subject, d.Hub, logger.Component("relay"))
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", d.Config.Realtime.Subject, err)
	}
	d.relay = relay
	return nil
}

// Close releases the relay, the NATS connection and the database pool.
func (d *Dependencies) Close() {
	if d.relay != nil {
		if err := d.relay.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close notification relay")
		}
	}
	d.Bus.Close()
	if d.DB != nil {
		d.DB.Close()
	}
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
	// Services receive the gin context; cancellation follows the request.
	router.ContextWithFallback = true
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	if cfg.Telemetry.Metrics {
		metrics := appMiddleware.NewMetrics(metricsNamespace)
		pool := deps.DB.Pool
		metrics.Registry().MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "db_pool_acquired_conns",
			Help:      "Connections currently checked out of the pool.",
		}, func() float64 { return float64(pool.Stat().AcquiredConns()) }))
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	if deps.LocalStorage != nil {
		router.Static("/uploads", deps.LocalStorage.BasePath())
		lgr.Info().Str("path", deps.LocalStorage.BasePath()).Msg("Static file serving configured for uploads directory")
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
