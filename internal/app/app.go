package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ridepool-backend/internal/config"
	"ridepool-backend/internal/events"
	"ridepool-backend/internal/lock"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/repository"
	"ridepool-backend/internal/repository/memory"
	"ridepool-backend/internal/repository/postgres"
	"ridepool-backend/internal/service"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// App holds the wired services shared by the server and cronjob binaries.
type App struct {
	DB  *sql.DB
	Hub *events.Hub

	Contract       service.ContractService
	Ride           service.RideService
	Request        service.RideRequestService
	Recommendation service.RecommendationService
	Ledger         service.SeatLedger

	closers []func() error
}

type repositories struct {
	contracts repository.ContractRepository
	rides     repository.RideRepository
	requests  repository.RideRequestRepository
	users     repository.UserDirectory
}

// Build connects storage, locking and event sinks from cfg. hub may be nil.
func Build(ctx context.Context, cfg *config.Config, hub *events.Hub) (*App, error) {
	a := &App{Hub: hub}

	repos, err := a.openStorage(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.openLocker(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	pub, err := a.openPublishers(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc := cfg.Location()
	materializer := service.NewMaterializer(repos.rides, locker, pub, loc, cfg.Materializer.RollingHorizonDays)
	a.Ledger = service.NewSeatLedger(repos.requests)
	a.Contract = service.NewContractService(repos.contracts, repos.rides, a.Ledger, locker, repos.users, materializer, pub, time.Now, loc)
	a.Ride = service.NewRideService(repos.rides, repos.requests, repos.contracts, pub)
	a.Request = service.NewRideRequestService(repos.rides, repos.requests, a.Ledger, locker, pub)
	a.Recommendation = service.NewRecommendationService(repos.requests, repos.rides,
		cfg.Recommendation.TopDestinations, cfg.Recommendation.PerDestination, cfg.Recommendation.MaxResults)
	return a, nil
}

func (a *App) openStorage(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Storage.Type == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			contracts: store.ContractRepository,
			rides:     store.RideRepository,
			requests:  store.RideRequestRepository,
			users:     memory.AllowAll(),
		}, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")
	a.DB = db

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		logger.Info("Database schema applied")
	}

	store := postgres.NewStore(db)
	var users repository.UserDirectory = memory.AllowAll()
	if cfg.Storage.UserTable != "" {
		users = postgres.NewUserDirectory(db, cfg.Storage.UserTable, cfg.Storage.UserIDColumn)
	} else {
		logger.Warn("No user table configured; contract members are not verified")
	}
	return &repositories{
		contracts: store.ContractRepository,
		rides:     store.RideRepository,
		requests:  store.RideRequestRepository,
		users:     users,
	}, nil
}

func (a *App) openLocker(ctx context.Context, cfg *config.Config) (lock.Locker, error) {
	if !cfg.Redis.Enabled {
		logger.Info("Using process-local seat locks")
		return lock.NewLocal(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("Using redis seat locks", "addr", cfg.Redis.Addr)
	return lock.NewRedis(client, cfg.Redis.KeyPrefix, time.Duration(cfg.Redis.LockTTLMillis)*time.Millisecond), nil
}

func (a *App) openPublishers(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	sinks := []events.NamedPublisher{events.LogPublisher{}}

	if cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, time.Duration(cfg.Kafka.WriteTimeoutMS)*time.Millisecond)
		a.closers = append(a.closers, kp.Close)
		sinks = append(sinks, kp)
		logger.Info("Publishing events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	if cfg.Firebase.Enabled {
		fp, err := events.NewFCMPublisher(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.TopicPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
		}
		sinks = append(sinks, fp)
		logger.Info("Publishing events to firebase topics", "prefix", cfg.Firebase.TopicPrefix)
	}

	if a.Hub != nil {
		sinks = append(sinks, a.Hub)
	}
	return events.NewMulti(sinks...), nil
}

// Ping reports database reachability; it is nil for in-memory storage.
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
