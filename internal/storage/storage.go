package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "shoplink-backend/internal/common/errors"
	"shoplink-backend/internal/config"
	domain "shoplink-backend/internal/domain/user"
	"shoplink-backend/internal/platform/db"
	platformmongo "shoplink-backend/internal/platform/mongo"
	platformredis "shoplink-backend/internal/platform/redis"
	memoryrepo "shoplink-backend/internal/repository/memory"
	mongorepo "shoplink-backend/internal/repository/mongo"
	postgresrepo "shoplink-backend/internal/repository/postgres"
	redisrepo "shoplink-backend/internal/repository/redis"
)

const (
	pingTimeout     = 5 * time.Second
	maxPrepareDelay = 30 * time.Second
)

// Store is the configured Identity Store backend. An unreachable server is
// never fatal: Open logs it and the repository returns errors until the
// server comes back.
type Store struct {
	domain.Repository

	driver  string
	prepare func(ctx context.Context) error
	close   func()
}

// Open builds the repository for cfg.Storage.Driver. Only invalid settings
// are returned as errors; a failed connectivity check is logged as
// CONNECTION_FAILED.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	var (
		s   *Store
		err error
	)
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		s, err = openMongo(ctx, cfg)
	case config.DriverPostgres:
		s, err = openPostgres(cfg)
	case config.DriverRedis:
		s, err = openRedis(cfg)
	case config.DriverMemory:
		s = &Store{Repository: memoryrepo.NewUserRepository(), close: func() {}}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	s.driver = cfg.Storage.Driver

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		log.Error().Err(err).Str("driver", s.driver).Msg("Storage unreachable, continuing without it")
	} else {
		log.Info().Str("driver", s.driver).Msg("Storage connection established")
	}
	return s, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*Store, error) {
	client, err := platformmongo.Open(ctx, cfg.Storage.MongoURI)
	if err != nil {
		return nil, err
	}
	repo := mongorepo.NewUserRepositoryFromDB(client.Database(cfg.MongoDatabaseName()))
	return &Store{
		Repository: repo,
		prepare:    repo.EnsureIndexes,
		close:      func() { _ = client.Disconnect(context.Background()) },
	}, nil
}

func openPostgres(cfg *config.Config) (*Store, error) {
	sqlDB, err := db.Open(cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, err
	}
	repo := postgresrepo.NewUserRepository(sqlDB)
	return &Store{
		Repository: repo,
		prepare:    repo.Migrate,
		close:      func() { _ = sqlDB.Close() },
	}, nil
}

func openRedis(cfg *config.Config) (*Store, error) {
	client, err := platformredis.Open(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
	if err != nil {
		return nil, err
	}
	return &Store{
		Repository: redisrepo.NewUserRepository(client.Client),
		close:      func() { _ = client.Close() },
	}, nil
}

func (s *Store) Driver() string { return s.driver }

// Ping reports backend health as a CONNECTION_FAILED AppError.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.Repository.Ping(ctx); err != nil {
		return apperrors.NewConnectionError(s.driver, err)
	}
	return nil
}

// Prepare creates the schema the backend needs (unique index or table).
func (s *Store) Prepare(ctx context.Context) error {
	if s.prepare == nil {
		return nil
	}
	return s.prepare(ctx)
}

// PrepareWithRetry runs Prepare until it succeeds or ctx ends, doubling the
// delay between attempts up to 30s.
func (s *Store) PrepareWithRetry(ctx context.Context, delay time.Duration) error {
	for attempt := 1; ; attempt++ {
		err := s.Prepare(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().Str("driver", s.driver).Int("attempt", attempt).Msg("Storage schema ready")
			}
			return nil
		}
		log.Warn().
			Err(apperrors.NewDatabaseError("prepare schema", err)).
			Str("driver", s.driver).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Storage schema not ready")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxPrepareDelay {
			delay = maxPrepareDelay
		}
	}
}

// Close releases the backend connection.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}
