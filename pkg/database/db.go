package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"anoa.com/sparkvest/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Options struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
	Debug    bool
}

var (
	DB   *gorm.DB
	once sync.Once
)

// Connect opens the shared Postgres connection once per process.
func Connect(opts Options) (*gorm.DB, error) {
	var err error
	once.Do(func() {
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			opts.Host, opts.User, opts.Password, opts.Name, opts.Port, valueOrDefault(opts.SSLMode, "disable"),
		)

		level := gormlogger.Warn
		if opts.Debug {
			level = gormlogger.Info
		}

		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(level),
		})
		if err != nil {
			err = fmt.Errorf("failed to connect database: %w", err)
			return
		}

		DB = db
	})

	if err != nil {
		return nil, err
	}
	if DB == nil {
		return nil, fmt.Errorf("database connection was not initialized")
	}
	return DB, nil
}

// ConnectRedis returns nil without error when addr is empty so callers can
// fall back to in-process stores.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		logger.L().Warn().Msg("REDIS_ADDR is not set, using in-memory pending flows")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return client, nil
}

func valueOrDefault(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
