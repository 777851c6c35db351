package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gearguard-backend/config"
	"gearguard-backend/internal/logging"
	"gearguard-backend/internal/model"
)

// Init opens the relational primary database. The connection is not pinged:
// an unreachable server must not stop the process, the failover store
// serves from the fallback file until it comes back.
func Init(cfg *config.PrimaryConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(strings.TrimPrefix(cfg.DSN, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported relational driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logging.NewGormLogger(log, gormlogger.Warn),
		TranslateError:       true,
		DisableAutomaticPing: true,
		NowFunc:              func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	return db, nil
}

// Migrate creates or updates the primary schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Team{},
		&model.Equipment{},
		&model.Request{},
		&model.Identity{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// ConnectMongo builds a mongo client for the document primary. Like Init it
// does not wait for the server; operations fail over until it is reachable.
func ConnectMongo(ctx context.Context, cfg *config.PrimaryConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.DSN).
		SetMaxPoolSize(uint64(cfg.MaxOpenConns)).
		SetServerSelectionTimeout(cfg.OpTimeout).
		SetConnectTimeout(cfg.OpTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	return client, nil
}
