package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gearguard-backend/config"
	"gearguard-backend/internal/db"
)

// Primary is an opened primary backend. DB is set for the relational
// drivers only.
type Primary struct {
	Store Store
	DB    *gorm.DB
	close func(context.Context) error
}

// Close releases the backend's connections.
func (p *Primary) Close(ctx context.Context) error {
	if p == nil || p.close == nil {
		return nil
	}
	return p.close(ctx)
}

// OpenPrimary connects the configured primary backend without waiting for
// it to be reachable. The "none" driver returns a nil Primary.
func OpenPrimary(ctx context.Context, cfg *config.PrimaryConfig, log *zap.Logger) (*Primary, error) {
	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverPostgres, config.DriverSQLite:
		gdb, err := db.Init(cfg, log)
		if err != nil {
			return nil, err
		}
		return &Primary{
			Store: NewGormStore(gdb, cfg.Driver),
			DB:    gdb,
			close: func(context.Context) error {
				sqlDB, err := gdb.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		}, nil
	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Primary{
			Store: NewMongoStore(client.Database(cfg.Database)),
			close: client.Disconnect,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported primary driver %q", cfg.Driver)
	}
}
