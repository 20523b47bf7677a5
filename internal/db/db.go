package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-reservation-backend/config"
	"hotel-reservation-backend/internal/model"
)

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		&model.RoomClass{},
		&model.Benefit{},
		&model.Room{},
		&model.Client{},
		&model.Reservation{},
		&model.Payment{},
		&model.Scheduling{},
		&model.ScheduledJob{},
		&model.PushSubscription{},
	}
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := open(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	lifetime := time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute
	if cfg.Driver == "sqlite" {
		// One writer, kept open: shared-cache memory databases vanish with
		// their last connection.
		maxOpen, maxIdle, lifetime = 1, 1, 0
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.Driver == "postgres" && cfg.EnableExclusion {
		log.Println("Exclusion constraint is enabled, applying PostgreSQL-specific DDL...")
		if err := applyExclusionDDL(db); err != nil {
			log.Printf("Warning: failed to apply exclusion DDL: %v. Continuing with row locks only.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

func open(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// applyExclusionDDL makes overlapping Active or Scheduled stays on one room
// impossible at the storage level.
func applyExclusionDDL(db *gorm.DB) error {
	var exists bool
	if err := db.Raw("SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)", "reservations_no_overlap").
		Scan(&exists).Error; err != nil {
		return fmt.Errorf("constraint lookup failed: %w", err)
	}
	if exists {
		return nil
	}

	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",
		"ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap " +
			"EXCLUDE USING GIST (room_id WITH =, daterange(check_in, check_out, '[)') WITH &&) " +
			"WHERE (status IN ('A', 'S'));",
	}
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
