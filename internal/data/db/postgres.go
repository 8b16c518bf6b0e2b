package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/syncraft-backend/internal/pkg/clock"
	"github.com/yungbote/syncraft-backend/internal/pkg/envutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Service owns the process-wide gorm handle.
type Service struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

// NewFromEnv opens the store selected by DB_DRIVER (postgres by default).
func NewFromEnv(logg *logger.Logger) (*Service, error) {
	driver := strings.ToLower(strings.TrimSpace(envutil.GetEnv("DB_DRIVER", DriverPostgres, logg)))
	switch driver {
	case DriverSQLite:
		return NewSQLiteService(logg, envutil.GetEnv("SQLITE_PATH", "syncraft.db", logg))
	case DriverPostgres, "":
		return NewPostgresService(logg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

func NewPostgresService(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "PostgresService")

	dsn := strings.TrimSpace(envutil.GetEnv("DATABASE_URL", "", logg))
	if dsn == "" {
		postgresHost := envutil.GetEnv("POSTGRES_HOST", "localhost", logg)
		postgresPort := envutil.GetEnv("POSTGRES_PORT", "5432", logg)
		postgresUser := envutil.GetEnv("POSTGRES_USER", "postgres", logg)
		postgresPassword := envutil.GetEnv("POSTGRES_PASSWORD", "", logg)
		postgresName := envutil.GetEnv("POSTGRES_NAME", "syncraft", logg)
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			postgresUser,
			postgresPassword,
			postgresHost,
			postgresPort,
			postgresName,
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(envutil.GetEnvAsBool("DB_LOG_SQL", false, logg)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(envutil.GetEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 20, logg))
		sqlDB.SetMaxIdleConns(envutil.GetEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5, logg))
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return &Service{db: db, driver: DriverPostgres, log: serviceLog}, nil
}

// NewSQLiteService opens a sqlite database. path may be a file path or a
// "file:" URI (e.g. an in-memory database).
func NewSQLiteService(logg *logger.Logger, path string) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")
	db, err := OpenSQLite(path, envutil.GetEnvAsBool("DB_LOG_SQL", false, logg))
	if err != nil {
		return nil, err
	}
	return &Service{db: db, driver: DriverSQLite, log: serviceLog}, nil
}

// OpenSQLite opens sqlite with a single connection so that transactions
// serialize instead of failing with "database is locked".
func OpenSQLite(path string, logSQL bool) (*gorm.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing sqlite path")
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig(logSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormConfig(logSQL bool) *gorm.Config {
	level := gormLogger.Warn
	if logSQL {
		level = gormLogger.Info
	}
	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
		NowFunc:                                  clock.Now,
	}
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
