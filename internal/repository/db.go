package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/RealZimboGuy/graphflow/internal/config"
	"github.com/RealZimboGuy/graphflow/internal/migrations"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase migrates and opens the SQL database selected by
// GFLOW_DATABASE_TYPE.
func OpenDatabase() (*sql.DB, error) {
	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)
	switch databaseType {
	case config.DATABASE_TYPE_POSTGRES:
		return openPostgres(config.GetSystemSettingString(config.DATABASE_URL))
	case config.DATABASE_TYPE_SQLLITE:
		return OpenSqlLite(config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME))
	case config.DATABASE_TYPE_MYSQL:
		return openMysql(config.GetSystemSettingString(config.DATABASE_URL))
	}
	return nil, fmt.Errorf("GFLOW_DATABASE_TYPE must be one of MEMORY, REDIS, POSTGRES, MYSQL, SQLLITE, got %q", databaseType)
}

func openPostgres(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, errors.New("GFLOW_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Running migrations", "database", "postgres")
	if err := RunMigrations("postgres", dbURL); err != nil {
		return nil, fmt.Errorf("postgres migration failed: %w", err)
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	configurePool(db)
	return db, db.Ping()
}

// OpenSqlLite migrates and opens the SQLite database at fileName.
func OpenSqlLite(fileName string) (*sql.DB, error) {
	if fileName == "" {
		return nil, errors.New("GFLOW_DATABASE_SQLLITE_FILE_NAME must be set")
	}
	slog.Info("Running migrations", "database", "sqlite", "file", fileName)
	if err := RunMigrations("sqllite3", "sqlite3://"+fileName); err != nil {
		return nil, fmt.Errorf("sqlite migration failed: %w", err)
	}
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers; one connection avoids "database is locked"
	db.SetMaxOpenConns(1)
	return db, db.Ping()
}

func openMysql(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, errors.New("GFLOW_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		return nil, errors.New("GFLOW_DATABASE_URL must contain 'parseTime=true' for MySQL")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		return nil, errors.New("GFLOW_DATABASE_URL must start with 'mysql://' for MySQL")
	}
	slog.Info("Running migrations", "database", "mysql")
	if err := RunMigrations("mysql", dbURL); err != nil {
		return nil, fmt.Errorf("mysql migration failed: %w", err)
	}
	//remove mysql:// prefix from url
	db, err := sql.Open("mysql", strings.Replace(dbURL, "mysql://", "", 1))
	if err != nil {
		return nil, err
	}
	configurePool(db)
	return db, db.Ping()
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)
}

// RunMigrations applies the embedded migrations found under migrationsPath.
func RunMigrations(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
