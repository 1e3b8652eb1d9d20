package helper

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection parameters for the postgres instance.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	Schema   string
}

// NewDatabaseConfiguration builds a configuration from environment variables.
// A .env file is loaded if present. Required variables: POSTCARD_DB_HOST,
// POSTCARD_DB_PORT, POSTCARD_DB_DATABASE, POSTCARD_DB_USERNAME,
// POSTCARD_DB_PASSWORD. POSTCARD_DB_SCHEMA defaults to public.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("POSTCARD_DB_HOST"),
		Port:     os.Getenv("POSTCARD_DB_PORT"),
		Name:     os.Getenv("POSTCARD_DB_DATABASE"),
		Username: os.Getenv("POSTCARD_DB_USERNAME"),
		Password: os.Getenv("POSTCARD_DB_PASSWORD"),
		Schema:   os.Getenv("POSTCARD_DB_SCHEMA"),
	}
	if config.Schema == "" {
		config.Schema = "public"
	}

	if config.Host == "" || config.Port == "" || config.Name == "" || config.Username == "" || config.Password == "" {
		return nil, fmt.Errorf("missing database configuration, required envs: POSTCARD_DB_HOST, POSTCARD_DB_PORT, POSTCARD_DB_DATABASE, POSTCARD_DB_USERNAME, POSTCARD_DB_PASSWORD")
	}

	return config, nil
}

// ConnectionString returns the lib/pq connection string for the configuration.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.Username, c.Password, c.Host, c.Port, c.Name, c.Schema,
	)
}

// Database wraps the sql connection together with the service logger.
type Database struct {
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a postgres connection for the given service name.
// It panics if the database is unreachable, matching lifecycle expectations
// of the callers (the process cannot do anything useful without its store).
func NewDatabase(service string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		log.Panicf("error opening database for %s: %v", service, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Panicf("error connecting to database for %s: %v", service, err)
	}

	logger.Info("Connected to database", slog.String("service", service), slog.String("host", config.Host))

	return &Database{
		Instance: db,
		Logger:   logger,
	}
}

// Close closes the underlying sql connection.
func (d *Database) Close() error {
	if d.Instance != nil {
		return d.Instance.Close()
	}
	return nil
}

// NewTestDatabase opens a connection with a discard-style logger for tests.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewDatabase("test", config, logger)
}

// SetTestDatabaseConfigEnvs points the database configuration envs at the
// test container listening on the given port.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("POSTCARD_DB_HOST", "localhost")
	t.Setenv("POSTCARD_DB_PORT", port)
	t.Setenv("POSTCARD_DB_DATABASE", testDatabaseName)
	t.Setenv("POSTCARD_DB_USERNAME", testDatabaseUser)
	t.Setenv("POSTCARD_DB_PASSWORD", testDatabasePassword)
	t.Setenv("POSTCARD_DB_SCHEMA", "public")
}
