package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const migrationsTable = "filetolink_migrations"

// Options configures the file store.
type Options struct {
	DSN string
	// Schema holds the files and settings tables. Default: public
	Schema string
	// MaxConns caps the pool. Zero keeps the pgx default.
	MaxConns int32
}

// PGRepo stores file records and settings in Postgres.
type PGRepo struct {
	logger *log.Logger
	pool   *pgxpool.Pool
	schema string
}

func NewPGRepo(ctx context.Context, logger *log.Logger, opts Options) (*PGRepo, error) {
	if opts.Schema == "" {
		opts.Schema = "public"
	}

	connCfg, err := pgx.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if err := runMigrations(ctx, connCfg, opts.Schema, logger); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	logger.Printf("pool ready (schema=%s max_conns=%d)", opts.Schema, cfg.MaxConns)

	return &PGRepo{pool: pool, schema: opts.Schema, logger: logger}, nil
}

func (r *PGRepo) Close() {
	r.logger.Println("closing pool...")
	r.pool.Close()
}

// ---- Migrations ----

//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS

// runMigrations creates schema if needed and applies the embedded migrations
// inside it, over a short-lived database/sql connection.
func runMigrations(ctx context.Context, connCfg *pgx.ConnConfig, schema string, logger *log.Logger) error {
	connCfg = connCfg.Copy()
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = map[string]string{}
	}
	connCfg.RuntimeParams["search_path"] = schema

	sqldb := stdlib.OpenDB(*connCfg)
	defer sqldb.Close()

	if schema != "public" {
		if _, err := sqldb.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}

	driver, err := postgres.WithInstance(sqldb, &postgres.Config{
		SchemaName:      schema,
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}
	src, err := iofs.New(EmbeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Printf("schema %s is up to date", schema)
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	default:
		version, _, _ := m.Version()
		logger.Printf("schema %s migrated to version %d", schema, version)
	}
	return nil
}

// ---- Helpers ----

// Ping backs /v1/readyz; only failures are logged.
func (r *PGRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		r.logger.Printf("ping failed: %v", err)
		return err
	}
	return nil
}

func (r *PGRepo) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PGRepo) table(name string) string {
	return pgx.Identifier{r.schema, name}.Sanitize()
}

func (r *PGRepo) logSQL(op, sqlStr string, args []any) {
	r.logger.Printf("%s sql=%q args=%d", op, strings.Join(strings.Fields(sqlStr), " "), len(args))
}
