package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sevasetu/backoffice/internal/models"
	"github.com/sevasetu/backoffice/internal/storage"
	"github.com/sevasetu/backoffice/internal/storage/postgres/migrations"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.UserStore     = (*Store)(nil)
	_ storage.DonationStore = (*Store)(nil)
)

// Store provides Postgres-backed persistence for users and donations.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool and applies the embedded goose migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := migrate(ctx, databaseURL); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// migrate runs goose against a short-lived database/sql connection; pgxpool
// stays the runtime query path.
func migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
	INSERT INTO users (username, email, role, status, password_hash)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, username, email, role, status, password_hash, created_at;
	`
	row := s.pool.QueryRow(ctx, query, user.Username, user.Email, user.Role, user.Status, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.User, error) {
	const query = `
	SELECT id, username, email, role, status, password_hash, created_at
	FROM users WHERE id = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
	SELECT id, username, email, role, status, password_hash, created_at
	FROM users WHERE email = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Status, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
