package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, role, hashed_password, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Email, user.FullName, user.Role, user.HashedPassword, user.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Info("email already registered", slog.String("user_id", user.ID.String()))
			return MapError(err)
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	log.Info("user created",
		slog.String("user_id", user.ID.String()),
		slog.String("role", user.Role))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, full_name, role, hashed_password, created_at
		FROM users WHERE id = $1
	`, id)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, full_name, role, hashed_password, created_at
		FROM users WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *PostgresUserStore) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var u domain.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.FullName, &u.Role, &u.HashedPassword, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return &u, nil
}

// Exists implements store.UserStore.Exists
func (s *PostgresUserStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
}

// ExistsWithRole implements store.UserStore.ExistsWithRole
func (s *PostgresUserStore) ExistsWithRole(ctx context.Context, role string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, role)
}

func (s *PostgresUserStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to check user existence",
			slog.String("error", err.Error()))
		return false, MapError(err)
	}
	return ok, nil
}

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:     tx,
		logger: s.logger,
	}
}
