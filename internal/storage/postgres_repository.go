package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelroom/internal/models"
)

const uniqueViolationCode = "23505"

// PostgresRepository persists accounts and watch progress in Postgres,
// allowing multiple service replicas to share state. Watch-progress writes
// use a single INSERT ... ON CONFLICT statement so concurrent updates for
// one (user, item) pair serialize inside the database.
type PostgresRepository struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	now            func() time.Time
}

// NewPostgresRepository opens a pooled Postgres connection, applies the
// schema, and returns the repository.
func NewPostgresRepository(dsn string, opts ...Option) (*PostgresRepository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolConfig.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ApplicationName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &PostgresRepository{
		pool:           pool,
		acquireTimeout: cfg.AcquireTimeout,
		now:            cfg.Clock,
	}

	ctx, cancel := repo.operationContext()
	defer cancel()
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresRepository) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.acquireTimeout)
}

// Ping verifies the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the connection pool, bounded by the provided context.
func (r *PostgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// CreateUser registers a new account, relying on the unique email index to
// reject duplicates atomically.
func (r *PostgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	params, err := validateCreateUserParams(params)
	if err != nil {
		return models.User{}, err
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		DisplayName:  params.DisplayName,
		Email:        params.Email,
		PasswordHash: hashed,
		SelfSignup:   params.SelfSignup,
		CreatedAt:    r.now(),
	}

	ctx, cancel := r.operationContext()
	defer cancel()
	_, err = r.pool.Exec(ctx, `
INSERT INTO users (id, display_name, email, password_hash, self_signup, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.SelfSignup, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return models.User{}, ErrEmailInUse
		}
		return models.User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return user, nil
}

// AuthenticateUser verifies credentials and returns the matching user on success.
func (r *PostgresRepository) AuthenticateUser(email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, errors.New("password is required")
	}
	user, ok := r.FindUserByEmail(email)
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		return models.User{}, ErrPasswordLoginUnsupported
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUser fetches a user by ID.
func (r *PostgresRepository) GetUser(id string) (models.User, bool) {
	ctx, cancel := r.operationContext()
	defer cancel()
	row := r.pool.QueryRow(ctx, `
SELECT id, display_name, email, password_hash, self_signup, created_at
FROM users
WHERE id = $1
`, id)
	return scanUser(row)
}

// FindUserByEmail fetches a user by email, compared case-insensitively.
func (r *PostgresRepository) FindUserByEmail(email string) (models.User, bool) {
	ctx, cancel := r.operationContext()
	defer cancel()
	row := r.pool.QueryRow(ctx, `
SELECT id, display_name, email, password_hash, self_signup, created_at
FROM users
WHERE lower(email) = $1
`, normalizeEmail(email))
	return scanUser(row)
}

// ListUsers returns all accounts ordered by creation time.
func (r *PostgresRepository) ListUsers() []models.User {
	ctx, cancel := r.operationContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
SELECT id, display_name, email, password_hash, self_signup, created_at
FROM users
ORDER BY created_at, id
`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.SelfSignup, &user.CreatedAt); err != nil {
			return nil
		}
		users = append(users, user)
	}
	return users
}

func scanUser(row pgx.Row) (models.User, bool) {
	var user models.User
	err := row.Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.SelfSignup, &user.CreatedAt)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

// GetWatchProgress reports the stored playback position for the pair,
// defaulting to zero when the pair was never written.
func (r *PostgresRepository) GetWatchProgress(userID, itemID string) (int64, error) {
	if err := validateProgressKey(userID, itemID); err != nil {
		return 0, err
	}
	ctx, cancel := r.operationContext()
	defer cancel()
	row := r.pool.QueryRow(ctx, `
SELECT position_seconds
FROM watch_progress
WHERE user_id = $1 AND item_id = $2
`, userID, itemID)
	var position int64
	if err := row.Scan(&position); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return position, nil
}

// ListWatchProgress returns every stored position for the user keyed by item.
func (r *PostgresRepository) ListWatchProgress(userID string) (map[string]int64, error) {
	ctx, cancel := r.operationContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
SELECT item_id, position_seconds
FROM watch_progress
WHERE user_id = $1
`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	progress := make(map[string]int64)
	for rows.Next() {
		var itemID string
		var position int64
		if err := rows.Scan(&itemID, &position); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		progress[itemID] = position
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return progress, nil
}

// UpsertWatchProgress writes the position for the pair in one atomic
// statement; no read precedes the write, so concurrent upserts cannot lose
// updates to a stale existence check.
func (r *PostgresRepository) UpsertWatchProgress(userID, itemID string, positionSeconds int64) error {
	if err := validateProgressKey(userID, itemID); err != nil {
		return err
	}
	if positionSeconds < 0 {
		return fmt.Errorf("%w: position must not be negative", ErrInvalidProgress)
	}
	ctx, cancel := r.operationContext()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
INSERT INTO watch_progress (user_id, item_id, position_seconds, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, item_id)
DO UPDATE SET position_seconds = EXCLUDED.position_seconds, updated_at = EXCLUDED.updated_at
`, userID, itemID, positionSeconds, r.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
