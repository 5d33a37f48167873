package storage

import (
	"context"

	"reelroom/internal/models"
)

// Repository exposes the datastore operations required by the API handlers:
// account management for the identity provider and the watch-progress store.
type Repository interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByEmail(email string) (models.User, bool)
	ListUsers() []models.User

	// GetWatchProgress reports the last stored playback position for the
	// pair, defaulting to zero when the pair was never written.
	GetWatchProgress(userID, itemID string) (int64, error)
	// ListWatchProgress returns every stored position for the user keyed by
	// item ID, letting catalog listings resolve resume times in one call.
	ListWatchProgress(userID string) (map[string]int64, error)
	// UpsertWatchProgress stores the position for the pair atomically: the
	// last writer for a given pair wins and readers never observe a
	// half-written record.
	UpsertWatchProgress(userID, itemID string, positionSeconds int64) error
}

var (
	_ Repository = (*Storage)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
