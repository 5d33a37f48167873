package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"reelroom/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	minPasswordLength = 8
)

// CreateUserParams captures the attributes that can be set when creating a user.
type CreateUserParams struct {
	DisplayName string
	Email       string
	Password    string
	SelfSignup  bool
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCreateUserParams(params CreateUserParams) (CreateUserParams, error) {
	params.DisplayName = strings.TrimSpace(params.DisplayName)
	params.Email = normalizeEmail(params.Email)
	if params.DisplayName == "" {
		return params, errors.New("display name is required")
	}
	if params.Email == "" || !strings.Contains(params.Email, "@") {
		return params, errors.New("a valid email is required")
	}
	if len(params.Password) < minPasswordLength {
		return params, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return params, nil
}

// CreateUser registers a new account with a hashed password. Emails are
// unique, compared case-insensitively.
func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	params, err := validateCreateUserParams(params)
	if err != nil {
		return models.User{}, err
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Users {
		if normalizeEmail(existing.Email) == params.Email {
			return models.User{}, ErrEmailInUse
		}
	}

	user := models.User{
		ID:           uuid.NewString(),
		DisplayName:  params.DisplayName,
		Email:        params.Email,
		PasswordHash: hashed,
		SelfSignup:   params.SelfSignup,
		CreatedAt:    s.now(),
	}

	updated := cloneDataset(s.data)
	updated.Users[user.ID] = user
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.data = updated

	return user, nil
}

// AuthenticateUser verifies credentials and returns the matching user on success.
func (s *Storage) AuthenticateUser(email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, errors.New("password is required")
	}
	user, ok := s.FindUserByEmail(email)
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
func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByEmail fetches a user by email, compared case-insensitively.
func (s *Storage) FindUserByEmail(email string) (models.User, bool) {
	normalized := normalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data.Users {
		if normalizeEmail(user.Email) == normalized {
			return user, true
		}
	}
	return models.User{}, false
}

// ListUsers returns all accounts ordered by creation time.
func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encodedHash, candidate string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return fmt.Errorf("verify password: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return fmt.Errorf("verify password: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("verify password: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("verify password: decode salt: %w", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("verify password: decode hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
