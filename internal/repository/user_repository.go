package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brandforge/contentpilot/internal/domain"
	"github.com/brandforge/contentpilot/internal/store"
	"github.com/brandforge/contentpilot/pkg/logger"
)

type UserRepository interface {
	Create(ctx context.Context, email, name, username, passwordHash string, confirmed bool) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	MarkConfirmed(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) (*domain.User, error)
}

// storedUser is the persisted shape; unlike domain.User it round-trips the
// password hash.
type storedUser struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"password_hash"`
	EmailConfirmed bool      `json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *storedUser) toDomain() *domain.User {
	return &domain.User{
		ID:             s.ID,
		Email:          s.Email,
		Name:           s.Name,
		Username:       s.Username,
		PasswordHash:   s.PasswordHash,
		EmailConfirmed: s.EmailConfirmed,
		CreatedAt:      s.CreatedAt,
	}
}

type userRepository struct {
	store store.Store
}

func NewUserRepository(st store.Store) UserRepository {
	return &userRepository{store: st}
}

// load reads the registered user list. Malformed stored data is treated as
// an empty list rather than an error.
func (r *userRepository) load(ctx context.Context) ([]storedUser, error) {
	raw, err := r.store.Get(ctx, store.KeyRegisteredUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to read user list: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var users []storedUser
	if err := json.Unmarshal(raw, &users); err != nil {
		logger.WarnContext(ctx, "Discarding malformed user list", "error", err)
		return nil, nil
	}
	return users, nil
}

func (r *userRepository) save(ctx context.Context, users []storedUser) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, store.KeyRegisteredUsers, raw)
}

func (r *userRepository) Create(ctx context.Context, email, name, username, passwordHash string, confirmed bool) (*domain.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.Email == email {
			return nil, domain.ErrDuplicateUser
		}
	}

	u := storedUser{
		ID:             uuid.NewString(),
		Email:          email,
		Name:           name,
		Username:       username,
		PasswordHash:   passwordHash,
		EmailConfirmed: confirmed,
		CreatedAt:      time.Now().UTC(),
	}
	users = append(users, u)

	if err := r.save(ctx, users); err != nil {
		return nil, fmt.Errorf("failed to persist user: %w", err)
	}
	return u.toDomain(), nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			return u.toDomain(), nil
		}
	}
	return nil, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return u.toDomain(), nil
		}
	}
	return nil, nil
}

func (r *userRepository) MarkConfirmed(ctx context.Context, email string) (*domain.User, error) {
	return r.mutate(ctx, email, func(u *storedUser) {
		u.EmailConfirmed = true
	})
}

func (r *userRepository) UpdatePassword(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	return r.mutate(ctx, email, func(u *storedUser) {
		u.PasswordHash = passwordHash
	})
}

func (r *userRepository) mutate(ctx context.Context, email string, fn func(*storedUser)) (*domain.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			fn(&users[i])
			if err := r.save(ctx, users); err != nil {
				return nil, fmt.Errorf("failed to persist user update: %w", err)
			}
			return users[i].toDomain(), nil
		}
	}
	return nil, nil
}
