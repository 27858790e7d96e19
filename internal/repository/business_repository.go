package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brandforge/contentpilot/internal/domain"
	"github.com/brandforge/contentpilot/internal/store"
	"github.com/brandforge/contentpilot/pkg/logger"
)

type BusinessRepository interface {
	Append(ctx context.Context, business *domain.Business) error
	ListByUser(ctx context.Context, userID string) ([]domain.Business, error)
	SelectBusiness(ctx context.Context, userID, businessID string) error
	SelectedBusiness(ctx context.Context, userID string) (string, error)
}

type businessRepository struct {
	store store.Store
}

func NewBusinessRepository(st store.Store) BusinessRepository {
	return &businessRepository{store: st}
}

// ListByUser returns the user's businesses in insertion order. Malformed
// stored data is treated as an empty list.
func (r *businessRepository) ListByUser(ctx context.Context, userID string) ([]domain.Business, error) {
	raw, err := r.store.Get(ctx, store.KeyBusinesses(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to read business list: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var businesses []domain.Business
	if err := json.Unmarshal(raw, &businesses); err != nil {
		logger.WarnContext(ctx, "Discarding malformed business list", "user_id", userID, "error", err)
		return nil, nil
	}
	return businesses, nil
}

func (r *businessRepository) Append(ctx context.Context, business *domain.Business) error {
	businesses, err := r.ListByUser(ctx, business.UserID)
	if err != nil {
		return err
	}
	businesses = append(businesses, *business)

	raw, err := json.Marshal(businesses)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, store.KeyBusinesses(business.UserID), raw); err != nil {
		return fmt.Errorf("failed to persist business list: %w", err)
	}
	return nil
}

func (r *businessRepository) SelectBusiness(ctx context.Context, userID, businessID string) error {
	raw, err := json.Marshal(businessID)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, store.KeySelectedBusiness(userID), raw)
}

func (r *businessRepository) SelectedBusiness(ctx context.Context, userID string) (string, error) {
	raw, err := r.store.Get(ctx, store.KeySelectedBusiness(userID))
	if err != nil || raw == nil {
		return "", err
	}

	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", nil
	}
	return id, nil
}
