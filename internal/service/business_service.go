package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brandforge/contentpilot/internal/domain"
	"github.com/brandforge/contentpilot/internal/repository"
	"github.com/brandforge/contentpilot/internal/session"
	"github.com/brandforge/contentpilot/pkg/events"
	"github.com/brandforge/contentpilot/pkg/logger"
)

type BusinessService interface {
	Create(ctx context.Context, req *domain.CreateBusinessRequest) (*domain.Business, error)
	List(ctx context.Context, userID string) ([]domain.Business, error)
	Selected(ctx context.Context, userID string) (string, error)
}

type businessService struct {
	businessRepo repository.BusinessRepository
	session      *session.Manager
	publisher    events.Publisher
}

func NewBusinessService(
	businessRepo repository.BusinessRepository,
	sess *session.Manager,
	publisher events.Publisher,
) BusinessService {
	return &businessService{
		businessRepo: businessRepo,
		session:      sess,
		publisher:    publisher,
	}
}

func (s *businessService) Create(ctx context.Context, req *domain.CreateBusinessRequest) (*domain.Business, error) {
	user := s.session.User()
	if s.session.State() != session.Authenticated || user == nil {
		return nil, domain.ErrUnauthorized
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	business := &domain.Business{
		ID:                 uuid.NewString(),
		UserID:             user.ID,
		Name:               req.Name,
		Logo:               req.Logo,
		Description:        req.Description,
		Industry:           req.Industry,
		AudienceReach:      req.AudienceReach,
		Region:             req.Region,
		CommunicationStyle: req.CommunicationStyle,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.businessRepo.Append(ctx, business); err != nil {
		return nil, fmt.Errorf("failed to save business: %w", err)
	}
	if err := s.businessRepo.SelectBusiness(ctx, user.ID, business.ID); err != nil {
		logger.WarnContext(ctx, "Failed to persist selected business", "error", err, "business_id", business.ID)
	}

	if err := s.publisher.Publish(ctx, events.BusinessCreated, events.BusinessCreatedEvent{
		BusinessID: business.ID,
		UserID:     business.UserID,
		Name:       business.Name,
		Industry:   business.Industry,
		CreatedAt:  business.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish business event", "error", err)
	}

	return business, nil
}

func (s *businessService) List(ctx context.Context, userID string) ([]domain.Business, error) {
	businesses, err := s.businessRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	return businesses, nil
}

func (s *businessService) Selected(ctx context.Context, userID string) (string, error) {
	return s.businessRepo.SelectedBusiness(ctx, userID)
}
