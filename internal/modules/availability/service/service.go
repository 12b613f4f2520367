package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"skippy.dog/server/internal/config"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/modules/availability/dto"
	"skippy.dog/server/internal/modules/availability/repository"
	"skippy.dog/server/internal/search"
	"skippy.dog/server/pkg/apperror"
	"skippy.dog/server/pkg/ratelimit"
)

type AvailabilityService interface {
	Create(ctx context.Context, userID uuid.UUID, input dto.CreateAvailabilityInput) (*model.Availability, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Availability, error)
	List(ctx context.Context, filter repository.ListFilter) ([]model.Availability, error)
	Update(ctx context.Context, userID, id uuid.UUID, input dto.UpdateAvailabilityInput) (*model.Availability, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Search(ctx context.Context, query, postType, city string, limit int64) ([]search.AvailabilityDoc, error)
}

type availabilityService struct {
	repo      repository.AvailabilityRepository
	search    search.Service
	rdb       *redis.Client
	sanitizer *bluemonday.Policy
	rateLimit time.Duration
}

func NewAvailabilityService(repo repository.AvailabilityRepository, searchService search.Service, rdb *redis.Client, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		repo:      repo,
		search:    searchService,
		rdb:       rdb,
		sanitizer: bluemonday.StrictPolicy(),
		rateLimit: cfg.RateLimitPost,
	}
}

func (s *availabilityService) Create(ctx context.Context, userID uuid.UUID, input dto.CreateAvailabilityInput) (*model.Availability, error) {
	allowed, err := ratelimit.CheckAndSet(ctx, s.rdb, userID, "create_post", s.rateLimit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.ErrRateLimitExceeded
	}

	post := &model.Availability{
		UserID:      userID,
		PostType:    input.PostType,
		Title:       s.sanitizer.Sanitize(input.Title),
		Description: s.sanitizeOptional(input.Description),
		City:        input.City,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}

	// Reload with the author preloaded so the search doc carries a name.
	created, err := s.repo.GetByID(ctx, post.ID)
	if err != nil {
		created = post
	}

	s.reindex(created)
	return created, nil
}

func (s *availabilityService) Get(ctx context.Context, id uuid.UUID) (*model.Availability, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *availabilityService) List(ctx context.Context, filter repository.ListFilter) ([]model.Availability, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

func (s *availabilityService) Update(ctx context.Context, userID, id uuid.UUID, input dto.UpdateAvailabilityInput) (*model.Availability, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, apperror.ErrForbidden
	}

	post.Title = s.sanitizer.Sanitize(input.Title)
	post.Description = s.sanitizeOptional(input.Description)
	post.City = input.City
	post.StartsAt = input.StartsAt
	post.EndsAt = input.EndsAt

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}

	s.reindex(post)
	return post, nil
}

func (s *availabilityService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return apperror.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.search != nil {
		if err := s.search.DeleteAvailability(id.String()); err != nil {
			log.Printf("[availability] failed to deindex post %s: %v", id, err)
		}
	}
	return nil
}

func (s *availabilityService) Search(ctx context.Context, query, postType, city string, limit int64) ([]search.AvailabilityDoc, error) {
	return s.search.SearchAvailability(query, postType, city, limit)
}

func (s *availabilityService) sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	clean := s.sanitizer.Sanitize(*v)
	return &clean
}

func (s *availabilityService) reindex(post *model.Availability) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexAvailability(post); err != nil {
		log.Printf("[availability] failed to index post %s: %v", post.ID, err)
	}
}
