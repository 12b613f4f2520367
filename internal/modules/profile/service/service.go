package service

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"skippy.dog/server/internal/model"
	"skippy.dog/server/internal/modules/profile/dto"
	userrepo "skippy.dog/server/internal/modules/user/repository"
	"skippy.dog/server/internal/search"
	"skippy.dog/server/pkg/apperror"
	"skippy.dog/server/pkg/storage"
)

type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput) (*model.Profile, error)
	UploadPhoto(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string) (*model.Profile, error)
	List(ctx context.Context, limit, offset int) ([]model.Profile, error)
	Search(ctx context.Context, query string, limit int64) ([]search.ProfileDoc, error)
}

type profileService struct {
	users     userrepo.UserRepository
	storage   storage.ImageStorage
	search    search.Service
	sanitizer *bluemonday.Policy
}

func NewProfileService(users userrepo.UserRepository, imageStorage storage.ImageStorage, searchService search.Service) ProfileService {
	return &profileService{
		users:     users,
		storage:   imageStorage,
		search:    searchService,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if user.Profile == nil {
		return nil, apperror.ErrNotFound
	}
	return user.Profile, nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput) (*model.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.FirstName = input.FirstName
	profile.LastName = input.LastName
	profile.City = input.City
	profile.DogName = input.DogName
	profile.DogBreed = input.DogBreed
	if input.Bio != nil {
		clean := s.sanitizer.Sanitize(*input.Bio)
		profile.Bio = &clean
	} else {
		profile.Bio = nil
	}

	if err := s.users.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.reindex(profile)
	return profile, nil
}

func (s *profileService) UploadPhoto(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string) (*model.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadImage(ctx, r, "profiles", fileName)
	if err != nil {
		return nil, err
	}

	oldURL := profile.PhotoURL
	profile.PhotoURL = &url
	if err := s.users.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	if oldURL != nil && *oldURL != url {
		if err := s.storage.DeleteImage(ctx, *oldURL); err != nil {
			log.Printf("[profile] failed to delete old photo: %v", err)
		}
	}

	s.reindex(profile)
	return profile, nil
}

func (s *profileService) List(ctx context.Context, limit, offset int) ([]model.Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.users.ListProfiles(ctx, limit, offset)
}

func (s *profileService) Search(ctx context.Context, query string, limit int64) ([]search.ProfileDoc, error) {
	return s.search.SearchProfiles(query, limit)
}

func (s *profileService) reindex(profile *model.Profile) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexProfile(profile); err != nil {
		log.Printf("[profile] failed to index profile %s: %v", profile.UserID, err)
	}
}
