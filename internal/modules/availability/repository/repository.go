package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"skippy.dog/server/internal/model"
)

type ListFilter struct {
	PostType string
	City     string
	Limit    int
	Offset   int
}

type AvailabilityRepository interface {
	Create(ctx context.Context, post *model.Availability) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Availability, error)
	List(ctx context.Context, filter ListFilter) ([]model.Availability, error)
	Update(ctx context.Context, post *model.Availability) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type availabilityRepository struct {
	db *gorm.DB
}

func NewAvailabilityRepository(db *gorm.DB) AvailabilityRepository {
	return &availabilityRepository{db: db}
}

func (r *availabilityRepository) Create(ctx context.Context, post *model.Availability) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *availabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Availability, error) {
	var post model.Availability
	err := r.db.WithContext(ctx).
		Preload("User.Profile").
		First(&post, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *availabilityRepository) List(ctx context.Context, filter ListFilter) ([]model.Availability, error) {
	query := r.db.WithContext(ctx).Preload("User.Profile").Order("created_at desc")

	if filter.PostType != "" {
		query = query.Where("post_type = ?", filter.PostType)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var posts []model.Availability
	err := query.Find(&posts).Error
	return posts, err
}

func (r *availabilityRepository) Update(ctx context.Context, post *model.Availability) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *availabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Availability{}, "id = ?", id).Error
}
