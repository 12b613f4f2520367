package dto

import (
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
)

type CreateAvailabilityInput struct {
	PostType    string     `json:"post_type" binding:"required,oneof=walker_needed walker_offered"`
	Title       string     `json:"title" binding:"required,max=150"`
	Description *string    `json:"description"`
	City        *string    `json:"city" binding:"omitempty,max=100"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

type UpdateAvailabilityInput struct {
	Title       string     `json:"title" binding:"required,max=150"`
	Description *string    `json:"description"`
	City        *string    `json:"city" binding:"omitempty,max=100"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

type AvailabilityResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	UserName    string     `json:"user_name"`
	PostType    string     `json:"post_type"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	City        *string    `json:"city,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToAvailabilityResponse(post model.Availability) AvailabilityResponse {
	resp := AvailabilityResponse{
		ID:          post.ID,
		UserID:      post.UserID,
		UserName:    "Unknown User",
		PostType:    post.PostType,
		Title:       post.Title,
		Description: post.Description,
		City:        post.City,
		StartsAt:    post.StartsAt,
		EndsAt:      post.EndsAt,
		CreatedAt:   post.CreatedAt,
	}
	if post.User != nil && post.User.Profile != nil {
		resp.UserName = post.User.Profile.DisplayName()
	}
	return resp
}

func ToAvailabilityResponses(posts []model.Availability) []AvailabilityResponse {
	out := make([]AvailabilityResponse, len(posts))
	for i, p := range posts {
		out[i] = ToAvailabilityResponse(p)
	}
	return out
}
