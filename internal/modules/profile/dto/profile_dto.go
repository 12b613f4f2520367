package dto

import (
	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
)

type UpdateProfileInput struct {
	FirstName string  `json:"first_name" binding:"required,max=100"`
	LastName  string  `json:"last_name" binding:"max=100"`
	Bio       *string `json:"bio"`
	City      *string `json:"city" binding:"omitempty,max=100"`
	DogName   *string `json:"dog_name" binding:"omitempty,max=100"`
	DogBreed  *string `json:"dog_breed" binding:"omitempty,max=100"`
}

type ProfileResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Bio         *string   `json:"bio,omitempty"`
	City        *string   `json:"city,omitempty"`
	PhotoURL    *string   `json:"photo_url,omitempty"`
	DogName     *string   `json:"dog_name,omitempty"`
	DogBreed    *string   `json:"dog_breed,omitempty"`
}

func ToProfileResponse(p *model.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:      p.UserID,
		DisplayName: p.DisplayName(),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Bio:         p.Bio,
		City:        p.City,
		PhotoURL:    p.PhotoURL,
		DogName:     p.DogName,
		DogBreed:    p.DogBreed,
	}
}
