package search

import (
	"encoding/json"
	"html"
	"log"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"skippy.dog/server/internal/model"
)

type Service interface {
	IndexProfile(profile *model.Profile) error
	DeleteProfile(id string) error
	IndexAvailability(post *model.Availability) error
	DeleteAvailability(id string) error
	SearchProfiles(query string, limit int64) ([]ProfileDoc, error)
	SearchAvailability(query, postType, city string, limit int64) ([]AvailabilityDoc, error)
}

type meiliService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewService(client meilisearch.ServiceManager) Service {
	s := &meiliService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliService) initIndexes() {
	availabilityFilterable := []string{"post_type", "city"}
	filterableInterface := make([]any, len(availabilityFilterable))
	for i, v := range availabilityFilterable {
		filterableInterface[i] = v
	}
	_, err := s.client.Index("availability").UpdateFilterableAttributes(&filterableInterface)
	if err != nil {
		log.Printf("Failed to update availability filterable attributes: %v", err)
	}

	availabilitySortable := []string{"created_at", "starts_at"}
	_, err = s.client.Index("availability").UpdateSortableAttributes(&availabilitySortable)
	if err != nil {
		log.Printf("Failed to update availability sortable attributes: %v", err)
	}

	profileFilterable := []string{"city"}
	profileFilterableInterface := make([]any, len(profileFilterable))
	for i, v := range profileFilterable {
		profileFilterableInterface[i] = v
	}
	_, err = s.client.Index("profiles").UpdateFilterableAttributes(&profileFilterableInterface)
	if err != nil {
		log.Printf("Failed to update profiles filterable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type ProfileDoc struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	City        string `json:"city"`
	Bio         string `json:"bio"`
	DogName     string `json:"dog_name"`
	DogBreed    string `json:"dog_breed"`
	PhotoURL    string `json:"photo_url"`
}

type AvailabilityDoc struct {
	ID          string `json:"id"`
	PostType    string `json:"post_type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	City        string `json:"city"`
	StartsAt    int64  `json:"starts_at"`
	CreatedAt   int64  `json:"created_at"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
}

func (s *meiliService) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)
	cleanText = strings.Join(strings.Fields(cleanText), " ")

	return cleanText
}

func (s *meiliService) IndexProfile(profile *model.Profile) error {
	doc := ProfileDoc{
		ID:          profile.UserID.String(),
		DisplayName: profile.DisplayName(),
		City:        getStringOrEmpty(profile.City),
		Bio:         s.cleanContentForIndex(getStringOrEmpty(profile.Bio)),
		DogName:     getStringOrEmpty(profile.DogName),
		DogBreed:    getStringOrEmpty(profile.DogBreed),
		PhotoURL:    getStringOrEmpty(profile.PhotoURL),
	}

	task, err := s.client.Index("profiles").AddDocuments([]ProfileDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed profile %s, task id: %d", doc.ID, task.TaskUID)
	return nil
}

func (s *meiliService) DeleteProfile(id string) error {
	_, err := s.client.Index("profiles").DeleteDocument(id)
	return err
}

func (s *meiliService) IndexAvailability(post *model.Availability) error {
	doc := AvailabilityDoc{
		ID:          post.ID.String(),
		PostType:    post.PostType,
		Title:       post.Title,
		Description: s.cleanContentForIndex(getStringOrEmpty(post.Description)),
		City:        getStringOrEmpty(post.City),
		CreatedAt:   post.CreatedAt.Unix(),
		UserID:      post.UserID.String(),
	}
	if post.StartsAt != nil {
		doc.StartsAt = post.StartsAt.Unix()
	}
	if post.User != nil && post.User.Profile != nil {
		doc.UserName = post.User.Profile.DisplayName()
	}

	task, err := s.client.Index("availability").AddDocuments([]AvailabilityDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed availability %s, task id: %d", doc.ID, task.TaskUID)
	return nil
}

func (s *meiliService) DeleteAvailability(id string) error {
	_, err := s.client.Index("availability").DeleteDocument(id)
	return err
}

func (s *meiliService) SearchProfiles(query string, limit int64) ([]ProfileDoc, error) {
	if limit <= 0 {
		limit = 20
	}

	resp, err := s.client.Index("profiles").Search(query, &meilisearch.SearchRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return decodeHits[ProfileDoc](resp.Hits)
}

func (s *meiliService) SearchAvailability(query, postType, city string, limit int64) ([]AvailabilityDoc, error) {
	if limit <= 0 {
		limit = 20
	}

	var filters []string
	if postType != "" {
		filters = append(filters, "post_type = '"+postType+"'")
	}
	if city != "" {
		filters = append(filters, "city = '"+strings.ReplaceAll(city, "'", "")+"'")
	}

	req := &meilisearch.SearchRequest{
		Limit: limit,
		Sort:  []string{"created_at:desc"},
	}
	if len(filters) > 0 {
		req.Filter = strings.Join(filters, " AND ")
	}

	resp, err := s.client.Index("availability").Search(query, req)
	if err != nil {
		return nil, err
	}
	return decodeHits[AvailabilityDoc](resp.Hits)
}

func decodeHits[T any](hits meilisearch.Hits) ([]T, error) {
	out := make([]T, 0, len(hits))
	for _, hit := range hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func getStringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
