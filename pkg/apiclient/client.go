// Package apiclient is the Go client for the Skippy HTTP API. Client satisfies
// msgsync.Store and Feed satisfies msgsync.Feed, so a terminal or bot client
// can run the same sync machinery the web client does.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
)

type Client struct {
	baseURL  string
	token    string
	viewerID uuid.UUID
	http     *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login authenticates against the API and returns a client carrying the
// session token.
func Login(ctx context.Context, baseURL, email, password string) (*Client, uuid.UUID, error) {
	c := New(baseURL, "")

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, uuid.Nil, err
	}

	c.token = resp.Token
	c.viewerID = resp.User.ID
	return c, resp.User.ID, nil
}

func (c *Client) Token() string { return c.token }

// UnreadMessages ignores the recipient argument: the session token already
// scopes the query to the signed-in user.
func (c *Client) UnreadMessages(ctx context.Context, recipientID uuid.UUID) ([]model.Message, error) {
	var messages []model.Message
	err := c.do(ctx, http.MethodGet, "/api/messages/unread", nil, &messages)
	return messages, err
}

// MessagesBetween resolves which participant is not the signed-in viewer and
// queries the timeline endpoint with that id; the endpoint is viewer-relative.
func (c *Client) MessagesBetween(ctx context.Context, participant1, participant2 uuid.UUID) ([]model.Message, error) {
	other := participant2
	if other == c.viewerID {
		other = participant1
	}
	var messages []model.Message
	err := c.do(ctx, http.MethodGet, "/api/messages/with/"+other.String(), nil, &messages)
	return messages, err
}

func (c *Client) MarkConversationRead(ctx context.Context, conversationID, recipientID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/conversations/"+conversationID.String()+"/read", nil, nil)
}

func (c *Client) MarkSenderRead(ctx context.Context, senderID, recipientID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/messages/read-from/"+senderID.String(), nil, nil)
}

func (c *Client) MarkMessageRead(ctx context.Context, messageID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/messages/"+messageID.String()+"/read", nil, nil)
}

func (c *Client) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/messages/read-all", nil, nil)
}

func (c *Client) SendMessage(ctx context.Context, recipientID uuid.UUID, availabilityID *uuid.UUID, body string) (model.Message, error) {
	payload := map[string]any{
		"recipient_id": recipientID,
		"body":         body,
	}
	if availabilityID != nil {
		payload["availability_id"] = *availabilityID
	}

	var msg model.Message
	err := c.do(ctx, http.MethodPost, "/api/messages", payload, &msg)
	return msg, err
}

// Conversations returns the viewer's conversation list as served by the API.
func (c *Client) Conversations(ctx context.Context) ([]ConversationView, error) {
	var views []ConversationView
	err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &views)
	return views, err
}

type ConversationView struct {
	ID               uuid.UUID `json:"id"`
	OtherUserID      uuid.UUID `json:"other_user_id"`
	OtherDisplayName string    `json:"other_display_name"`
	OtherPhotoURL    *string   `json:"other_photo_url,omitempty"`
	LastMessageAt    time.Time `json:"last_message_at"`
	UnreadCount      int       `json:"unread_count"`
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
