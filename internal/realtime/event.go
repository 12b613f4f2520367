package realtime

import (
	"fmt"

	"github.com/google/uuid"
	"skippy.dog/server/internal/model"
)

const (
	EventMessageInsert = "message.insert"
	EventMessageUpdate = "message.update"
)

// MessageEvent is the wire payload pushed to clients when a message row is
// inserted or its read flag changes. WasRead carries the previous read flag so
// clients can tell a false→true transition apart from a no-op update.
type MessageEvent struct {
	Kind    string        `json:"kind"`
	Message model.Message `json:"message"`
	WasRead bool          `json:"was_read,omitempty"`
}

// UserChannel is the redis pub/sub channel carrying every message event that
// involves the given user, as sender or recipient.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("messages:user:%s", userID.String())
}
