package models

import "time"

// Chat author constants. Provider errors are written into the transcript as
// assistant-authored messages, so the client never sees a transport failure.
const (
	ChatAuthorUser      = "user"
	ChatAuthorAssistant = "assistant"
)

// ChatMessage is one persisted turn of the counselor transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
