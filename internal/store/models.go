package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CustomSubjectPrefix is the reserved prefix that marks a subject reference as
// a user-created record; the rest of the reference is the row's primary key.
const CustomSubjectPrefix = "custom-"

type CustomSubject struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	TeachingStyle string    `json:"teaching_style"`
	CreatedAt     time.Time `json:"created_at"`
}

// Ref returns the external subject reference for this record, e.g. "custom-5".
func (c *CustomSubject) Ref() string {
	return CustomSubjectRef(c.ID)
}

func CustomSubjectRef(pk int64) string {
	return fmt.Sprintf("%s%d", CustomSubjectPrefix, pk)
}

// ParseCustomSubjectRef extracts the primary key from a "custom-<pk>"
// reference. The second return value is false for anything else.
func ParseCustomSubjectRef(ref string) (int64, bool) {
	if !strings.HasPrefix(ref, CustomSubjectPrefix) {
		return 0, false
	}
	pk, err := strconv.ParseInt(ref[len(CustomSubjectPrefix):], 10, 64)
	if err != nil || pk <= 0 {
		return 0, false
	}
	return pk, true
}

type Conversation struct {
	ID        string    `json:"id"` // UUID
	SubjectID string    `json:"subject_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConversationSummary struct {
	Conversation
	MessageCount int `json:"message_count"`
}

type ConversationMessage struct {
	ID             string    `json:"id"` // UUID
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // system, user or assistant
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type Feedback struct {
	ID             int64     `json:"id"`
	SubjectID      string    `json:"subject_id"`
	MessageContent string    `json:"message_content"` // the assistant message being rated
	UserQuestion   string    `json:"user_question,omitempty"`
	Rating         int       `json:"rating"` // -1 dislike, 0 neutral, 1 like
	MessageIndex   int       `json:"message_index"`
	CreatedAt      time.Time `json:"created_at"`
}

type FeedbackStats struct {
	Total    int `json:"total_feedback"`
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}
