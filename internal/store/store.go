package store

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by every method of Unavailable. Callers treat it
// as "proceed with a degraded result" where persistence is optional, and as a
// 503 where a write genuinely requires storage.
var ErrUnavailable = errors.New("storage unavailable")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence collaborator consumed by the core. SQLiteStore is
// the real implementation; Unavailable stands in when no DATABASE_URL is
// configured, so availability is an explicit capability instead of a nil
// check scattered through the callers.
type Store interface {
	CreateCustomSubject(ctx context.Context, name, description, teachingStyle string) (*CustomSubject, error)
	GetCustomSubject(ctx context.Context, pk int64) (*CustomSubject, error)
	ListCustomSubjects(ctx context.Context) ([]CustomSubject, error)
	// DeleteCustomSubject removes the record and cascades deletion of the
	// conversations (and their messages) recorded under its subject ref.
	DeleteCustomSubject(ctx context.Context, pk int64) error

	SaveConversation(ctx context.Context, subjectID, title string, messages []ConversationMessage) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, []ConversationMessage, error)
	ListConversations(ctx context.Context, subjectID string, limit int) ([]ConversationSummary, error)
	DeleteConversation(ctx context.Context, id string) error
	SubjectConversationCounts(ctx context.Context) (map[string]int, error)

	RecordFeedback(ctx context.Context, fb *Feedback) error
	FeedbackStats(ctx context.Context, subjectID string) (FeedbackStats, error)
	ExportFeedback(ctx context.Context, subjectID string, limit int) ([]Feedback, error)

	Close() error
}

// Unavailable implements Store for deployments without a database.
type Unavailable struct{}

func NewUnavailable() Unavailable { return Unavailable{} }

func (Unavailable) CreateCustomSubject(context.Context, string, string, string) (*CustomSubject, error) {
	return nil, ErrUnavailable
}

func (Unavailable) GetCustomSubject(context.Context, int64) (*CustomSubject, error) {
	return nil, ErrUnavailable
}

func (Unavailable) ListCustomSubjects(context.Context) ([]CustomSubject, error) {
	return nil, ErrUnavailable
}

func (Unavailable) DeleteCustomSubject(context.Context, int64) error { return ErrUnavailable }

func (Unavailable) SaveConversation(context.Context, string, string, []ConversationMessage) (*Conversation, error) {
	return nil, ErrUnavailable
}

func (Unavailable) GetConversation(context.Context, string) (*Conversation, []ConversationMessage, error) {
	return nil, nil, ErrUnavailable
}

func (Unavailable) ListConversations(context.Context, string, int) ([]ConversationSummary, error) {
	return nil, ErrUnavailable
}

func (Unavailable) DeleteConversation(context.Context, string) error { return ErrUnavailable }

func (Unavailable) SubjectConversationCounts(context.Context) (map[string]int, error) {
	return nil, ErrUnavailable
}

func (Unavailable) RecordFeedback(context.Context, *Feedback) error { return ErrUnavailable }

func (Unavailable) FeedbackStats(context.Context, string) (FeedbackStats, error) {
	return FeedbackStats{}, ErrUnavailable
}

func (Unavailable) ExportFeedback(context.Context, string, int) ([]Feedback, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Close() error { return nil }
