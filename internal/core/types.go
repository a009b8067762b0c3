package core

import (
	"fmt"
	"unicode/utf8"

	"subjectchat/internal/provider"
)

const (
	defaultMaxTokens   = 512
	minMaxTokens       = 64
	maxMaxTokens       = 4096
	defaultTemperature = 0.4
	maxTemperature     = 2.0
	maxContentLength   = 20000
	maxSuggestions     = 3
)

type ChatMessage struct {
	Role    string `json:"role"` // system, user or assistant
	Content string `json:"content"`
}

// CustomSubjectSpec is an inline subject descriptor supplied directly in a
// chat request, used as-is without any persistence lookup.
type CustomSubjectSpec struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	TeachingStyle string `json:"teaching_style,omitempty"`
}

// ChatRequest carries a subject reference (id or inline descriptor) and the
// ordered message history. The core never reorders the history.
type ChatRequest struct {
	SubjectID     string             `json:"subject_id,omitempty"`
	CustomSubject *CustomSubjectSpec `json:"custom_subject,omitempty"`
	Messages      []ChatMessage      `json:"messages"`
	MaxTokens     *int               `json:"max_tokens,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
}

func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case "system", "user", "assistant":
		default:
			return fmt.Errorf("messages[%d].role must be system, user or assistant", i)
		}
		if msg.Content == "" {
			return fmt.Errorf("messages[%d].content must not be empty", i)
		}
		if utf8.RuneCountInString(msg.Content) > maxContentLength {
			return fmt.Errorf("messages[%d].content exceeds %d characters", i, maxContentLength)
		}
	}
	if r.CustomSubject != nil && r.CustomSubject.Name == "" {
		return fmt.Errorf("custom_subject.name is required")
	}
	if r.MaxTokens != nil && (*r.MaxTokens < minMaxTokens || *r.MaxTokens > maxMaxTokens) {
		return fmt.Errorf("max_tokens must be between %d and %d", minMaxTokens, maxMaxTokens)
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > maxTemperature) {
		return fmt.Errorf("temperature must be between 0.0 and %.1f", maxTemperature)
	}
	return nil
}

func (r *ChatRequest) maxTokens() int {
	if r.MaxTokens != nil {
		return *r.MaxTokens
	}
	return defaultMaxTokens
}

func (r *ChatRequest) temperature() float64 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return defaultTemperature
}

type SuggestedQuestion struct {
	Text string `json:"text"`
}

type ChatResponse struct {
	Assistant          ChatMessage         `json:"assistant"`
	Model              string              `json:"model"`
	Stub               bool                `json:"stub"`
	SuggestedQuestions []SuggestedQuestion `json:"suggested_questions,omitempty"`
}

// SubjectInfo is one entry of the subject listing.
type SubjectInfo struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	ConversationCount int    `json:"conversation_count"`
	IsCustom          bool   `json:"is_custom"`
}

type NextQuestion struct {
	SubjectID    string `json:"subject_id"`
	QuestionText string `json:"question_text"`
	Rationale    string `json:"rationale"`
	Stub         bool   `json:"stub"`
}

// SubjectNotes are model-generated study notes for one subject's saved
// conversations.
type SubjectNotes struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Notes       string `json:"notes"`
}

func toProviderMessages(messages []ChatMessage) []provider.Message {
	out := make([]provider.Message, len(messages))
	for i, msg := range messages {
		out[i] = provider.Message{Role: msg.Role, Content: msg.Content}
	}
	return out
}

// lastUserContent returns the content of the most recent user message, or ""
// when the history has none.
func lastUserContent(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
