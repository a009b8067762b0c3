package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"subjectchat/internal/provider"
	"subjectchat/internal/store"
	"subjectchat/internal/subject"
)

// ChatService sequences the request pipeline: safety gate, subject
// resolution, prompt composition, provider dispatch, and the best-effort
// follow-up-suggestion call. It also fronts the persistence collaborator for
// the boundary layer.
type ChatService struct {
	store    store.Store
	resolver *subject.Resolver
	provider provider.Provider
	logger   *zap.Logger
}

func NewChatService(st store.Store, resolver *subject.Resolver, prov provider.Provider, logger *zap.Logger) *ChatService {
	return &ChatService{
		store:    st,
		resolver: resolver,
		provider: prov,
		logger:   logger,
	}
}

func (s *ChatService) systemPrompt(ctx context.Context, req *ChatRequest) string {
	if req.CustomSubject != nil {
		return subject.Compose(subject.FromDescriptor(
			req.CustomSubject.Name, req.CustomSubject.Description, req.CustomSubject.TeachingStyle))
	}
	return subject.Compose(s.resolver.Resolve(ctx, req.SubjectID))
}

// Chat runs one buffered request through the pipeline. A safety-gate match
// terminates it with the fixed refusal before any provider call; a provider
// failure while configured is returned as an error, never stubbed over.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	lastUser := lastUserContent(req.Messages)
	if allowed, refusal := Screen(lastUser); !allowed {
		return ChatResponse{
			Assistant: ChatMessage{Role: "assistant", Content: refusal},
			Model:     RefusalModel,
			Stub:      false,
		}, nil
	}

	prompt := s.systemPrompt(ctx, &req)
	result, err := s.provider.Complete(ctx, prompt, toProviderMessages(req.Messages), req.maxTokens(), req.temperature())
	if err != nil {
		return ChatResponse{}, fmt.Errorf("completion failed: %w", err)
	}

	resp := ChatResponse{
		Assistant: ChatMessage{Role: "assistant", Content: result.Content},
		Model:     result.Model,
		Stub:      result.Stub,
	}

	// Second, sequential provider round-trip. Suggestions are best-effort:
	// a failure here must not block the primary reply.
	if lastUser != "" {
		questions, err := s.provider.Suggest(ctx, lastUser, prompt, maxSuggestions)
		if err != nil {
			s.logger.Warn("follow-up suggestions failed", zap.Error(err))
		} else {
			for _, q := range questions {
				resp.SuggestedQuestions = append(resp.SuggestedQuestions, SuggestedQuestion{Text: q})
			}
		}
	}

	return resp, nil
}

// ChatStream runs one streamed request through the pipeline. A refusal is
// delivered as a single fragment; otherwise the provider's fragment sequence
// is handed through unchanged.
func (s *ChatService) ChatStream(ctx context.Context, req ChatRequest) (<-chan string, <-chan error) {
	if allowed, refusal := Screen(lastUserContent(req.Messages)); !allowed {
		fragments := make(chan string, 1)
		errs := make(chan error)
		fragments <- refusal
		close(fragments)
		close(errs)
		return fragments, errs
	}

	prompt := s.systemPrompt(ctx, &req)
	return s.provider.CompleteStream(ctx, prompt, toProviderMessages(req.Messages), req.maxTokens(), req.temperature())
}

// ListSubjects returns built-ins (with file overrides applied) followed by
// persisted custom subjects, each with its conversation count. Persistence
// being unavailable degrades to the built-in list with zero counts.
func (s *ChatService) ListSubjects(ctx context.Context) ([]SubjectInfo, error) {
	counts, err := s.store.SubjectConversationCounts(ctx)
	if err != nil && !errors.Is(err, store.ErrUnavailable) {
		return nil, fmt.Errorf("failed to load conversation counts: %w", err)
	}

	var subjects []SubjectInfo
	for _, p := range s.resolver.BuiltinProfiles() {
		subjects = append(subjects, SubjectInfo{
			ID:                p.ID,
			Name:              p.Name,
			Description:       p.Description,
			ConversationCount: counts[p.ID],
		})
	}

	customs, err := s.store.ListCustomSubjects(ctx)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return subjects, nil
		}
		return nil, fmt.Errorf("failed to load custom subjects: %w", err)
	}
	for _, c := range customs {
		ref := c.Ref()
		subjects = append(subjects, SubjectInfo{
			ID:                ref,
			Name:              c.Name,
			Description:       c.Description,
			ConversationCount: counts[ref],
			IsCustom:          true,
		})
	}
	return subjects, nil
}

// Persistence pass-throughs for the boundary layer.

func (s *ChatService) CreateCustomSubject(ctx context.Context, name, description, teachingStyle string) (*store.CustomSubject, error) {
	return s.store.CreateCustomSubject(ctx, name, description, teachingStyle)
}

func (s *ChatService) DeleteCustomSubject(ctx context.Context, pk int64) error {
	return s.store.DeleteCustomSubject(ctx, pk)
}

func (s *ChatService) SaveConversation(ctx context.Context, subjectID, title string, messages []ChatMessage) (*store.Conversation, error) {
	records := make([]store.ConversationMessage, len(messages))
	for i, msg := range messages {
		records[i] = store.ConversationMessage{Role: msg.Role, Content: msg.Content}
	}
	return s.store.SaveConversation(ctx, subjectID, title, records)
}

func (s *ChatService) GetConversation(ctx context.Context, id string) (*store.Conversation, []store.ConversationMessage, error) {
	return s.store.GetConversation(ctx, id)
}

func (s *ChatService) ListConversations(ctx context.Context, subjectID string, limit int) ([]store.ConversationSummary, error) {
	return s.store.ListConversations(ctx, subjectID, limit)
}

func (s *ChatService) DeleteConversation(ctx context.Context, id string) error {
	return s.store.DeleteConversation(ctx, id)
}

func (s *ChatService) RecordFeedback(ctx context.Context, fb *store.Feedback) error {
	return s.store.RecordFeedback(ctx, fb)
}

func (s *ChatService) FeedbackStats(ctx context.Context, subjectID string) (store.FeedbackStats, error) {
	return s.store.FeedbackStats(ctx, subjectID)
}

func (s *ChatService) ExportFeedback(ctx context.Context, subjectID string, limit int) ([]store.Feedback, error) {
	return s.store.ExportFeedback(ctx, subjectID, limit)
}

// subjectName resolves a display name for notes and recommendations.
func (s *ChatService) subjectName(ctx context.Context, subjectID string) string {
	if name := s.resolver.Resolve(ctx, subjectID).Name; name != "" {
		return name
	}
	return subjectID
}

// NextQuestion produces one practice-question recommendation for a subject.
func (s *ChatService) NextQuestion(ctx context.Context, subjectID string) (NextQuestion, error) {
	systemPrompt := "You are generating ONE next practice question for a student. " +
		"Return only the question text (no solution)."
	history := []provider.Message{{
		Role:    "user",
		Content: fmt.Sprintf("Subject: %s. Suggest the next practice question.", s.subjectName(ctx, subjectID)),
	}}

	result, err := s.provider.Complete(ctx, systemPrompt, history, 128, 0.6)
	if err != nil {
		return NextQuestion{}, fmt.Errorf("next-question generation failed: %w", err)
	}
	if result.Stub {
		return NextQuestion{
			SubjectID:    subjectID,
			QuestionText: fmt.Sprintf("Practice: Give me a %s question at your current level.", subjectID),
			Rationale:    "Stub mode: configure a provider to generate personalized recommendations.",
			Stub:         true,
		}, nil
	}
	return NextQuestion{
		SubjectID:    subjectID,
		QuestionText: strings.TrimSpace(result.Content),
		Rationale:    "Suggested by the configured model based on subject context.",
		Stub:         false,
	}, nil
}
