package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"subjectchat/internal/provider"
	"subjectchat/internal/store"
)

const (
	notesConversationLimit = 5    // most recent conversations per subject
	notesMessagesPerConv   = 6    // last three exchanges per conversation
	notesExcerptLength     = 500  // per-message excerpt cap
	notesContextLength     = 3000 // total context cap
)

const notesSystemPrompt = "You are a study coach. Based on the chat history between a student and a tutor " +
	"for the subject %q, produce structured notes for the student's profile. " +
	"Use clear sections: Key topics covered, Progress summary, Areas to review, Suggested next steps. " +
	"Keep each section concise (2-4 bullet points). Output only the notes, no preamble."

// ProfileNotes generates study notes for each subject that has saved
// conversations, or for a single subject when subjectID is non-empty.
// Unavailable persistence degrades to an empty result; a generation failure
// for one subject yields an explanatory notes string instead of failing the
// whole listing.
func (s *ChatService) ProfileNotes(ctx context.Context, subjectID string) ([]SubjectNotes, error) {
	counts, err := s.store.SubjectConversationCounts(ctx)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load conversation counts: %w", err)
	}

	var subjectIDs []string
	if subjectID != "" {
		if counts[subjectID] == 0 {
			return nil, nil
		}
		subjectIDs = []string{subjectID}
	} else {
		for id := range counts {
			subjectIDs = append(subjectIDs, id)
		}
		sort.Strings(subjectIDs)
	}

	var result []SubjectNotes
	for _, id := range subjectIDs {
		name := s.subjectName(ctx, id)
		notes, err := s.generateNotes(ctx, id, name)
		if err != nil {
			s.logger.Warn("profile notes generation failed",
				zap.String("subject_id", id), zap.Error(err))
			notes = fmt.Sprintf("(Notes could not be generated: %v)", err)
		}
		if notes == "" {
			continue
		}
		result = append(result, SubjectNotes{SubjectID: id, SubjectName: name, Notes: notes})
	}
	return result, nil
}

func (s *ChatService) generateNotes(ctx context.Context, subjectID, subjectName string) (string, error) {
	summaries, err := s.store.ListConversations(ctx, subjectID, notesConversationLimit)
	if err != nil {
		return "", fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(summaries) == 0 {
		return "", nil
	}

	var parts []string
	for _, sum := range summaries {
		_, messages, err := s.store.GetConversation(ctx, sum.ID)
		if err != nil {
			return "", fmt.Errorf("failed to load conversation %s: %w", sum.ID, err)
		}
		if len(messages) > notesMessagesPerConv {
			messages = messages[len(messages)-notesMessagesPerConv:]
		}
		for _, msg := range messages {
			parts = append(parts, fmt.Sprintf("[%s]: %s", msg.Role, truncate(msg.Content, notesExcerptLength)))
		}
	}

	historyText := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(historyText) > notesContextLength {
		historyText = truncate(historyText, notesContextLength) + "\n\n..."
	}

	result, err := s.provider.Complete(ctx,
		fmt.Sprintf(notesSystemPrompt, subjectName),
		[]provider.Message{{Role: "user", Content: "Chat history:\n" + historyText}},
		512, 0.3)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Content), nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
