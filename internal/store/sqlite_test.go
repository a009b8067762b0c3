package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCustomSubjectLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	subj, err := s.CreateCustomSubject(ctx, "Linear Algebra", "matrices", "")
	require.NoError(t, err)
	assert.Equal(t, CustomSubjectRef(subj.ID), subj.Ref())

	got, err := s.GetCustomSubject(ctx, subj.ID)
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", got.Name)
	assert.Equal(t, "matrices", got.Description)
	assert.Empty(t, got.TeachingStyle)

	list, err := s.ListCustomSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteCustomSubject(ctx, subj.ID))
	_, err = s.GetCustomSubject(ctx, subj.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCustomSubject(ctx, subj.ID), ErrNotFound)
}

func TestDeleteCustomSubjectCascadesConversations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	subj, err := s.CreateCustomSubject(ctx, "Botany", "", "")
	require.NoError(t, err)

	conv, err := s.SaveConversation(ctx, subj.Ref(), "leaves", []ConversationMessage{
		{Role: "user", Content: "why are leaves green?"},
		{Role: "assistant", Content: "chlorophyll"},
	})
	require.NoError(t, err)

	other, err := s.SaveConversation(ctx, "math", "sums", []ConversationMessage{
		{Role: "user", Content: "2+2?"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCustomSubject(ctx, subj.ID))

	_, _, err = s.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Unrelated conversations survive.
	_, msgs, err := s.GetConversation(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSaveAndGetConversationPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	messages := []ConversationMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "second"},
		{Role: "user", Content: "third"},
		{Role: "assistant", Content: "fourth"},
	}
	conv, err := s.SaveConversation(ctx, "math", "ordering", messages)
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)

	got, gotMessages, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "ordering", got.Title)
	require.Len(t, gotMessages, 4)
	for i, msg := range gotMessages {
		assert.Equal(t, messages[i].Role, msg.Role)
		assert.Equal(t, messages[i].Content, msg.Content)
	}
}

func TestListConversationsFiltersAndCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveConversation(ctx, "math", "a", []ConversationMessage{
		{Role: "user", Content: "1"}, {Role: "assistant", Content: "2"},
	})
	require.NoError(t, err)
	_, err = s.SaveConversation(ctx, "physics", "b", []ConversationMessage{
		{Role: "user", Content: "1"},
	})
	require.NoError(t, err)

	all, err := s.ListConversations(ctx, "", 50)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	math, err := s.ListConversations(ctx, "math", 50)
	require.NoError(t, err)
	require.Len(t, math, 1)
	assert.Equal(t, "a", math[0].Title)
	assert.Equal(t, 2, math[0].MessageCount)

	counts, err := s.SubjectConversationCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"math": 1, "physics": 1}, counts)
}

func TestDeleteConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.SaveConversation(ctx, "math", "t", []ConversationMessage{
		{Role: "user", Content: "x"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID))
	assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID), ErrNotFound)
	_, _, err = s.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedbackRecordStatsAndExport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, rating := range []int{1, 1, -1, 0} {
		fb := Feedback{
			SubjectID:      "math",
			MessageContent: "an answer",
			UserQuestion:   "a question",
			Rating:         rating,
		}
		require.NoError(t, s.RecordFeedback(ctx, &fb))
		assert.NotZero(t, fb.ID)
	}
	require.NoError(t, s.RecordFeedback(ctx, &Feedback{
		SubjectID: "physics", MessageContent: "other", Rating: 1,
	}))

	stats, err := s.FeedbackStats(ctx, "math")
	require.NoError(t, err)
	assert.Equal(t, FeedbackStats{Total: 4, Likes: 2, Dislikes: 1}, stats)

	allStats, err := s.FeedbackStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 5, allStats.Total)

	exported, err := s.ExportFeedback(ctx, "math", 2)
	require.NoError(t, err)
	assert.Len(t, exported, 2)
	for _, fb := range exported {
		assert.Equal(t, "math", fb.SubjectID)
	}
}

func TestUnavailableStoreReturnsSentinel(t *testing.T) {
	u := NewUnavailable()
	ctx := context.Background()

	_, err := u.CreateCustomSubject(ctx, "n", "", "")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = u.GetCustomSubject(ctx, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = u.ListConversations(ctx, "", 10)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = u.SubjectConversationCounts(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, u.RecordFeedback(ctx, &Feedback{}), ErrUnavailable)
	assert.NoError(t, u.Close())
}
