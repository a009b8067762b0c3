package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err = s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS custom_subjects (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        teaching_style TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY, -- UUID
        subject_id TEXT NOT NULL,
        title TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS ix_conversations_subject ON conversations (subject_id, created_at);

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        conversation_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id) ON DELETE CASCADE
    );
    CREATE INDEX IF NOT EXISTS ix_messages_conversation ON messages (conversation_id, created_at);

    CREATE TABLE IF NOT EXISTS feedback (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        subject_id TEXT NOT NULL,
        message_content TEXT NOT NULL,
        user_question TEXT NOT NULL DEFAULT '',
        rating INTEGER NOT NULL,
        message_index INTEGER NOT NULL DEFAULT 0,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS ix_feedback_subject_rating ON feedback (subject_id, rating);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Custom subject methods

func (s *SQLiteStore) CreateCustomSubject(ctx context.Context, name, description, teachingStyle string) (*CustomSubject, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO custom_subjects (name, description, teaching_style, created_at) VALUES (?, ?, ?, ?)",
		name, description, teachingStyle, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert custom subject: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read custom subject id: %w", err)
	}
	return &CustomSubject{
		ID:            id,
		Name:          name,
		Description:   description,
		TeachingStyle: teachingStyle,
		CreatedAt:     now,
	}, nil
}

func (s *SQLiteStore) GetCustomSubject(ctx context.Context, pk int64) (*CustomSubject, error) {
	var subj CustomSubject
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, teaching_style, created_at FROM custom_subjects WHERE id = ?", pk).
		Scan(&subj.ID, &subj.Name, &subj.Description, &subj.TeachingStyle, &subj.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query custom subject: %w", err)
	}
	return &subj, nil
}

func (s *SQLiteStore) ListCustomSubjects(ctx context.Context) ([]CustomSubject, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, teaching_style, created_at FROM custom_subjects ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query custom subjects: %w", err)
	}
	defer rows.Close()

	var subjects []CustomSubject
	for rows.Next() {
		var subj CustomSubject
		if err := rows.Scan(&subj.ID, &subj.Name, &subj.Description, &subj.TeachingStyle, &subj.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan custom subject row: %w", err)
		}
		subjects = append(subjects, subj)
	}
	return subjects, rows.Err()
}

func (s *SQLiteStore) DeleteCustomSubject(ctx context.Context, pk int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM custom_subjects WHERE id = ?", pk)
	if err != nil {
		return fmt.Errorf("failed to delete custom subject: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	// Conversations reference the subject by its external ref, messages
	// cascade via the foreign key.
	ref := CustomSubjectRef(pk)
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE subject_id = ?", ref); err != nil {
		return fmt.Errorf("failed to delete conversations for subject %s: %w", ref, err)
	}

	return tx.Commit()
}

// Conversation methods

func (s *SQLiteStore) SaveConversation(ctx context.Context, subjectID, title string, messages []ConversationMessage) (*Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO conversations (id, subject_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		conv.ID, conv.SubjectID, conv.Title, conv.CreatedAt, conv.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	for i, msg := range messages {
		// Spread creation times so reload order matches caller order.
		createdAt := now.Add(time.Duration(i) * time.Millisecond)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
			uuid.NewString(), conv.ID, msg.Role, msg.Content, createdAt); err != nil {
			return nil, fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, []ConversationMessage, error) {
	var conv Conversation
	err := s.db.QueryRowContext(ctx,
		"SELECT id, subject_id, title, created_at, updated_at FROM conversations WHERE id = ?", id).
		Scan(&conv.ID, &conv.SubjectID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at ASC", id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []ConversationMessage
	for rows.Next() {
		var msg ConversationMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return &conv, messages, rows.Err()
}

func (s *SQLiteStore) ListConversations(ctx context.Context, subjectID string, limit int) ([]ConversationSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT c.id, c.subject_id, c.title, c.created_at, c.updated_at, COUNT(m.id)
        FROM conversations c
        LEFT JOIN messages m ON m.conversation_id = c.id
    `
	args := []any{}
	if subjectID != "" {
		query += " WHERE c.subject_id = ?"
		args = append(args, subjectID)
	}
	query += " GROUP BY c.id ORDER BY c.updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var summaries []ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		if err := rows.Scan(&sum.ID, &sum.SubjectID, &sum.Title, &sum.CreatedAt, &sum.UpdatedAt, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SubjectConversationCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT subject_id, COUNT(id) FROM conversations GROUP BY subject_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var subjectID string
		var count int
		if err := rows.Scan(&subjectID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[subjectID] = count
	}
	return counts, rows.Err()
}

// Feedback methods

func (s *SQLiteStore) RecordFeedback(ctx context.Context, fb *Feedback) error {
	fb.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO feedback (subject_id, message_content, user_question, rating, message_index, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		fb.SubjectID, fb.MessageContent, fb.UserQuestion, fb.Rating, fb.MessageIndex, fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	fb.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) FeedbackStats(ctx context.Context, subjectID string) (FeedbackStats, error) {
	query := `
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN rating = -1 THEN 1 ELSE 0 END), 0)
        FROM feedback
    `
	args := []any{}
	if subjectID != "" {
		query += " WHERE subject_id = ?"
		args = append(args, subjectID)
	}

	var stats FeedbackStats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.Total, &stats.Likes, &stats.Dislikes); err != nil {
		return FeedbackStats{}, fmt.Errorf("failed to query feedback stats: %w", err)
	}
	return stats, nil
}

func (s *SQLiteStore) ExportFeedback(ctx context.Context, subjectID string, limit int) ([]Feedback, error) {
	if limit <= 0 {
		limit = 100
	}
	query := "SELECT id, subject_id, message_content, user_question, rating, message_index, created_at FROM feedback"
	args := []any{}
	if subjectID != "" {
		query += " WHERE subject_id = ?"
		args = append(args, subjectID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var feedback []Feedback
	for rows.Next() {
		var fb Feedback
		if err := rows.Scan(&fb.ID, &fb.SubjectID, &fb.MessageContent, &fb.UserQuestion, &fb.Rating, &fb.MessageIndex, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		feedback = append(feedback, fb)
	}
	return feedback, rows.Err()
}
