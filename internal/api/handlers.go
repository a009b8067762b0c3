package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"subjectchat/internal/core"
	"subjectchat/internal/store"
)

type APIHandler struct {
	chatService *core.ChatService
	logger      *zap.Logger
}

func NewAPIHandler(cs *core.ChatService, logger *zap.Logger) *APIHandler {
	return &APIHandler{chatService: cs, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// storeErrorStatus maps the persistence error taxonomy to HTTP statuses for
// endpoints where storage is required rather than optional.
func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Subjects

func (h *APIHandler) ListSubjectsHandler(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.chatService.ListSubjects(r.Context())
	if err != nil {
		h.logger.Error("failed to list subjects", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list subjects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}

type CreateCustomSubjectRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	TeachingStyle string `json:"teaching_style"`
}

func (h *APIHandler) CreateCustomSubjectHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	subj, err := h.chatService.CreateCustomSubject(r.Context(), name,
		strings.TrimSpace(req.Description), strings.TrimSpace(req.TeachingStyle))
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Database not configured")
			return
		}
		h.logger.Error("failed to create custom subject", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create subject")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":             subj.Ref(),
		"subject_id":     subj.Ref(),
		"name":           subj.Name,
		"description":    subj.Description,
		"teaching_style": subj.TeachingStyle,
		"is_custom":      true,
	})
}

func (h *APIHandler) DeleteSubjectHandler(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	pk, ok := store.ParseCustomSubjectRef(subjectID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Only custom subjects can be deleted")
		return
	}

	if err := h.chatService.DeleteCustomSubject(r.Context(), pk); err != nil {
		if status := storeErrorStatus(err); status != http.StatusInternalServerError {
			writeError(w, status, "Custom subject not deleted: "+err.Error())
			return
		}
		h.logger.Error("failed to delete custom subject", zap.String("subject_id", subjectID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete subject")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Subject deleted"})
}

// Chat

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.chatService.Chat(r.Context(), req)
	if err != nil {
		h.logger.Error("chat request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "The model provider could not be reached")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type streamEvent struct {
	Content string `json:"content"`
}

// ChatStreamHandler streams the assistant reply as Server-Sent Events, one
// data event per fragment. Stream closure is the terminator; no explicit done
// event is sent.
func (h *APIHandler) ChatStreamHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	fragments, errs := h.chatService.ChatStream(r.Context(), req)

	wroteHeader := false
	for fragment := range fragments {
		if !wroteHeader {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
			wroteHeader = true
		}
		payload, err := json.Marshal(streamEvent{Content: fragment})
		if err != nil {
			h.logger.Error("failed to encode stream event", zap.Error(err))
			return
		}
		if _, err := w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
			return // client went away
		}
		flusher.Flush()
	}

	if err := <-errs; err != nil {
		if !wroteHeader {
			h.logger.Error("stream failed before first fragment", zap.Error(err))
			writeError(w, http.StatusBadGateway, "The model provider could not be reached")
			return
		}
		// Mid-stream failure: the event stream simply ends.
		h.logger.Warn("stream terminated early", zap.Error(err))
	}
}

func (h *APIHandler) NextQuestionHandler(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		writeError(w, http.StatusBadRequest, "subject_id is required")
		return
	}

	nq, err := h.chatService.NextQuestion(r.Context(), subjectID)
	if err != nil {
		h.logger.Error("next-question failed", zap.String("subject_id", subjectID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "The model provider could not be reached")
		return
	}
	writeJSON(w, http.StatusOK, nq)
}

// Conversations

type SaveConversationRequest struct {
	SubjectID string             `json:"subject_id"`
	Title     string             `json:"title"`
	Messages  []core.ChatMessage `json:"messages"`
}

func (h *APIHandler) SaveConversationHandler(w http.ResponseWriter, r *http.Request) {
	var req SaveConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SubjectID == "" || strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "subject_id and title are required")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "at least one message is required")
		return
	}

	conv, err := h.chatService.SaveConversation(r.Context(), req.SubjectID, strings.TrimSpace(req.Title), req.Messages)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Database not configured")
			return
		}
		h.logger.Error("failed to save conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save conversation")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      conv.ID,
		"message": "Conversation saved successfully",
	})
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")

	summaries, err := h.chatService.ListConversations(r.Context(), subjectID, 50)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeJSON(w, http.StatusOK, []store.ConversationSummary{})
			return
		}
		h.logger.Error("failed to list conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	if summaries == nil {
		summaries = []store.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

type ConversationDetailResponse struct {
	*store.Conversation
	Messages []store.ConversationMessage `json:"messages"`
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, messages, err := h.chatService.GetConversation(r.Context(), conversationID)
	if err != nil {
		if status := storeErrorStatus(err); status != http.StatusInternalServerError {
			writeError(w, status, "Conversation not available: "+err.Error())
			return
		}
		h.logger.Error("failed to get conversation", zap.String("conversation_id", conversationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get conversation")
		return
	}
	writeJSON(w, http.StatusOK, ConversationDetailResponse{Conversation: conv, Messages: messages})
}

func (h *APIHandler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.chatService.DeleteConversation(r.Context(), conversationID); err != nil {
		if status := storeErrorStatus(err); status != http.StatusInternalServerError {
			writeError(w, status, "Conversation not deleted: "+err.Error())
			return
		}
		h.logger.Error("failed to delete conversation", zap.String("conversation_id", conversationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Conversation deleted"})
}

// Feedback

type FeedbackRequest struct {
	MessageIndex   int    `json:"message_index"`
	Rating         int    `json:"rating"` // -1 dislike, 0 neutral, 1 like
	SubjectID      string `json:"subject_id"`
	MessageContent string `json:"message_content"`
	UserQuestion   string `json:"user_question"`
}

func (h *APIHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SubjectID == "" || req.MessageContent == "" {
		writeError(w, http.StatusBadRequest, "subject_id and message_content are required")
		return
	}
	if req.Rating < -1 || req.Rating > 1 {
		writeError(w, http.StatusBadRequest, "rating must be -1, 0 or 1")
		return
	}
	if req.MessageIndex < 0 {
		writeError(w, http.StatusBadRequest, "message_index must not be negative")
		return
	}

	fb := store.Feedback{
		SubjectID:      req.SubjectID,
		MessageContent: req.MessageContent,
		UserQuestion:   req.UserQuestion,
		Rating:         req.Rating,
		MessageIndex:   req.MessageIndex,
	}
	if err := h.chatService.RecordFeedback(r.Context(), &fb); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "message": "Database not configured"})
			return
		}
		h.logger.Error("failed to record feedback", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "Failed to save feedback."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"message":     "Feedback saved for model improvement.",
		"feedback_id": fb.ID,
	})
}

func (h *APIHandler) FeedbackStatsHandler(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")

	stats, err := h.chatService.FeedbackStats(r.Context(), subjectID)
	if err != nil && !errors.Is(err, store.ErrUnavailable) {
		h.logger.Error("failed to load feedback stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load feedback stats")
		return
	}

	likePercentage := 0.0
	if stats.Total > 0 {
		likePercentage = float64(stats.Likes) / float64(stats.Total) * 100
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_feedback":  stats.Total,
		"likes":           stats.Likes,
		"dislikes":        stats.Dislikes,
		"like_percentage": likePercentage,
		"subject_id":      subjectID,
	})
}

func (h *APIHandler) ExportFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	feedback, err := h.chatService.ExportFeedback(r.Context(), subjectID, limit)
	if err != nil && !errors.Is(err, store.ErrUnavailable) {
		h.logger.Error("failed to export feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export feedback")
		return
	}
	if feedback == nil {
		feedback = []store.Feedback{}
	}
	writeJSON(w, http.StatusOK, feedback)
}

// Profile

func (h *APIHandler) ProfileNotesHandler(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")

	notes, err := h.chatService.ProfileNotes(r.Context(), subjectID)
	if err != nil {
		h.logger.Error("failed to generate profile notes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate profile notes")
		return
	}
	if notes == nil {
		notes = []core.SubjectNotes{}
	}
	writeJSON(w, http.StatusOK, notes)
}
