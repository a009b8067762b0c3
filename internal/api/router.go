package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(apiHandler *APIHandler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", apiHandler.HealthHandler)

	r.Route("/api", func(r chi.Router) {
		// Subjects
		r.Get("/subjects", apiHandler.ListSubjectsHandler)
		r.Post("/subjects/custom", apiHandler.CreateCustomSubjectHandler)
		r.Delete("/subjects/{subjectID}", apiHandler.DeleteSubjectHandler)

		// Chat
		r.Post("/chat", apiHandler.ChatHandler)
		r.Post("/chat/stream", apiHandler.ChatStreamHandler)
		r.Get("/recommendation/next-question", apiHandler.NextQuestionHandler)

		// Conversations
		r.Get("/conversations", apiHandler.ListConversationsHandler)
		r.Post("/conversations", apiHandler.SaveConversationHandler)
		r.Get("/conversations/{conversationID}", apiHandler.GetConversationHandler)
		r.Delete("/conversations/{conversationID}", apiHandler.DeleteConversationHandler)

		// Feedback
		r.Post("/feedback", apiHandler.FeedbackHandler)
		r.Get("/feedback/stats", apiHandler.FeedbackStatsHandler)
		r.Get("/feedback/export", apiHandler.ExportFeedbackHandler)

		// Profile
		r.Get("/profile/notes", apiHandler.ProfileNotesHandler)
	})

	return r
}
