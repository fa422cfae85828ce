package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/course-engine/internal/models"
)

// subjectFor returns the user a progress request acts on. Admins may name
// another user; everyone else acts on themselves.
func subjectFor(r *http.Request, requested string) string {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	if requested != "" && claims.IsAdmin() {
		return requested
	}
	return claims.UserID()
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req models.EnrollRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.respondAppError(w, r, "enroll", err)
			return
		}
	}

	e, err := s.svc.Progress.Enroll(r.Context(), chi.URLParam(r, "id"), subjectFor(r, req.UserID))
	if err != nil {
		s.respondAppError(w, r, "enroll", err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID := subjectFor(r, r.URL.Query().Get("userId"))
	e, err := s.svc.Progress.GetEnrollment(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		s.respondAppError(w, r, "get progress", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleMarkLesson(w http.ResponseWriter, r *http.Request) {
	userID := subjectFor(r, r.URL.Query().Get("userId"))
	e, err := s.svc.Progress.MarkLessonCompleted(r.Context(), chi.URLParam(r, "id"), userID, chi.URLParam(r, "lessonId"))
	if err != nil {
		s.respondAppError(w, r, "mark lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleMarkQuiz(w http.ResponseWriter, r *http.Request) {
	userID := subjectFor(r, r.URL.Query().Get("userId"))
	e, err := s.svc.Progress.MarkQuizCompleted(r.Context(), chi.URLParam(r, "id"), userID, chi.URLParam(r, "quizId"))
	if err != nil {
		s.respondAppError(w, r, "mark quiz", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := s.svc.Progress.ListEnrollments(r.Context(), subjectFor(r, ""))
	if err != nil {
		s.respondAppError(w, r, "list enrollments", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enrollments": enrollments,
		"total":       len(enrollments),
	})
}
