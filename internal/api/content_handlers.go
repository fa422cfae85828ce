package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/course-engine/internal/models"
)

// Chapter handlers

func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChapterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondAppError(w, r, "create chapter", err)
		return
	}

	ch, err := s.svc.Content.CreateChapter(r.Context(), req)
	if err != nil {
		s.respondAppError(w, r, "create chapter", err)
		return
	}
	respondJSON(w, http.StatusCreated, ch)
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.svc.Content.ListChapters(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		s.respondAppError(w, r, "list chapters", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"chapters": chapters,
		"total":    len(chapters),
	})
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	ch, err := s.svc.Content.GetChapter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "get chapter", err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

func (s *Server) handleUpdateChapter(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateChapterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondAppError(w, r, "update chapter", err)
		return
	}

	ch, err := s.svc.Content.UpdateChapter(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondAppError(w, r, "update chapter", err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	ch, err := s.svc.Content.RemoveChapter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "delete chapter", err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

// Lesson handlers

func (s *Server) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLessonRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondAppError(w, r, "create lesson", err)
		return
	}

	l, err := s.svc.Content.CreateLesson(r.Context(), req)
	if err != nil {
		s.respondAppError(w, r, "create lesson", err)
		return
	}
	respondJSON(w, http.StatusCreated, l)
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := s.svc.Content.ListLessons(r.Context(), chi.URLParam(r, "chapterId"))
	if err != nil {
		s.respondAppError(w, r, "list lessons", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lessons": lessons,
		"total":   len(lessons),
	})
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Content.GetLesson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "get lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateLessonRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondAppError(w, r, "update lesson", err)
		return
	}

	l, err := s.svc.Content.UpdateLesson(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondAppError(w, r, "update lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Content.RemoveLesson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "delete lesson", err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

// Quiz handlers

func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondAppError(w, r, "create quiz", err)
		return
	}

	q, err := s.svc.Content.CreateQuiz(r.Context(), req)
	if err != nil {
		s.respondAppError(w, r, "create quiz", err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

func (s *Server) handleGetChapterQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := s.svc.Content.GetQuizByChapter(r.Context(), chi.URLParam(r, "chapterId"))
	if err != nil {
		s.respondAppError(w, r, "get chapter quiz", err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := s.svc.Content.GetQuiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "get quiz", err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondAppError(w, r, "update quiz", err)
		return
	}

	q, err := s.svc.Content.UpdateQuiz(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondAppError(w, r, "update quiz", err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := s.svc.Content.RemoveQuiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "delete quiz", err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

// Slide handlers

func (s *Server) handleCreateSlide(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSlideRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondAppError(w, r, "create slide", err)
		return
	}

	sl, err := s.svc.Content.CreateSlide(r.Context(), req)
	if err != nil {
		s.respondAppError(w, r, "create slide", err)
		return
	}
	respondJSON(w, http.StatusCreated, sl)
}

func (s *Server) handleListSlides(w http.ResponseWriter, r *http.Request) {
	slides, err := s.svc.Content.ListSlides(r.Context(), chi.URLParam(r, "lessonId"))
	if err != nil {
		s.respondAppError(w, r, "list slides", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"slides": slides,
		"total":  len(slides),
	})
}

func (s *Server) handleGetSlide(w http.ResponseWriter, r *http.Request) {
	sl, err := s.svc.Content.GetSlide(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "get slide", err)
		return
	}
	respondJSON(w, http.StatusOK, sl)
}

func (s *Server) handleUpdateSlide(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSlideRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondAppError(w, r, "update slide", err)
		return
	}

	sl, err := s.svc.Content.UpdateSlide(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondAppError(w, r, "update slide", err)
		return
	}
	respondJSON(w, http.StatusOK, sl)
}

func (s *Server) handleDeleteSlide(w http.ResponseWriter, r *http.Request) {
	sl, err := s.svc.Content.RemoveSlide(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "delete slide", err)
		return
	}
	respondJSON(w, http.StatusOK, sl)
}
