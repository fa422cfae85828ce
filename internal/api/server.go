package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/course-engine/internal/auth"
	"github.com/terra-clan/course-engine/internal/catalog"
	"github.com/terra-clan/course-engine/internal/config"
	"github.com/terra-clan/course-engine/internal/content"
	"github.com/terra-clan/course-engine/internal/health"
	"github.com/terra-clan/course-engine/internal/i18n"
	"github.com/terra-clan/course-engine/internal/progress"
)

// Services are the domain services behind the API
type Services struct {
	Courses  *catalog.Service
	Reader   *catalog.Reader
	Content  *content.Manager
	Progress *progress.Tracker
	Health   *health.Registry
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	svc            Services
	messages       *i18n.Catalog
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, svc Services, tokens *auth.Issuer, messages *i18n.Catalog) *Server {
	if messages == nil {
		messages = i18n.DefaultCatalog()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	s := &Server{
		config:   cfg,
		svc:      svc,
		messages: messages,
	}
	s.authMiddleware = NewAuthMiddleware(tokens)
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)
		admin := s.authMiddleware.RequireAdmin

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", s.handleListCourses)
			r.With(admin).Post("/", s.handleCreateCourse)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCourse)
				r.With(admin).Patch("/", s.handleUpdateCourse)
				r.With(admin).Delete("/", s.handleDeleteCourse)

				r.Get("/chapters", s.handleGetCourseAt(s.svc.Reader.FindWithChapters))
				r.Get("/lessons", s.handleGetCourseAt(s.svc.Reader.FindWithLessons))
				r.Get("/slides", s.handleGetCourseAt(s.svc.Reader.FindWithSlides))
				r.Get("/quizzes", s.handleGetCourseAt(s.svc.Reader.FindWithQuizzes))
				r.Get("/full", s.handleGetCourseAt(s.svc.Reader.FindFull))

				r.Post("/enroll", s.handleEnroll)
				r.Get("/progress", s.handleGetProgress)
				r.Post("/progress/lessons/{lessonId}", s.handleMarkLesson)
				r.Post("/progress/quizzes/{quizId}", s.handleMarkQuiz)
			})
		})

		r.Get("/me/enrollments", s.handleListEnrollments)

		r.Route("/chapters", func(r chi.Router) {
			r.With(admin).Post("/", s.handleCreateChapter)
			r.Get("/by-course/{courseId}", s.handleListChapters)
			r.Get("/{id}", s.handleGetChapter)
			r.With(admin).Patch("/{id}", s.handleUpdateChapter)
			r.With(admin).Delete("/{id}", s.handleDeleteChapter)
		})

		r.Route("/lessons", func(r chi.Router) {
			r.With(admin).Post("/", s.handleCreateLesson)
			r.Get("/by-chapter/{chapterId}", s.handleListLessons)
			r.Get("/{id}", s.handleGetLesson)
			r.With(admin).Patch("/{id}", s.handleUpdateLesson)
			r.With(admin).Delete("/{id}", s.handleDeleteLesson)
		})

		r.Route("/quizzes", func(r chi.Router) {
			r.With(admin).Post("/", s.handleCreateQuiz)
			r.Get("/by-chapter/{chapterId}", s.handleGetChapterQuiz)
			r.Get("/{id}", s.handleGetQuiz)
			r.With(admin).Patch("/{id}", s.handleUpdateQuiz)
			r.With(admin).Delete("/{id}", s.handleDeleteQuiz)
		})

		r.Route("/slides", func(r chi.Router) {
			r.With(admin).Post("/", s.handleCreateSlide)
			r.Get("/by-lesson/{lessonId}", s.handleListSlides)
			r.Get("/{id}", s.handleGetSlide)
			r.With(admin).Patch("/{id}", s.handleUpdateSlide)
			r.With(admin).Delete("/{id}", s.handleDeleteSlide)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
