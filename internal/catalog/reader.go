// Package catalog owns the course records and composes course reads at a
// caller-selected depth.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/cache"
	"github.com/terra-clan/course-engine/internal/i18n"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/views"
)

// Reader composes course views
type Reader struct {
	repo  storage.Repository
	cache cache.ViewCache
}

// NewReader creates a new Reader. A nil cache disables caching.
func NewReader(repo storage.Repository, c cache.ViewCache) *Reader {
	if c == nil {
		c = cache.Nop{}
	}
	return &Reader{repo: repo, cache: c}
}

// ParsePopulate parses a populate query value into a level
func ParsePopulate(s string) (models.PopulateLevel, error) {
	level, err := models.ParsePopulateLevel(s)
	if err != nil {
		return models.PopulateNone, &apperr.Error{
			Kind:   apperr.KindValidation,
			Key:    i18n.KeyInvalidPopulate,
			Args:   []string{s},
			Fields: map[string]string{"populate": i18n.English(i18n.KeyInvalidPopulate, s)},
			Err:    err,
		}
	}
	return level, nil
}

// FindAll lists courses, optionally restricted to one category and paged
func (r *Reader) FindAll(ctx context.Context, q models.CourseQuery) ([]*views.CourseView, error) {
	courses, err := r.repo.ListCourses(ctx, q.Filters())
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	g, err := r.graphFor(ctx, q.Populate, q.IncludeCategory, courses...)
	if err != nil {
		return nil, err
	}

	out := make([]*views.CourseView, 0, len(courses))
	for _, c := range courses {
		out = append(out, views.BuildCourse(c, q.Populate, q.IncludeCategory, g))
	}
	return out, nil
}

// Count returns the number of courses FindAll would list without paging
func (r *Reader) Count(ctx context.Context, q models.CourseQuery) (int, error) {
	n, err := r.repo.CountCourses(ctx, models.CourseFilters{CategoryID: q.CategoryID})
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}

// FindOne returns one course at the given depth. Results are served from the
// view cache when present.
func (r *Reader) FindOne(ctx context.Context, id string, level models.PopulateLevel, includeCategory bool) (*views.CourseView, error) {
	if v := r.cached(ctx, id, level, includeCategory); v != nil {
		return v, nil
	}

	// read before loading so a write that lands meanwhile makes the view stale
	version, versionErr := r.cache.Version(ctx, id)
	if versionErr != nil {
		slog.Warn("failed to read course view version", "course_id", id, "error", versionErr)
	}

	c, err := r.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if c == nil {
		return nil, apperr.NotFound(i18n.KeyCourseNotFound, id)
	}

	g, err := r.graphFor(ctx, level, includeCategory, c)
	if err != nil {
		return nil, err
	}
	v := views.BuildCourse(c, level, includeCategory, g)

	if versionErr == nil {
		r.store(ctx, id, level, includeCategory, version, v)
	}
	return v, nil
}

// FindWithChapters expands chapter stubs
func (r *Reader) FindWithChapters(ctx context.Context, id string) (*views.CourseView, error) {
	return r.FindOne(ctx, id, models.PopulateChapters, false)
}

// FindWithLessons expands chapters and their lessons
func (r *Reader) FindWithLessons(ctx context.Context, id string) (*views.CourseView, error) {
	return r.FindOne(ctx, id, models.PopulateLessons, false)
}

// FindWithSlides expands chapters, lessons and slides
func (r *Reader) FindWithSlides(ctx context.Context, id string) (*views.CourseView, error) {
	return r.FindOne(ctx, id, models.PopulateSlides, false)
}

// FindWithQuizzes expands chapters and their quizzes
func (r *Reader) FindWithQuizzes(ctx context.Context, id string) (*views.CourseView, error) {
	return r.FindOne(ctx, id, models.PopulateQuizzes, false)
}

// FindFull expands the whole hierarchy and the category
func (r *Reader) FindFull(ctx context.Context, id string) (*views.CourseView, error) {
	return r.FindOne(ctx, id, models.PopulateFull, true)
}

func (r *Reader) cached(ctx context.Context, id string, level models.PopulateLevel, includeCategory bool) *views.CourseView {
	data, ok, err := r.cache.Get(ctx, id, level, includeCategory)
	if err != nil {
		slog.Warn("failed to read course view cache", "course_id", id, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	v, err := views.DecodeCourse(data, level)
	if err != nil {
		slog.Warn("discarding undecodable cached course view", "course_id", id, "level", level.String(), "error", err)
		return nil
	}
	return v
}

func (r *Reader) store(ctx context.Context, id string, level models.PopulateLevel, includeCategory bool, version int64, v *views.CourseView) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to encode course view", "course_id", id, "error", err)
		return
	}
	if err := r.cache.Set(ctx, id, level, includeCategory, version, data); err != nil {
		slog.Warn("failed to cache course view", "course_id", id, "error", err)
	}
}

// graphFor batch-resolves every entity the requested depth needs, one
// query per entity kind regardless of the number of courses.
func (r *Reader) graphFor(ctx context.Context, level models.PopulateLevel, includeCategory bool, courses ...*models.Course) (*views.Graph, error) {
	g := views.NewGraph()

	if includeCategory {
		var ids []string
		for _, c := range courses {
			if c.CategoryID != "" {
				ids = append(ids, c.CategoryID)
			}
		}
		categories, err := r.repo.GetCategories(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve categories: %w", err)
		}
		g.AddCategories(categories)
	}

	if !level.IncludesChapters() {
		return g, nil
	}

	var chapterIDs []string
	for _, c := range courses {
		chapterIDs = append(chapterIDs, c.ChapterIDs...)
	}
	chapters, err := r.repo.GetChapters(ctx, chapterIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chapters: %w", err)
	}
	g.AddChapters(chapters)

	if level.IncludesLessons() {
		var lessonIDs []string
		for _, ch := range chapters {
			lessonIDs = append(lessonIDs, ch.LessonIDs...)
		}
		lessons, err := r.repo.GetLessons(ctx, lessonIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve lessons: %w", err)
		}
		g.AddLessons(lessons)

		if level.IncludesSlides() {
			var slideIDs []string
			for _, l := range lessons {
				slideIDs = append(slideIDs, l.SlideIDs...)
			}
			slides, err := r.repo.GetSlides(ctx, slideIDs)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve slides: %w", err)
			}
			g.AddSlides(slides)
		}
	}

	if level.IncludesQuiz() {
		var quizIDs []string
		for _, ch := range chapters {
			if ch.HasQuiz() {
				quizIDs = append(quizIDs, ch.QuizID)
			}
		}
		quizzes, err := r.repo.GetQuizzes(ctx, quizIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve quizzes: %w", err)
		}
		g.AddQuizzes(quizzes)
	}

	return g, nil
}
