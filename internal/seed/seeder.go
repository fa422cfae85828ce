package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/course-engine/internal/catalog"
	"github.com/terra-clan/course-engine/internal/content"
	"github.com/terra-clan/course-engine/internal/models"
)

// CategoryStore reads and creates categories
type CategoryStore interface {
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
}

// Summary counts what Apply created
type Summary struct {
	Categories int
	Courses    int
	Skipped    int
}

// Seeder writes catalog files through the course and hierarchy services
type Seeder struct {
	categories CategoryStore
	courses    *catalog.Service
	content    *content.Manager
}

// NewSeeder creates a new Seeder
func NewSeeder(categories CategoryStore, courses *catalog.Service, hierarchy *content.Manager) *Seeder {
	return &Seeder{categories: categories, courses: courses, content: hierarchy}
}

// Apply creates the categories and courses of files. Courses whose name
// already exists are skipped, so Apply can run on every start.
func (s *Seeder) Apply(ctx context.Context, files []*File) (Summary, error) {
	var sum Summary

	for _, f := range files {
		categoryID := ""
		if f.Category != nil {
			created, err := s.ensureCategory(ctx, f.Category)
			if err != nil {
				return sum, fmt.Errorf("%s: %w", f.Path, err)
			}
			if created {
				sum.Categories++
			}
			categoryID = f.Category.ID
		}

		for _, c := range f.Courses {
			existing, err := s.courses.FindByName(ctx, c.Name)
			if err != nil {
				return sum, err
			}
			if existing != nil {
				slog.Debug("seed course exists, skipping", "name", c.Name, "id", existing.ID)
				sum.Skipped++
				continue
			}

			if err := s.createCourse(ctx, categoryID, c); err != nil {
				return sum, fmt.Errorf("%s: course %q: %w", f.Path, c.Name, err)
			}
			sum.Courses++
		}
	}

	slog.Info("seed applied",
		"categories", sum.Categories,
		"courses", sum.Courses,
		"skipped", sum.Skipped,
	)
	return sum, nil
}

func (s *Seeder) ensureCategory(ctx context.Context, def *CategoryDef) (bool, error) {
	existing, err := s.categories.GetCategory(ctx, def.ID)
	if err != nil {
		return false, fmt.Errorf("failed to get category: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	now := time.Now().UTC()
	err = s.categories.CreateCategory(ctx, &models.Category{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Image:       def.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create category: %w", err)
	}
	return true, nil
}

func (s *Seeder) createCourse(ctx context.Context, categoryID string, def CourseDef) error {
	course, err := s.courses.CreateCourse(ctx, models.CreateCourseRequest{
		Name:           def.Name,
		Description:    def.Description,
		Price:          def.Price,
		EstimationTime: def.EstimationTime,
		CategoryID:     categoryID,
		WillLearn:      def.WillLearn,
		Requirements:   def.Requirements,
		CoverImage:     def.CoverImage,
		ThumbnailImage: def.ThumbnailImage,
	}, catalog.Images{})
	if err != nil {
		return err
	}

	for _, chDef := range def.Chapters {
		ch, err := s.content.CreateChapter(ctx, models.CreateChapterRequest{
			Title:       chDef.Title,
			Description: chDef.Description,
			OrderIndex:  intPtr(chDef.OrderIndex),
			CourseID:    course.ID,
		})
		if err != nil {
			return err
		}

		if q := chDef.Quiz; q != nil {
			_, err := s.content.CreateQuiz(ctx, models.CreateQuizRequest{
				Title:        q.Title,
				Description:  q.Description,
				ChapterID:    ch.ID,
				Questions:    q.Questions,
				PassingScore: q.PassingScore,
				TimeLimit:    q.TimeLimit,
			})
			if err != nil {
				return err
			}
			continue
		}

		for _, lDef := range chDef.Lessons {
			if err := s.createLesson(ctx, ch.ID, lDef); err != nil {
				return err
			}
		}
	}

	slog.Info("seed course created", "id", course.ID, "name", course.Name, "chapters", len(def.Chapters))
	return nil
}

func (s *Seeder) createLesson(ctx context.Context, chapterID string, def LessonDef) error {
	l, err := s.content.CreateLesson(ctx, models.CreateLessonRequest{
		Title:             def.Title,
		Description:       def.Description,
		OrderIndex:        intPtr(def.OrderIndex),
		ChapterID:         chapterID,
		EstimatedDuration: def.EstimatedDuration,
	})
	if err != nil {
		return err
	}

	for _, sl := range def.Slides {
		_, err := s.content.CreateSlide(ctx, models.CreateSlideRequest{
			Title:       sl.Title,
			Type:        sl.Type,
			TextContent: sl.TextContent,
			ImageURL:    sl.ImageURL,
			OrderIndex:  intPtr(sl.OrderIndex),
			LessonID:    l.ID,
			Options:     sl.Options,
			Hint:        sl.Hint,
			Answer:      sl.Answer,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }
