// Package views shapes stored course content into the read contract served
// by the API. Every population depth has its own chapter and lesson type, so
// a response never mixes expanded objects with bare references by accident.
package views

import (
	"time"

	"github.com/terra-clan/course-engine/internal/models"
)

// CategoryView is the reduced category embedded in course reads
type CategoryView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// SlideView is a slide as returned to clients
type SlideView struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Type        models.SlideType `json:"type"`
	TextContent string           `json:"textContent,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	OrderIndex  int              `json:"orderIndex"`
	Options     []string         `json:"options,omitempty"`
	Hint        string           `json:"questionHint,omitempty"`
	Answer      string           `json:"answer,omitempty"`
}

// QuizView is a quiz with its questions in display order
type QuizView struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description,omitempty"`
	ChapterID    string                `json:"chapterId"`
	Questions    []models.QuizQuestion `json:"questions"`
	PassingScore int                   `json:"passingScore"`
	TimeLimit    *int                  `json:"timeLimit,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// LessonFields are the lesson's own attributes, shared by every lesson variant
type LessonFields struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	OrderIndex        int       `json:"orderIndex"`
	ChapterID         string    `json:"chapterId"`
	EstimatedDuration *int      `json:"estimatedDuration,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Lesson returns the shared attributes
func (f LessonFields) Lesson() LessonFields { return f }

// LessonView is one of LessonRefs or LessonWithSlides
type LessonView interface {
	Lesson() LessonFields
}

// LessonRefs is a lesson whose slides are left as ids
type LessonRefs struct {
	LessonFields
	SlideIDs []string `json:"slideIds,omitempty"`
}

// LessonWithSlides is a lesson with its slides expanded
type LessonWithSlides struct {
	LessonFields
	Slides []SlideView `json:"slides"`
}

// ChapterFields are the chapter's own attributes, shared by every chapter variant
type ChapterFields struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OrderIndex  int       `json:"orderIndex"`
	CourseID    string    `json:"courseId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Chapter returns the shared attributes
func (f ChapterFields) Chapter() ChapterFields { return f }

// ChapterView is one of ChapterStub, ChapterWithLessons, ChapterWithQuiz or
// ChapterFull.
type ChapterView interface {
	Chapter() ChapterFields
}

// ChapterStub carries no children (populate=chapters)
type ChapterStub struct {
	ChapterFields
}

// ChapterWithLessons expands lessons; a quiz stays a reference
// (populate=lessons|slides).
type ChapterWithLessons struct {
	ChapterFields
	Lessons []LessonView `json:"lessons"`
	QuizID  string       `json:"quizId,omitempty"`
}

// ChapterWithQuiz expands the quiz; lessons stay references
// (populate=quizzes).
type ChapterWithQuiz struct {
	ChapterFields
	Quiz      *QuizView `json:"quiz,omitempty"`
	QuizID    string    `json:"quizId,omitempty"`
	LessonIDs []string  `json:"lessonIds,omitempty"`
}

// ChapterFull expands both branches (populate=full)
type ChapterFull struct {
	ChapterFields
	Lessons []LessonView `json:"lessons"`
	Quiz    *QuizView    `json:"quiz,omitempty"`
	QuizID  string       `json:"quizId,omitempty"`
}

// CourseView is a course resolved to some population depth. Exactly one of
// ChapterIDs (populate=none) and Chapters is set.
type CourseView struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Price          float64       `json:"price"`
	EstimationTime string        `json:"estimationTime,omitempty"`
	CoverImage     string        `json:"coverImage,omitempty"`
	ThumbnailImage string        `json:"thumbnailImage,omitempty"`
	CategoryID     string        `json:"categoryId,omitempty"`
	Category       *CategoryView `json:"category,omitempty"`
	WillLearn      []string      `json:"willLearn"`
	Requirements   []string      `json:"requirements"`
	ChapterIDs     []string      `json:"chapterIds,omitempty"`
	Chapters       []ChapterView `json:"chapters,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Category maps a stored category to its reduced form
func Category(c *models.Category) *CategoryView {
	if c == nil {
		return nil
	}
	return &CategoryView{ID: c.ID, Name: c.Name, Description: c.Description, Image: c.Image}
}

// Slide maps a stored slide
func Slide(s *models.Slide) SlideView {
	return SlideView{
		ID:          s.ID,
		Title:       s.Title,
		Type:        s.Type,
		TextContent: s.TextContent,
		ImageURL:    s.ImageURL,
		OrderIndex:  s.OrderIndex,
		Options:     s.Options,
		Hint:        s.Hint,
		Answer:      s.Answer,
	}
}

// Quiz maps a stored quiz, sorting its questions by order index
func Quiz(q *models.Quiz) *QuizView {
	if q == nil {
		return nil
	}
	return &QuizView{
		ID:           q.ID,
		Title:        q.Title,
		Description:  q.Description,
		ChapterID:    q.ChapterID,
		Questions:    q.SortedQuestions(),
		PassingScore: q.PassingScore,
		TimeLimit:    q.TimeLimit,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

func lessonFields(l *models.Lesson) LessonFields {
	return LessonFields{
		ID:                l.ID,
		Title:             l.Title,
		Description:       l.Description,
		OrderIndex:        l.OrderIndex,
		ChapterID:         l.ChapterID,
		EstimatedDuration: l.EstimatedDuration,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func chapterFields(ch *models.Chapter) ChapterFields {
	return ChapterFields{
		ID:          ch.ID,
		Title:       ch.Title,
		Description: ch.Description,
		OrderIndex:  ch.OrderIndex,
		CourseID:    ch.CourseID,
		CreatedAt:   ch.CreatedAt,
		UpdatedAt:   ch.UpdatedAt,
	}
}
