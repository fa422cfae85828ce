package models

import (
	"sort"
	"time"
)

// Chapter groups either lessons or a single quiz, never both.
type Chapter struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OrderIndex  int       `json:"orderIndex"`
	CourseID    string    `json:"courseId"`
	LessonIDs   []string  `json:"lessonIds"`
	QuizID      string    `json:"quizId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasLessons reports whether the chapter references any lesson
func (c *Chapter) HasLessons() bool {
	return len(c.LessonIDs) > 0
}

// HasQuiz reports whether the chapter's quiz slot is set
func (c *Chapter) HasQuiz() bool {
	return c.QuizID != ""
}

// ItemCount is the number of completable items the chapter contributes to
// course progress.
func (c *Chapter) ItemCount() int {
	n := len(c.LessonIDs)
	if c.HasQuiz() {
		n++
	}
	return n
}

// Lesson belongs to a chapter and owns an ordered list of slides.
type Lesson struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	OrderIndex        int       `json:"orderIndex"`
	ChapterID         string    `json:"chapterId"`
	EstimatedDuration *int      `json:"estimatedDuration,omitempty"` // minutes
	SlideIDs          []string  `json:"slideIds"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SlideType is the closed set of slide kinds
type SlideType string

const (
	SlideText       SlideType = "text"
	SlideGoldenInfo SlideType = "golden_info"
	SlideQuote      SlideType = "quote"
	SlideQuestion   SlideType = "question"
)

// SlideTypes lists every valid slide type
var SlideTypes = []SlideType{SlideText, SlideGoldenInfo, SlideQuote, SlideQuestion}

// IsValid returns true if t is one of the known slide types
func (t SlideType) IsValid() bool {
	for _, known := range SlideTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Slide is a leaf of the hierarchy. Options, Hint and Answer are only
// meaningful for question slides.
type Slide struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        SlideType `json:"type"`
	TextContent string    `json:"textContent,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	OrderIndex  int       `json:"orderIndex"`
	LessonID    string    `json:"lessonId"`
	Options     []string  `json:"options,omitempty"`
	Hint        string    `json:"questionHint,omitempty"`
	Answer      string    `json:"answer,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QuizQuestion is embedded in a quiz
type QuizQuestion struct {
	Question      string   `json:"question" yaml:"question" validate:"required"`
	Options       []string `json:"options" yaml:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer" validate:"min=0"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation"`
	OrderIndex    int      `json:"orderIndex" yaml:"orderIndex"`
}

// Quiz is the alternative leaf under a chapter
type Quiz struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	ChapterID    string         `json:"chapterId"`
	Questions    []QuizQuestion `json:"questions"`
	PassingScore int            `json:"passingScore"`
	TimeLimit    *int           `json:"timeLimit,omitempty"` // minutes
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// SortedQuestions returns a copy of the questions ordered by OrderIndex.
// Equal indexes keep their stored order.
func (q *Quiz) SortedQuestions() []QuizQuestion {
	out := make([]QuizQuestion, len(q.Questions))
	copy(out, q.Questions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// SortChapters orders chapters by OrderIndex, keeping insertion order on ties
func SortChapters(chapters []*Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].OrderIndex < chapters[j].OrderIndex
	})
}

// SortLessons orders lessons by OrderIndex, keeping insertion order on ties
func SortLessons(lessons []*Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].OrderIndex < lessons[j].OrderIndex
	})
}

// SortSlides orders slides by OrderIndex, keeping insertion order on ties
func SortSlides(slides []*Slide) {
	sort.SliceStable(slides, func(i, j int) bool {
		return slides[i].OrderIndex < slides[j].OrderIndex
	})
}
