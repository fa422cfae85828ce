package models

// CreateCourseRequest represents a course creation request. Image URLs may be
// given directly; uploaded files take precedence.
type CreateCourseRequest struct {
	Name           string   `json:"name" validate:"required,max=200"`
	Description    string   `json:"description" validate:"required"`
	Price          float64  `json:"price" validate:"min=0"`
	EstimationTime string   `json:"estimationTime" validate:"required"`
	CategoryID     string   `json:"categoryId,omitempty"`
	WillLearn      []string `json:"willLearn,omitempty" validate:"omitempty,dive,required"`
	Requirements   []string `json:"requirements,omitempty" validate:"omitempty,dive,required"`
	CoverImage     string   `json:"coverImage,omitempty" validate:"omitempty,url"`
	ThumbnailImage string   `json:"thumbnailImage,omitempty" validate:"omitempty,url"`
}

// UpdateCourseRequest is a partial course update
type UpdateCourseRequest struct {
	Name           *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description    *string   `json:"description,omitempty"`
	Price          *float64  `json:"price,omitempty" validate:"omitempty,min=0"`
	EstimationTime *string   `json:"estimationTime,omitempty" validate:"omitempty,min=1"`
	CategoryID     *string   `json:"categoryId,omitempty"`
	WillLearn      *[]string `json:"willLearn,omitempty"`
	Requirements   *[]string `json:"requirements,omitempty"`
}

// CreateChapterRequest represents a chapter creation request
type CreateChapterRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	OrderIndex  *int   `json:"orderIndex" validate:"required"`
	CourseID    string `json:"courseId" validate:"required"`
}

// UpdateChapterRequest is a partial chapter update; the owning course is not
// mutable.
type UpdateChapterRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty"`
	OrderIndex  *int    `json:"orderIndex,omitempty"`
}

// CreateLessonRequest represents a lesson creation request
type CreateLessonRequest struct {
	Title             string `json:"title" validate:"required"`
	Description       string `json:"description,omitempty"`
	OrderIndex        *int   `json:"orderIndex" validate:"required"`
	ChapterID         string `json:"chapterId" validate:"required"`
	EstimatedDuration *int   `json:"estimatedDuration,omitempty" validate:"omitempty,min=0"`
}

// UpdateLessonRequest is a partial lesson update
type UpdateLessonRequest struct {
	Title             *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Description       *string `json:"description,omitempty"`
	OrderIndex        *int    `json:"orderIndex,omitempty"`
	EstimatedDuration *int    `json:"estimatedDuration,omitempty" validate:"omitempty,min=0"`
}

// CreateQuizRequest represents a quiz creation request
type CreateQuizRequest struct {
	Title        string         `json:"title" validate:"required"`
	Description  string         `json:"description,omitempty"`
	ChapterID    string         `json:"chapterId" validate:"required"`
	Questions    []QuizQuestion `json:"questions" validate:"required,min=1,dive"`
	PassingScore *int           `json:"passingScore,omitempty" validate:"omitempty,min=0,max=100"`
	TimeLimit    *int           `json:"timeLimit,omitempty" validate:"omitempty,min=1"`
}

// UpdateQuizRequest is a partial quiz update. Questions, when present,
// replace the whole list.
type UpdateQuizRequest struct {
	Title        *string         `json:"title,omitempty" validate:"omitempty,min=1"`
	Description  *string         `json:"description,omitempty"`
	Questions    *[]QuizQuestion `json:"questions,omitempty" validate:"omitempty,min=1,dive"`
	PassingScore *int            `json:"passingScore,omitempty" validate:"omitempty,min=0,max=100"`
	TimeLimit    *int            `json:"timeLimit,omitempty" validate:"omitempty,min=1"`
}

// CreateSlideRequest represents a slide creation request
type CreateSlideRequest struct {
	Title       string    `json:"title" validate:"required"`
	Type        SlideType `json:"type" validate:"required,slide_type"`
	TextContent string    `json:"textContent,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty" validate:"omitempty,url"`
	OrderIndex  *int      `json:"orderIndex" validate:"required"`
	LessonID    string    `json:"lessonId" validate:"required"`
	Options     []string  `json:"options,omitempty" validate:"omitempty,min=2,dive,required"`
	Hint        string    `json:"questionHint,omitempty"`
	Answer      string    `json:"answer,omitempty"`
}

// UpdateSlideRequest is a partial slide update
type UpdateSlideRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1"`
	Type        *SlideType `json:"type,omitempty" validate:"omitempty,slide_type"`
	TextContent *string    `json:"textContent,omitempty"`
	ImageURL    *string    `json:"imageUrl,omitempty" validate:"omitempty,url"`
	OrderIndex  *int       `json:"orderIndex,omitempty"`
	Options     *[]string  `json:"options,omitempty" validate:"omitempty,min=2,dive,required"`
	Hint        *string    `json:"questionHint,omitempty"`
	Answer      *string    `json:"answer,omitempty"`
}

// EnrollRequest represents an enrollment request. UserID is only honoured
// for admins; everyone else enrolls themselves.
type EnrollRequest struct {
	UserID string `json:"userId,omitempty"`
}

// CourseQuery holds the read options of the composition reader. Limit 0
// lists every course; Page counts from 1.
type CourseQuery struct {
	Populate        PopulateLevel
	IncludeCategory bool
	CategoryID      string
	Page            int
	Limit           int
}

// Filters converts the query into storage filters
func (q CourseQuery) Filters() CourseFilters {
	f := CourseFilters{CategoryID: q.CategoryID}
	if q.Limit > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		f.Limit = q.Limit
		f.Offset = (page - 1) * q.Limit
	}
	return f
}
