package views

import (
	"github.com/terra-clan/course-engine/internal/models"
)

// Graph holds the documents resolved for one read, keyed by id. Builders only
// look up what the requested depth needs; anything missing from the graph is
// treated as an unresolved reference.
type Graph struct {
	Categories map[string]*models.Category
	Chapters   map[string]*models.Chapter
	Lessons    map[string]*models.Lesson
	Slides     map[string]*models.Slide
	Quizzes    map[string]*models.Quiz
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{
		Categories: make(map[string]*models.Category),
		Chapters:   make(map[string]*models.Chapter),
		Lessons:    make(map[string]*models.Lesson),
		Slides:     make(map[string]*models.Slide),
		Quizzes:    make(map[string]*models.Quiz),
	}
}

func (g *Graph) AddCategories(items []*models.Category) {
	for _, c := range items {
		g.Categories[c.ID] = c
	}
}

func (g *Graph) AddChapters(items []*models.Chapter) {
	for _, ch := range items {
		g.Chapters[ch.ID] = ch
	}
}

func (g *Graph) AddLessons(items []*models.Lesson) {
	for _, l := range items {
		g.Lessons[l.ID] = l
	}
}

func (g *Graph) AddSlides(items []*models.Slide) {
	for _, s := range items {
		g.Slides[s.ID] = s
	}
}

func (g *Graph) AddQuizzes(items []*models.Quiz) {
	for _, q := range items {
		g.Quizzes[q.ID] = q
	}
}

// BuildCourse shapes a course for the given depth
func BuildCourse(c *models.Course, level models.PopulateLevel, includeCategory bool, g *Graph) *CourseView {
	v := &CourseView{
		ID:             c.ID,
		Name:           c.Name,
		Description:    c.Description,
		Price:          c.Price,
		EstimationTime: c.EstimationTime,
		CoverImage:     c.CoverImage,
		ThumbnailImage: c.ThumbnailImage,
		WillLearn:      nonNil(c.WillLearn),
		Requirements:   nonNil(c.Requirements),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}

	if cat, ok := g.Categories[c.CategoryID]; includeCategory && ok {
		v.Category = Category(cat)
	} else {
		v.CategoryID = c.CategoryID
	}

	if !level.IncludesChapters() {
		v.ChapterIDs = nonNil(c.ChapterIDs)
		return v
	}

	chapters := resolve(c.ChapterIDs, g.Chapters)
	models.SortChapters(chapters)

	v.Chapters = make([]ChapterView, 0, len(chapters))
	for _, ch := range chapters {
		v.Chapters = append(v.Chapters, BuildChapter(ch, level, g))
	}
	return v
}

// BuildChapter shapes a chapter for the given depth
func BuildChapter(ch *models.Chapter, level models.PopulateLevel, g *Graph) ChapterView {
	fields := chapterFields(ch)

	switch level {
	case models.PopulateLessons, models.PopulateSlides:
		return ChapterWithLessons{
			ChapterFields: fields,
			Lessons:       buildLessons(ch, level.IncludesSlides(), g),
			QuizID:        ch.QuizID,
		}
	case models.PopulateQuizzes:
		quiz, quizID := resolveQuiz(ch, g)
		return ChapterWithQuiz{
			ChapterFields: fields,
			Quiz:          quiz,
			QuizID:        quizID,
			LessonIDs:     refs(ch.LessonIDs),
		}
	case models.PopulateFull:
		quiz, quizID := resolveQuiz(ch, g)
		return ChapterFull{
			ChapterFields: fields,
			Lessons:       buildLessons(ch, true, g),
			Quiz:          quiz,
			QuizID:        quizID,
		}
	default:
		return ChapterStub{ChapterFields: fields}
	}
}

// BuildChapterDetail expands lessons (slides left as ids) and the quiz. It
// backs the chapter endpoints, which always return one level of children.
func BuildChapterDetail(ch *models.Chapter, g *Graph) ChapterFull {
	quiz, quizID := resolveQuiz(ch, g)
	return ChapterFull{
		ChapterFields: chapterFields(ch),
		Lessons:       buildLessons(ch, false, g),
		Quiz:          quiz,
		QuizID:        quizID,
	}
}

// BuildLesson shapes a lesson, expanding slides when withSlides is set
func BuildLesson(l *models.Lesson, withSlides bool, g *Graph) LessonView {
	fields := lessonFields(l)
	if !withSlides {
		return LessonRefs{LessonFields: fields, SlideIDs: refs(l.SlideIDs)}
	}

	slides := resolve(l.SlideIDs, g.Slides)
	models.SortSlides(slides)

	out := LessonWithSlides{LessonFields: fields, Slides: make([]SlideView, 0, len(slides))}
	for _, s := range slides {
		out.Slides = append(out.Slides, Slide(s))
	}
	return out
}

func buildLessons(ch *models.Chapter, withSlides bool, g *Graph) []LessonView {
	lessons := resolve(ch.LessonIDs, g.Lessons)
	models.SortLessons(lessons)

	out := make([]LessonView, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, BuildLesson(l, withSlides, g))
	}
	return out
}

// resolveQuiz returns the expanded quiz, or the bare id when the chapter
// references a quiz the graph does not hold.
func resolveQuiz(ch *models.Chapter, g *Graph) (*QuizView, string) {
	if !ch.HasQuiz() {
		return nil, ""
	}
	if q, ok := g.Quizzes[ch.QuizID]; ok {
		return Quiz(q), ""
	}
	return nil, ch.QuizID
}

// resolve looks up ids in order, skipping dangling references
func resolve[T any](ids []string, byID map[string]*T) []*T {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

func refs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
