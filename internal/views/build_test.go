package views

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/course-engine/internal/models"
)

// fixture: chapter "ch-l" (order 2) holds lessons l2, l1; chapter "ch-q"
// (order 1) holds quiz q1. Lesson l1 has two slides stored out of order.
func fixture() (*models.Course, *Graph) {
	course := &models.Course{
		ID:         "c1",
		Name:       "Go",
		CategoryID: "cat-1",
		ChapterIDs: []string{"ch-l", "ch-q"},
	}

	g := NewGraph()
	g.AddCategories([]*models.Category{{ID: "cat-1", Name: "Programming", Image: "cat.png", ParentID: "root"}})
	g.AddChapters([]*models.Chapter{
		{ID: "ch-l", Title: "Basics", OrderIndex: 2, CourseID: "c1", LessonIDs: []string{"l2", "l1"}},
		{ID: "ch-q", Title: "Checkpoint", OrderIndex: 1, CourseID: "c1", QuizID: "q1"},
	})
	g.AddLessons([]*models.Lesson{
		{ID: "l1", Title: "Vars", OrderIndex: 1, ChapterID: "ch-l", SlideIDs: []string{"s2", "s1"}},
		{ID: "l2", Title: "Types", OrderIndex: 2, ChapterID: "ch-l"},
	})
	g.AddSlides([]*models.Slide{
		{ID: "s1", Title: "first", Type: models.SlideText, OrderIndex: 1, LessonID: "l1"},
		{ID: "s2", Title: "second", Type: models.SlideQuote, OrderIndex: 2, LessonID: "l1"},
	})
	g.AddQuizzes([]*models.Quiz{{
		ID:        "q1",
		Title:     "Check",
		ChapterID: "ch-q",
		Questions: []models.QuizQuestion{
			{Question: "second", Options: []string{"a", "b"}, OrderIndex: 2},
			{Question: "first", Options: []string{"a", "b"}, OrderIndex: 1},
		},
	}})
	return course, g
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func chaptersOf(t *testing.T, m map[string]any) []map[string]any {
	t.Helper()
	raw, ok := m["chapters"].([]any)
	require.True(t, ok, "chapters missing")
	out := make([]map[string]any, len(raw))
	for i, c := range raw {
		out[i] = c.(map[string]any)
	}
	return out
}

func TestBuildCourseNone(t *testing.T) {
	course, g := fixture()
	m := toMap(t, BuildCourse(course, models.PopulateNone, false, g))

	assert.Equal(t, []any{"ch-l", "ch-q"}, m["chapterIds"])
	assert.NotContains(t, m, "chapters")
	assert.Equal(t, "cat-1", m["categoryId"])
	assert.NotContains(t, m, "category")
}

func TestBuildCourseChaptersAreStubs(t *testing.T) {
	course, g := fixture()
	m := toMap(t, BuildCourse(course, models.PopulateChapters, false, g))

	chapters := chaptersOf(t, m)
	require.Len(t, chapters, 2)
	assert.Equal(t, "ch-q", chapters[0]["id"], "chapters sorted by order index")
	for _, ch := range chapters {
		for _, key := range []string{"lessons", "lessonIds", "quiz", "quizId"} {
			assert.NotContains(t, ch, key)
		}
	}
	assert.NotContains(t, m, "chapterIds")
}

func TestBuildCourseLessons(t *testing.T) {
	course, g := fixture()
	m := toMap(t, BuildCourse(course, models.PopulateLessons, false, g))
	chapters := chaptersOf(t, m)

	quizChapter, lessonChapter := chapters[0], chapters[1]
	assert.Equal(t, "q1", quizChapter["quizId"])
	assert.Equal(t, []any{}, quizChapter["lessons"])
	assert.NotContains(t, quizChapter, "quiz")

	lessons := lessonChapter["lessons"].([]any)
	require.Len(t, lessons, 2)
	first := lessons[0].(map[string]any)
	assert.Equal(t, "l1", first["id"], "lessons sorted by order index")
	assert.Equal(t, []any{"s2", "s1"}, first["slideIds"])
	assert.NotContains(t, first, "slides")
	assert.NotContains(t, lessonChapter, "lessonIds")
}

func TestBuildCourseQuizzes(t *testing.T) {
	course, g := fixture()
	m := toMap(t, BuildCourse(course, models.PopulateQuizzes, false, g))
	chapters := chaptersOf(t, m)

	quiz := chapters[0]["quiz"].(map[string]any)
	questions := quiz["questions"].([]any)
	assert.Equal(t, "first", questions[0].(map[string]any)["question"])
	assert.NotContains(t, chapters[0], "quizId")

	assert.Equal(t, []any{"l2", "l1"}, chapters[1]["lessonIds"])
	assert.NotContains(t, chapters[1], "lessons")
}

func TestBuildCourseFull(t *testing.T) {
	course, g := fixture()
	m := toMap(t, BuildCourse(course, models.PopulateFull, true, g))

	category := m["category"].(map[string]any)
	assert.Equal(t, map[string]any{"id": "cat-1", "name": "Programming", "image": "cat.png"}, category)
	assert.NotContains(t, m, "categoryId")

	chapters := chaptersOf(t, m)
	assert.Contains(t, chapters[0], "quiz")

	lessons := chapters[1]["lessons"].([]any)
	first := lessons[0].(map[string]any)
	slides := first["slides"].([]any)
	require.Len(t, slides, 2)
	assert.Equal(t, "s1", slides[0].(map[string]any)["id"])
	assert.NotContains(t, first, "slideIds")

	second := lessons[1].(map[string]any)
	assert.Equal(t, []any{}, second["slides"])
}

func TestDanglingQuizStaysReference(t *testing.T) {
	course, g := fixture()
	delete(g.Quizzes, "q1")

	m := toMap(t, BuildCourse(course, models.PopulateFull, false, g))
	chapters := chaptersOf(t, m)
	assert.Equal(t, "q1", chapters[0]["quizId"])
	assert.NotContains(t, chapters[0], "quiz")
}

func TestDecodeCourseRestoresVariants(t *testing.T) {
	course, g := fixture()

	for _, level := range []models.PopulateLevel{
		models.PopulateChapters, models.PopulateSlides, models.PopulateQuizzes, models.PopulateFull,
	} {
		t.Run(level.String(), func(t *testing.T) {
			built := BuildCourse(course, level, true, g)
			data, err := json.Marshal(built)
			require.NoError(t, err)

			decoded, err := DecodeCourse(data, level)
			require.NoError(t, err)

			again, err := json.Marshal(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}
