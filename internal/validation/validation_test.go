package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/models"
)

func intPtr(v int) *int { return &v }

func TestStructValid(t *testing.T) {
	v := New()
	req := models.CreateQuizRequest{
		Title:     "Checkpoint",
		ChapterID: "ch-1",
		Questions: []models.QuizQuestion{
			{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1},
		},
		PassingScore: intPtr(60),
	}
	assert.NoError(t, v.Struct(req))
}

func TestStructReportsJSONFieldPaths(t *testing.T) {
	v := New()
	req := models.CreateQuizRequest{
		ChapterID: "ch-1",
		Questions: []models.QuizQuestion{
			{Question: "only one option", Options: []string{"a"}, CorrectAnswer: 0},
			{Question: "out of range", Options: []string{"a", "b"}, CorrectAnswer: 2},
		},
	}

	err := v.Struct(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "title")
	assert.Contains(t, e.Fields, "questions[0].options")
	assert.Contains(t, e.Fields, "questions[1].correctAnswer")
	assert.Equal(t, "title is required", e.Fields["title"])
}

func TestSlideType(t *testing.T) {
	v := New()
	req := models.CreateSlideRequest{
		Title:      "Intro",
		Type:       models.SlideType("video"),
		OrderIndex: intPtr(1),
		LessonID:   "l-1",
	}

	err := v.Struct(req)
	require.Error(t, err)
	e, _ := apperr.As(err)
	assert.Equal(t, "type must be one of text, golden_info, quote, question", e.Fields["type"])

	req.Type = models.SlideGoldenInfo
	assert.NoError(t, v.Struct(req))
}

func TestOrderIndexZeroIsAccepted(t *testing.T) {
	v := New()
	req := models.CreateChapterRequest{Title: "Intro", OrderIndex: intPtr(0), CourseID: "c-1"}
	assert.NoError(t, v.Struct(req))

	req.OrderIndex = nil
	assert.Error(t, v.Struct(req))
}

func TestStructChecksCorrectAnswerOnQuizUpdate(t *testing.T) {
	v := New()
	questions := []models.QuizQuestion{
		{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1},
		{Question: "past the end", Options: []string{"a", "b", "c"}, CorrectAnswer: 3},
	}

	err := v.Struct(models.UpdateQuizRequest{Questions: &questions})
	require.Error(t, err)

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "questions[1].correctAnswer")
	assert.NotContains(t, e.Fields, "questions[0].correctAnswer")
}
