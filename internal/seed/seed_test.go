package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/course-engine/internal/catalog"
	"github.com/terra-clan/course-engine/internal/content"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/validation"
)

func seedDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join("..", "..", "seed")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("seed directory not found, skipping")
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	files, err := LoadDir(seedDir(t))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	f := files[0]
	require.NotNil(t, f.Category)
	assert.Equal(t, "programming", f.Category.ID)
	require.NotEmpty(t, f.Courses)
	assert.Equal(t, "JavaScript Fundamentals", f.Courses[0].Name)
}

func TestParse_RejectsLessonsAndQuiz(t *testing.T) {
	_, err := Parse([]byte(`
courses:
  - name: Broken
    chapters:
      - title: Both
        lessons:
          - title: l1
        quiz:
          title: q
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lessons or a quiz")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("courses: [unclosed"))
	assert.Error(t, err)
}

func TestApply_IsRepeatable(t *testing.T) {
	files, err := LoadDir(seedDir(t))
	require.NoError(t, err)

	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	v := validation.New()
	courses := catalog.NewService(repo, v, nil, nil)
	seeder := NewSeeder(repo, courses, content.NewManager(repo, v, nil))

	sum, err := seeder.Apply(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Categories)
	assert.Equal(t, 1, sum.Courses)

	sum, err = seeder.Apply(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 1}, sum)

	c, err := courses.FindByName(ctx, "JavaScript Fundamentals")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "programming", c.CategoryID)

	full, err := catalog.NewReader(repo, nil).FindOne(ctx, c.ID, models.PopulateFull, true)
	require.NoError(t, err)
	require.Len(t, full.Chapters, 2)
	assert.Equal(t, "Programming", full.Category.Name)
}
