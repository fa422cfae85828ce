package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/cache"
	"github.com/terra-clan/course-engine/internal/content"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/upload"
	"github.com/terra-clan/course-engine/internal/validation"
	"github.com/terra-clan/course-engine/internal/views"
)

func ptr[T any](v T) *T { return &v }

type mapCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	versions    map[string]int64
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}, versions: map[string]int64{}}
}

func (c *mapCache) Get(ctx context.Context, courseID string, level models.PopulateLevel, includeCategory bool) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[cache.ViewKey(courseID, level, includeCategory)]
	return d, ok, nil
}

func (c *mapCache) Version(ctx context.Context, courseID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[courseID], nil
}

func (c *mapCache) Set(ctx context.Context, courseID string, level models.PopulateLevel, includeCategory bool, version int64, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[courseID] != version {
		return nil
	}
	c.data[cache.ViewKey(courseID, level, includeCategory)] = data
	return nil
}

func (c *mapCache) InvalidateCourse(ctx context.Context, courseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, courseID)
	c.versions[courseID]++
	c.data = map[string][]byte{}
	return nil
}

type fakeFiles struct {
	mu      sync.Mutex
	failOn  string
	deleted []string
}

func (f *fakeFiles) Upload(ctx context.Context, file *upload.File) (string, error) {
	if file.Name == f.failOn {
		return "", errors.New("cdn unavailable")
	}
	return "https://cdn.test/" + file.Name, nil
}

func (f *fakeFiles) Delete(ctx context.Context, fileURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileURL)
	return nil
}

func (f *fakeFiles) Owns(fileURL string) bool {
	return strings.HasPrefix(fileURL, "https://cdn.test/")
}

type env struct {
	ctx     context.Context
	repo    *storage.MemoryRepository
	cache   *mapCache
	files   *fakeFiles
	svc     *Service
	reader  *Reader
	content *content.Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo := storage.NewMemoryRepository()
	c := newMapCache()
	files := &fakeFiles{}
	v := validation.New()
	return &env{
		ctx:     context.Background(),
		repo:    repo,
		cache:   c,
		files:   files,
		svc:     NewService(repo, v, files, c),
		reader:  NewReader(repo, c),
		content: content.NewManager(repo, v, c),
	}
}

func (e *env) course(t *testing.T) *models.Course {
	t.Helper()
	c, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{
		Name:           "Go",
		Description:    "Learn Go",
		EstimationTime: "4h",
	}, Images{})
	require.NoError(t, err)
	return c
}

// buildHierarchy creates chapter "Basics" (order 2) with two lessons, the
// first holding one slide, and chapter "Checkpoint" (order 1) with a quiz.
func (e *env) buildHierarchy(t *testing.T, courseID string) {
	t.Helper()
	basics, err := e.content.CreateChapter(e.ctx, models.CreateChapterRequest{Title: "Basics", OrderIndex: ptr(2), CourseID: courseID})
	require.NoError(t, err)
	check, err := e.content.CreateChapter(e.ctx, models.CreateChapterRequest{Title: "Checkpoint", OrderIndex: ptr(1), CourseID: courseID})
	require.NoError(t, err)

	l1, err := e.content.CreateLesson(e.ctx, models.CreateLessonRequest{Title: "Vars", OrderIndex: ptr(1), ChapterID: basics.ID})
	require.NoError(t, err)
	_, err = e.content.CreateLesson(e.ctx, models.CreateLessonRequest{Title: "Types", OrderIndex: ptr(2), ChapterID: basics.ID})
	require.NoError(t, err)
	_, err = e.content.CreateSlide(e.ctx, models.CreateSlideRequest{Title: "intro", Type: models.SlideText, OrderIndex: ptr(1), LessonID: l1.ID})
	require.NoError(t, err)

	_, err = e.content.CreateQuiz(e.ctx, models.CreateQuizRequest{
		Title:     "Check",
		ChapterID: check.ID,
		Questions: []models.QuizQuestion{{Question: "?", Options: []string{"a", "b"}}},
	})
	require.NoError(t, err)
}

func jsonMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestCreateCourse_UploadsImages(t *testing.T) {
	e := newEnv(t)

	c, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{
		Name: "Go", Description: "d", EstimationTime: "1h",
	}, Images{
		Cover:     &upload.File{Name: "cover.png", Data: []byte("c")},
		Thumbnail: &upload.File{Name: "thumb.png", Data: []byte("t")},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.test/cover.png", c.CoverImage)
	assert.Equal(t, "https://cdn.test/thumb.png", c.ThumbnailImage)
	assert.Empty(t, c.ChapterIDs)
}

func TestCreateCourse_ThumbnailFailureRemovesCover(t *testing.T) {
	e := newEnv(t)
	e.files.failOn = "thumb.png"

	_, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{
		Name: "Go", Description: "d", EstimationTime: "1h",
	}, Images{
		Cover:     &upload.File{Name: "cover.png", Data: []byte("c")},
		Thumbnail: &upload.File{Name: "thumb.png", Data: []byte("t")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.Equal(t, []string{"https://cdn.test/cover.png"}, e.files.deleted)

	courses, err := e.repo.ListCourses(e.ctx, models.CourseFilters{})
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestCreateCourse_UnknownCategory(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{
		Name: "Go", Description: "d", EstimationTime: "1h", CategoryID: "missing",
	}, Images{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateCourse_Validation(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{Price: -1}, Images{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateCourse_ReplacesImages(t *testing.T) {
	e := newEnv(t)
	c, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{
		Name: "Go", Description: "d", EstimationTime: "1h",
	}, Images{Cover: &upload.File{Name: "old.png", Data: []byte("o")}})
	require.NoError(t, err)

	updated, err := e.svc.UpdateCourse(e.ctx, c.ID, models.UpdateCourseRequest{Name: ptr("Go 2")},
		Images{Cover: &upload.File{Name: "new.png", Data: []byte("n")}})
	require.NoError(t, err)

	assert.Equal(t, "Go 2", updated.Name)
	assert.Equal(t, "https://cdn.test/new.png", updated.CoverImage)
	assert.Equal(t, []string{"https://cdn.test/old.png"}, e.files.deleted)
	assert.Contains(t, e.cache.invalidated, c.ID)
}

func TestCourseImagesFromElsewhereAreNeverDeleted(t *testing.T) {
	e := newEnv(t)
	c, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{
		Name: "Go", Description: "d", EstimationTime: "1h",
		CoverImage:     "https://images.example.org/cover.png",
		ThumbnailImage: "https://images.example.org/thumb.png",
	}, Images{})
	require.NoError(t, err)

	_, err = e.svc.UpdateCourse(e.ctx, c.ID, models.UpdateCourseRequest{},
		Images{Cover: &upload.File{Name: "new.png", Data: []byte("n")}})
	require.NoError(t, err)
	assert.Empty(t, e.files.deleted)

	_, err = e.svc.RemoveCourse(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.test/new.png"}, e.files.deleted)
}

func TestUpdateCourse_NotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.UpdateCourse(e.ctx, "nope", models.UpdateCourseRequest{}, Images{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemoveCourse(t *testing.T) {
	e := newEnv(t)
	c, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{
		Name: "Go", Description: "d", EstimationTime: "1h",
	}, Images{Cover: &upload.File{Name: "cover.png", Data: []byte("c")}})
	require.NoError(t, err)

	removed, err := e.svc.RemoveCourse(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, removed.ID)
	assert.Equal(t, []string{"https://cdn.test/cover.png"}, e.files.deleted)

	_, err = e.reader.FindOne(e.ctx, c.ID, models.PopulateNone, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFindByName(t *testing.T) {
	e := newEnv(t)
	c := e.course(t)

	found, err := e.svc.FindByName(e.ctx, "Go")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, c.ID, found.ID)

	missing, err := e.svc.FindByName(e.ctx, "Rust")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParsePopulate(t *testing.T) {
	level, err := ParsePopulate("FULL")
	require.NoError(t, err)
	assert.Equal(t, models.PopulateFull, level)

	level, err = ParsePopulate("")
	require.NoError(t, err)
	assert.Equal(t, models.PopulateNone, level)

	_, err = ParsePopulate("everything")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFindOne_Levels(t *testing.T) {
	e := newEnv(t)
	c := e.course(t)
	e.buildHierarchy(t, c.ID)

	t.Run("none", func(t *testing.T) {
		v, err := e.reader.FindOne(e.ctx, c.ID, models.PopulateNone, false)
		require.NoError(t, err)
		m := jsonMap(t, v)
		assert.Len(t, m["chapterIds"], 2)
		assert.NotContains(t, m, "chapters")
	})

	t.Run("chapters", func(t *testing.T) {
		v, err := e.reader.FindWithChapters(e.ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, v.Chapters, 2)
		assert.Equal(t, "Checkpoint", v.Chapters[0].Chapter().Title)

		for _, ch := range jsonMap(t, v)["chapters"].([]any) {
			fields := ch.(map[string]any)
			assert.NotContains(t, fields, "lessons")
			assert.NotContains(t, fields, "lessonIds")
			assert.NotContains(t, fields, "quiz")
		}
	})

	t.Run("lessons", func(t *testing.T) {
		v, err := e.reader.FindWithLessons(e.ctx, c.ID)
		require.NoError(t, err)
		basics, ok := v.Chapters[1].(views.ChapterWithLessons)
		require.True(t, ok)
		require.Len(t, basics.Lessons, 2)
		_, isRefs := basics.Lessons[0].(views.LessonRefs)
		assert.True(t, isRefs)
	})

	t.Run("full", func(t *testing.T) {
		v, err := e.reader.FindFull(e.ctx, c.ID)
		require.NoError(t, err)

		quizCh, ok := v.Chapters[0].(views.ChapterFull)
		require.True(t, ok)
		require.NotNil(t, quizCh.Quiz)

		lessonCh, ok := v.Chapters[1].(views.ChapterFull)
		require.True(t, ok)
		first, ok := lessonCh.Lessons[0].(views.LessonWithSlides)
		require.True(t, ok)
		assert.Len(t, first.Slides, 1)
	})
}

func TestFindOne_ServesFromCacheUntilInvalidated(t *testing.T) {
	e := newEnv(t)
	c := e.course(t)
	e.buildHierarchy(t, c.ID)

	first, err := e.reader.FindFull(e.ctx, c.ID)
	require.NoError(t, err)
	_, cached, _ := e.cache.Get(e.ctx, c.ID, models.PopulateFull, true)
	require.True(t, cached)

	second, err := e.reader.FindFull(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, jsonMap(t, first), jsonMap(t, second))

	_, err = e.content.CreateChapter(e.ctx, models.CreateChapterRequest{Title: "More", OrderIndex: ptr(3), CourseID: c.ID})
	require.NoError(t, err)

	third, err := e.reader.FindFull(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, third.Chapters, 3)
}

// writeDuringRead runs write once, after the reader has loaded the course
type writeDuringRead struct {
	storage.Repository
	write func()
}

func (r *writeDuringRead) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	c, err := r.Repository.GetCourse(ctx, id)
	if r.write != nil {
		w := r.write
		r.write = nil
		w()
	}
	return c, err
}

func TestFindOne_DoesNotCacheViewOverlappingWrite(t *testing.T) {
	e := newEnv(t)
	c := e.course(t)
	e.buildHierarchy(t, c.ID)

	repo := &writeDuringRead{Repository: e.repo}
	repo.write = func() {
		_, err := e.content.CreateChapter(e.ctx, models.CreateChapterRequest{Title: "Late", OrderIndex: ptr(3), CourseID: c.ID})
		require.NoError(t, err)
	}
	reader := NewReader(repo, e.cache)

	stale, err := reader.FindWithChapters(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stale.Chapters, 2)

	_, cached, _ := e.cache.Get(e.ctx, c.ID, models.PopulateChapters, false)
	assert.False(t, cached)

	fresh, err := reader.FindWithChapters(e.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Chapters, 3)
}

func TestFindAll_FiltersByCategory(t *testing.T) {
	e := newEnv(t)
	now := time.Now()
	require.NoError(t, e.repo.CreateCategory(e.ctx, &models.Category{ID: "cat-1", Name: "Programming", CreatedAt: now, UpdatedAt: now}))

	_, err := e.svc.CreateCourse(e.ctx, models.CreateCourseRequest{
		Name: "Go", Description: "d", EstimationTime: "1h", CategoryID: "cat-1",
	}, Images{})
	require.NoError(t, err)
	e.course(t)

	all, err := e.reader.FindAll(e.ctx, models.CourseQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := e.reader.FindAll(e.ctx, models.CourseQuery{CategoryID: "cat-1", IncludeCategory: true})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.NotNil(t, filtered[0].Category)
	assert.Equal(t, "Programming", filtered[0].Category.Name)
	assert.Empty(t, filtered[0].CategoryID)
}
