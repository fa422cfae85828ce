package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/course-engine/internal/models"
)

// MemoryRepository implements Repository in process memory. It enforces the
// same conditional updates and uniqueness rules as PostgresRepository and
// backs the service tests and DATABASE_DSN=memory.
type MemoryRepository struct {
	mu  sync.RWMutex
	seq int64

	// insertion order of every stored id
	order map[string]int64

	categories  map[string]*models.Category
	users       map[string]*models.User
	courses     map[string]*models.Course
	chapters    map[string]*models.Chapter
	lessons     map[string]*models.Lesson
	slides      map[string]*models.Slide
	quizzes     map[string]*models.Quiz
	enrollments map[string]*models.Enrollment

	// "userID|courseID" -> enrollment id
	enrollmentKeys map[string]string
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		order:          make(map[string]int64),
		categories:     make(map[string]*models.Category),
		users:          make(map[string]*models.User),
		courses:        make(map[string]*models.Course),
		chapters:       make(map[string]*models.Chapter),
		lessons:        make(map[string]*models.Lesson),
		slides:         make(map[string]*models.Slide),
		quizzes:        make(map[string]*models.Quiz),
		enrollments:    make(map[string]*models.Enrollment),
		enrollmentKeys: make(map[string]string),
	}
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

func (r *MemoryRepository) track(id string) {
	r.seq++
	r.order[id] = r.seq
}

func (r *MemoryRepository) byInsertion(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return r.order[ids[i]] < r.order[ids[j]]
	})
}

// Categories

func (r *MemoryRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.categories[c.ID]; exists {
		return ErrConflict
	}
	cp := *c
	r.categories[c.ID] = &cp
	r.track(c.ID)
	return nil
}

func (r *MemoryRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) GetCategories(ctx context.Context, ids []string) ([]*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.categories[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Users

func (r *MemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.ID]; exists {
		return ErrConflict
	}
	r.users[u.ID] = cloneUser(u)
	r.track(u.ID)
	return nil
}

func (r *MemoryRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) AddEnrolledCourse(ctx context.Context, userID, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	if !contains(u.EnrolledCourses, courseID) {
		u.EnrolledCourses = append(u.EnrolledCourses, courseID)
	}
	return nil
}

// Courses

func (r *MemoryRepository) CreateCourse(ctx context.Context, c *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.courses[c.ID]; exists {
		return ErrConflict
	}
	r.courses[c.ID] = cloneCourse(c)
	r.track(c.ID)
	return nil
}

func (r *MemoryRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, nil
	}
	return cloneCourse(c), nil
}

// matchingCourses returns the ids of courses matching filters; callers hold mu
func (r *MemoryRepository) matchingCourses(filters models.CourseFilters) []string {
	ids := make([]string, 0, len(r.courses))
	for id, c := range r.courses {
		if filters.CategoryID != "" && c.CategoryID != filters.CategoryID {
			continue
		}
		if filters.Name != "" && c.Name != filters.Name {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (r *MemoryRepository) ListCourses(ctx context.Context, filters models.CourseFilters) ([]*models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.matchingCourses(filters)
	r.byInsertion(ids)
	ids = paginate(ids, filters.Limit, filters.Offset)

	out := make([]*models.Course, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneCourse(r.courses[id]))
	}
	return out, nil
}

func (r *MemoryRepository) CountCourses(ctx context.Context, filters models.CourseFilters) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matchingCourses(filters)), nil
}

func (r *MemoryRepository) UpdateCourse(ctx context.Context, c *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.courses[c.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneCourse(c)
	// chapter references are owned by Append/RemoveCourseChapter
	updated.ChapterIDs = existing.ChapterIDs
	r.courses[c.ID] = updated
	return nil
}

func (r *MemoryRepository) DeleteCourse(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return ErrNotFound
	}
	delete(r.courses, id)
	delete(r.order, id)
	return nil
}

func (r *MemoryRepository) AppendCourseChapter(ctx context.Context, courseID, chapterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[courseID]
	if !ok {
		return ErrNotFound
	}
	if !contains(c.ChapterIDs, chapterID) {
		c.ChapterIDs = append(c.ChapterIDs, chapterID)
	}
	return nil
}

func (r *MemoryRepository) RemoveCourseChapter(ctx context.Context, courseID, chapterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[courseID]
	if !ok {
		return ErrNotFound
	}
	c.ChapterIDs = without(c.ChapterIDs, chapterID)
	return nil
}

// Chapters

func (r *MemoryRepository) CreateChapter(ctx context.Context, ch *models.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.chapters[ch.ID]; exists {
		return ErrConflict
	}
	if ch.QuizID != "" && len(ch.LessonIDs) > 0 {
		return ErrConflict
	}
	r.chapters[ch.ID] = cloneChapter(ch)
	r.track(ch.ID)
	return nil
}

func (r *MemoryRepository) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.chapters[id]
	if !ok {
		return nil, nil
	}
	return cloneChapter(ch), nil
}

func (r *MemoryRepository) GetChapters(ctx context.Context, ids []string) ([]*models.Chapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Chapter, 0, len(ids))
	for _, id := range ids {
		if ch, ok := r.chapters[id]; ok {
			out = append(out, cloneChapter(ch))
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListChaptersByCourse(ctx context.Context, courseID string) ([]*models.Chapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, ch := range r.chapters {
		if ch.CourseID == courseID {
			ids = append(ids, id)
		}
	}
	r.byInsertion(ids)

	out := make([]*models.Chapter, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneChapter(r.chapters[id]))
	}
	models.SortChapters(out)
	return out, nil
}

func (r *MemoryRepository) UpdateChapter(ctx context.Context, ch *models.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.chapters[ch.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = ch.Title
	existing.Description = ch.Description
	existing.OrderIndex = ch.OrderIndex
	existing.UpdatedAt = ch.UpdatedAt
	return nil
}

func (r *MemoryRepository) DeleteChapter(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chapters[id]; !ok {
		return ErrNotFound
	}
	delete(r.chapters, id)
	delete(r.order, id)
	return nil
}

func (r *MemoryRepository) AttachLesson(ctx context.Context, chapterID, lessonID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[chapterID]
	if !ok {
		return ErrNotFound
	}
	if ch.QuizID != "" {
		return ErrConflict
	}
	if !contains(ch.LessonIDs, lessonID) {
		ch.LessonIDs = append(ch.LessonIDs, lessonID)
	}
	return nil
}

func (r *MemoryRepository) DetachLesson(ctx context.Context, chapterID, lessonID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[chapterID]
	if !ok {
		return ErrNotFound
	}
	ch.LessonIDs = without(ch.LessonIDs, lessonID)
	return nil
}

func (r *MemoryRepository) AttachQuiz(ctx context.Context, chapterID, quizID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[chapterID]
	if !ok {
		return ErrNotFound
	}
	if ch.QuizID != "" || len(ch.LessonIDs) > 0 {
		return ErrConflict
	}
	ch.QuizID = quizID
	return nil
}

func (r *MemoryRepository) DetachQuiz(ctx context.Context, chapterID, quizID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[chapterID]
	if !ok {
		return ErrNotFound
	}
	if ch.QuizID == quizID {
		ch.QuizID = ""
	}
	return nil
}

// Lessons

func (r *MemoryRepository) CreateLesson(ctx context.Context, l *models.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.lessons[l.ID]; exists {
		return ErrConflict
	}
	r.lessons[l.ID] = cloneLesson(l)
	r.track(l.ID)
	return nil
}

func (r *MemoryRepository) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lessons[id]
	if !ok {
		return nil, nil
	}
	return cloneLesson(l), nil
}

func (r *MemoryRepository) GetLessons(ctx context.Context, ids []string) ([]*models.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Lesson, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.lessons[id]; ok {
			out = append(out, cloneLesson(l))
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListLessonsByChapter(ctx context.Context, chapterID string) ([]*models.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, l := range r.lessons {
		if l.ChapterID == chapterID {
			ids = append(ids, id)
		}
	}
	r.byInsertion(ids)

	out := make([]*models.Lesson, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneLesson(r.lessons[id]))
	}
	models.SortLessons(out)
	return out, nil
}

func (r *MemoryRepository) UpdateLesson(ctx context.Context, l *models.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.lessons[l.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = l.Title
	existing.Description = l.Description
	existing.OrderIndex = l.OrderIndex
	existing.EstimatedDuration = copyIntPtr(l.EstimatedDuration)
	existing.UpdatedAt = l.UpdatedAt
	return nil
}

func (r *MemoryRepository) DeleteLesson(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lessons[id]; !ok {
		return ErrNotFound
	}
	delete(r.lessons, id)
	delete(r.order, id)
	return nil
}

func (r *MemoryRepository) DeleteLessonsByChapter(ctx context.Context, chapterID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted []string
	for id, l := range r.lessons {
		if l.ChapterID == chapterID {
			deleted = append(deleted, id)
		}
	}
	r.byInsertion(deleted)
	for _, id := range deleted {
		delete(r.lessons, id)
		delete(r.order, id)
	}
	return deleted, nil
}

func (r *MemoryRepository) AppendLessonSlide(ctx context.Context, lessonID, slideID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[lessonID]
	if !ok {
		return ErrNotFound
	}
	if !contains(l.SlideIDs, slideID) {
		l.SlideIDs = append(l.SlideIDs, slideID)
	}
	return nil
}

func (r *MemoryRepository) RemoveLessonSlide(ctx context.Context, lessonID, slideID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[lessonID]
	if !ok {
		return ErrNotFound
	}
	l.SlideIDs = without(l.SlideIDs, slideID)
	return nil
}

// Slides

func (r *MemoryRepository) CreateSlide(ctx context.Context, s *models.Slide) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.slides[s.ID]; exists {
		return ErrConflict
	}
	r.slides[s.ID] = cloneSlide(s)
	r.track(s.ID)
	return nil
}

func (r *MemoryRepository) GetSlide(ctx context.Context, id string) (*models.Slide, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slides[id]
	if !ok {
		return nil, nil
	}
	return cloneSlide(s), nil
}

func (r *MemoryRepository) GetSlides(ctx context.Context, ids []string) ([]*models.Slide, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Slide, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.slides[id]; ok {
			out = append(out, cloneSlide(s))
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListSlidesByLesson(ctx context.Context, lessonID string) ([]*models.Slide, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, s := range r.slides {
		if s.LessonID == lessonID {
			ids = append(ids, id)
		}
	}
	r.byInsertion(ids)

	out := make([]*models.Slide, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneSlide(r.slides[id]))
	}
	models.SortSlides(out)
	return out, nil
}

func (r *MemoryRepository) UpdateSlide(ctx context.Context, s *models.Slide) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.slides[s.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneSlide(s)
	updated.LessonID = existing.LessonID
	updated.CreatedAt = existing.CreatedAt
	r.slides[s.ID] = updated
	return nil
}

func (r *MemoryRepository) DeleteSlide(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slides[id]; !ok {
		return ErrNotFound
	}
	delete(r.slides, id)
	delete(r.order, id)
	return nil
}

func (r *MemoryRepository) DeleteSlidesByLessons(ctx context.Context, lessonIDs []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.slides {
		if contains(lessonIDs, s.LessonID) {
			delete(r.slides, id)
			delete(r.order, id)
			n++
		}
	}
	return n, nil
}

// Quizzes

func (r *MemoryRepository) CreateQuiz(ctx context.Context, q *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.quizzes[q.ID]; exists {
		return ErrConflict
	}
	r.quizzes[q.ID] = cloneQuiz(q)
	r.track(q.ID)
	return nil
}

func (r *MemoryRepository) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quizzes[id]
	if !ok {
		return nil, nil
	}
	return cloneQuiz(q), nil
}

func (r *MemoryRepository) GetQuizzes(ctx context.Context, ids []string) ([]*models.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Quiz, 0, len(ids))
	for _, id := range ids {
		if q, ok := r.quizzes[id]; ok {
			out = append(out, cloneQuiz(q))
		}
	}
	return out, nil
}

func (r *MemoryRepository) UpdateQuiz(ctx context.Context, q *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.quizzes[q.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneQuiz(q)
	updated.ChapterID = existing.ChapterID
	updated.CreatedAt = existing.CreatedAt
	r.quizzes[q.ID] = updated
	return nil
}

func (r *MemoryRepository) DeleteQuiz(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[id]; !ok {
		return ErrNotFound
	}
	delete(r.quizzes, id)
	delete(r.order, id)
	return nil
}

// Enrollments

func enrollmentKey(userID, courseID string) string {
	return userID + "|" + courseID
}

func (r *MemoryRepository) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := enrollmentKey(e.UserID, e.CourseID)
	if _, exists := r.enrollmentKeys[key]; exists {
		return ErrConflict
	}
	r.enrollments[e.ID] = cloneEnrollment(e)
	r.enrollmentKeys[key] = e.ID
	r.track(e.ID)
	return nil
}

func (r *MemoryRepository) GetEnrollment(ctx context.Context, courseID, userID string) (*models.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.enrollmentKeys[enrollmentKey(userID, courseID)]
	if !ok {
		return nil, nil
	}
	return cloneEnrollment(r.enrollments[id]), nil
}

func (r *MemoryRepository) ListEnrollmentsByUser(ctx context.Context, userID string) ([]*models.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, e := range r.enrollments {
		if e.UserID == userID {
			ids = append(ids, id)
		}
	}
	r.byInsertion(ids)

	out := make([]*models.Enrollment, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneEnrollment(r.enrollments[id]))
	}
	return out, nil
}

func (r *MemoryRepository) UpdateEnrollment(ctx context.Context, e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.enrollments[e.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneEnrollment(e)
	updated.UserID = existing.UserID
	updated.CourseID = existing.CourseID
	updated.EnrolledAt = existing.EnrolledAt
	updated.IsCompleted = existing.IsCompleted || e.IsCompleted
	r.enrollments[e.ID] = updated
	return nil
}

func (r *MemoryRepository) TouchEnrollment(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return ErrNotFound
	}
	e.LastAccessedAt = at
	return nil
}

// Orphans

func (r *MemoryRepository) DeleteOrphanLessons(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, l := range r.lessons {
		if _, ok := r.chapters[l.ChapterID]; !ok {
			delete(r.lessons, id)
			delete(r.order, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteOrphanSlides(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.slides {
		if _, ok := r.lessons[s.LessonID]; !ok {
			delete(r.slides, id)
			delete(r.order, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteOrphanQuizzes(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, q := range r.quizzes {
		if _, ok := r.chapters[q.ChapterID]; !ok {
			delete(r.quizzes, id)
			delete(r.order, id)
			n++
		}
	}
	return n, nil
}

// Helpers

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func paginate(ids []string, limit, offset int) []string {
	if offset > 0 {
		if offset >= len(ids) {
			return nil
		}
		ids = ids[offset:]
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

func copyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.EnrolledCourses = copyStrings(u.EnrolledCourses)
	return &cp
}

func cloneCourse(c *models.Course) *models.Course {
	cp := *c
	cp.WillLearn = copyStrings(c.WillLearn)
	cp.Requirements = copyStrings(c.Requirements)
	cp.ChapterIDs = copyStrings(c.ChapterIDs)
	return &cp
}

func cloneChapter(ch *models.Chapter) *models.Chapter {
	cp := *ch
	cp.LessonIDs = copyStrings(ch.LessonIDs)
	return &cp
}

func cloneLesson(l *models.Lesson) *models.Lesson {
	cp := *l
	cp.SlideIDs = copyStrings(l.SlideIDs)
	cp.EstimatedDuration = copyIntPtr(l.EstimatedDuration)
	return &cp
}

func cloneSlide(s *models.Slide) *models.Slide {
	cp := *s
	if s.Options != nil {
		cp.Options = copyStrings(s.Options)
	}
	return &cp
}

func cloneQuiz(q *models.Quiz) *models.Quiz {
	cp := *q
	cp.Questions = make([]models.QuizQuestion, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Options = copyStrings(qq.Options)
		cp.Questions[i] = qq
	}
	cp.TimeLimit = copyIntPtr(q.TimeLimit)
	return &cp
}

func cloneEnrollment(e *models.Enrollment) *models.Enrollment {
	cp := *e
	cp.CompletedLessons = copyStrings(e.CompletedLessons)
	cp.CompletedQuizzes = copyStrings(e.CompletedQuizzes)
	return &cp
}
