package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/course-engine/internal/models"
)

// PostgreSQL error codes mapped to ErrConflict
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the connection pool for the migration runner
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// exec runs a mutation and maps "no row touched" to ErrNotFound
func (r *PostgresRepository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// execConditional runs a guarded update. When nothing matched it tells a
// missing row (ErrNotFound) from a failed guard (ErrConflict).
func (r *PostgresRepository) execConditional(ctx context.Context, op, table, id, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, mapPgError(err))
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// Categories

const categoryColumns = `id, name, description, image, parent_id, created_at, updated_at`

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	var parentID sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Image, &parentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ParentID = parentID.String
	return &c, nil
}

// CreateCategory creates a new category
func (r *PostgresRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (id, name, description, image, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Description, c.Image, nullString(c.ParentID), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", mapPgError(err))
	}
	return nil
}

// GetCategory retrieves a category by ID
func (r *PostgresRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// GetCategories retrieves categories by IDs
func (r *PostgresRepository) GetCategories(ctx context.Context, ids []string) ([]*models.Category, error) {
	if len(ids) == 0 {
		return []*models.Category{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.Category, len(ids))
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return inIDOrder(ids, byID), nil
}

// Users

// CreateUser creates a user row
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, email, name, enrolled_course_ids, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, u.ID, u.Email, u.Name, nonNil(u.EnrolledCourses), u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapPgError(err))
	}
	return nil
}

// GetUser retrieves a user by ID
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, name, enrolled_course_ids, created_at FROM users WHERE id = $1`

	var u models.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.EnrolledCourses, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// AddEnrolledCourse adds courseID to the user's enrolled list once
func (r *PostgresRepository) AddEnrolledCourse(ctx context.Context, userID, courseID string) error {
	query := `
		UPDATE users
		SET enrolled_course_ids = CASE
			WHEN $2 = ANY(enrolled_course_ids) THEN enrolled_course_ids
			ELSE array_append(enrolled_course_ids, $2)
		END
		WHERE id = $1
	`
	return r.exec(ctx, "add enrolled course", query, userID, courseID)
}

// Courses

const courseColumns = `id, name, description, price, estimation_time, cover_image, thumbnail_image,
	category_id, will_learn, requirements, chapter_ids, created_at, updated_at`

func scanCourse(row rowScanner) (*models.Course, error) {
	var c models.Course
	var categoryID sql.NullString
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Price,
		&c.EstimationTime,
		&c.CoverImage,
		&c.ThumbnailImage,
		&categoryID,
		&c.WillLearn,
		&c.Requirements,
		&c.ChapterIDs,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CategoryID = categoryID.String
	return &c, nil
}

// CreateCourse creates a new course record
func (r *PostgresRepository) CreateCourse(ctx context.Context, c *models.Course) error {
	query := `
		INSERT INTO courses (id, name, description, price, estimation_time, cover_image, thumbnail_image,
			category_id, will_learn, requirements, chapter_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		c.Price,
		c.EstimationTime,
		c.CoverImage,
		c.ThumbnailImage,
		nullString(c.CategoryID),
		nonNil(c.WillLearn),
		nonNil(c.Requirements),
		nonNil(c.ChapterIDs),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", mapPgError(err))
	}
	return nil
}

// GetCourse retrieves a course by ID
func (r *PostgresRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	c, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return c, nil
}

// courseWhere builds the WHERE clause shared by ListCourses and CountCourses
func courseWhere(filters models.CourseFilters) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}

	if filters.CategoryID != "" {
		args = append(args, filters.CategoryID)
		where += fmt.Sprintf(" AND category_id = $%d", len(args))
	}

	if filters.Name != "" {
		args = append(args, filters.Name)
		where += fmt.Sprintf(" AND name = $%d", len(args))
	}

	return where, args
}

// ListCourses lists courses in insertion order with optional filters
func (r *PostgresRepository) ListCourses(ctx context.Context, filters models.CourseFilters) ([]*models.Course, error) {
	where, args := courseWhere(filters)
	query := `SELECT ` + courseColumns + ` FROM courses` + where + ` ORDER BY seq ASC`

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate courses: %w", err)
	}
	return courses, nil
}

// CountCourses counts the courses matching filters, ignoring Limit and Offset
func (r *PostgresRepository) CountCourses(ctx context.Context, filters models.CourseFilters) (int, error) {
	where, args := courseWhere(filters)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}

// UpdateCourse updates the course's own fields. chapter_ids is maintained
// only by AppendCourseChapter and RemoveCourseChapter.
func (r *PostgresRepository) UpdateCourse(ctx context.Context, c *models.Course) error {
	query := `
		UPDATE courses
		SET name = $2, description = $3, price = $4, estimation_time = $5, cover_image = $6,
			thumbnail_image = $7, category_id = $8, will_learn = $9, requirements = $10, updated_at = $11
		WHERE id = $1
	`
	return r.exec(ctx, "update course", query,
		c.ID,
		c.Name,
		c.Description,
		c.Price,
		c.EstimationTime,
		c.CoverImage,
		c.ThumbnailImage,
		nullString(c.CategoryID),
		nonNil(c.WillLearn),
		nonNil(c.Requirements),
		c.UpdatedAt,
	)
}

// DeleteCourse deletes a course by ID
func (r *PostgresRepository) DeleteCourse(ctx context.Context, id string) error {
	return r.exec(ctx, "delete course", `DELETE FROM courses WHERE id = $1`, id)
}

// AppendCourseChapter appends chapterID to the course's chapter list once
func (r *PostgresRepository) AppendCourseChapter(ctx context.Context, courseID, chapterID string) error {
	query := `
		UPDATE courses
		SET chapter_ids = CASE
			WHEN $2 = ANY(chapter_ids) THEN chapter_ids
			ELSE array_append(chapter_ids, $2)
		END,
		updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, "append course chapter", query, courseID, chapterID)
}

// RemoveCourseChapter pulls chapterID out of the course's chapter list
func (r *PostgresRepository) RemoveCourseChapter(ctx context.Context, courseID, chapterID string) error {
	query := `UPDATE courses SET chapter_ids = array_remove(chapter_ids, $2), updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "remove course chapter", query, courseID, chapterID)
}

// Chapters

const chapterColumns = `id, title, description, order_index, course_id, lesson_ids, quiz_id, created_at, updated_at`

func scanChapter(row rowScanner) (*models.Chapter, error) {
	var ch models.Chapter
	var quizID sql.NullString
	err := row.Scan(
		&ch.ID,
		&ch.Title,
		&ch.Description,
		&ch.OrderIndex,
		&ch.CourseID,
		&ch.LessonIDs,
		&quizID,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ch.QuizID = quizID.String
	return &ch, nil
}

func (r *PostgresRepository) queryChapters(ctx context.Context, query string, args ...any) ([]*models.Chapter, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*models.Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chapters: %w", err)
	}
	return chapters, nil
}

// CreateChapter creates a new chapter record
func (r *PostgresRepository) CreateChapter(ctx context.Context, ch *models.Chapter) error {
	query := `
		INSERT INTO chapters (id, title, description, order_index, course_id, lesson_ids, quiz_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		ch.ID,
		ch.Title,
		ch.Description,
		ch.OrderIndex,
		ch.CourseID,
		nonNil(ch.LessonIDs),
		nullString(ch.QuizID),
		ch.CreatedAt,
		ch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chapter: %w", mapPgError(err))
	}
	return nil
}

// GetChapter retrieves a chapter by ID
func (r *PostgresRepository) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE id = $1`, id)
	ch, err := scanChapter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return ch, nil
}

// GetChapters retrieves chapters in the order of ids, skipping missing ones
func (r *PostgresRepository) GetChapters(ctx context.Context, ids []string) ([]*models.Chapter, error) {
	if len(ids) == 0 {
		return []*models.Chapter{}, nil
	}
	chapters, err := r.queryChapters(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Chapter, len(chapters))
	for _, ch := range chapters {
		byID[ch.ID] = ch
	}
	return inIDOrder(ids, byID), nil
}

// ListChaptersByCourse lists a course's chapters by order index
func (r *PostgresRepository) ListChaptersByCourse(ctx context.Context, courseID string) ([]*models.Chapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM chapters WHERE course_id = $1 ORDER BY order_index ASC, seq ASC`
	return r.queryChapters(ctx, query, courseID)
}

// UpdateChapter updates title, description and order index
func (r *PostgresRepository) UpdateChapter(ctx context.Context, ch *models.Chapter) error {
	query := `
		UPDATE chapters
		SET title = $2, description = $3, order_index = $4, updated_at = $5
		WHERE id = $1
	`
	return r.exec(ctx, "update chapter", query, ch.ID, ch.Title, ch.Description, ch.OrderIndex, ch.UpdatedAt)
}

// DeleteChapter deletes a chapter by ID
func (r *PostgresRepository) DeleteChapter(ctx context.Context, id string) error {
	return r.exec(ctx, "delete chapter", `DELETE FROM chapters WHERE id = $1`, id)
}

// AttachLesson appends a lesson while the quiz slot is empty
func (r *PostgresRepository) AttachLesson(ctx context.Context, chapterID, lessonID string) error {
	query := `
		UPDATE chapters
		SET lesson_ids = CASE
			WHEN $2 = ANY(lesson_ids) THEN lesson_ids
			ELSE array_append(lesson_ids, $2)
		END,
		updated_at = NOW()
		WHERE id = $1 AND quiz_id IS NULL
	`
	return r.execConditional(ctx, "attach lesson", "chapters", chapterID, query, chapterID, lessonID)
}

// DetachLesson pulls a lesson out of the chapter's lesson list
func (r *PostgresRepository) DetachLesson(ctx context.Context, chapterID, lessonID string) error {
	query := `UPDATE chapters SET lesson_ids = array_remove(lesson_ids, $2), updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "detach lesson", query, chapterID, lessonID)
}

// AttachQuiz sets the quiz slot while it is empty and no lessons exist
func (r *PostgresRepository) AttachQuiz(ctx context.Context, chapterID, quizID string) error {
	query := `
		UPDATE chapters
		SET quiz_id = $2, updated_at = NOW()
		WHERE id = $1 AND quiz_id IS NULL AND cardinality(lesson_ids) = 0
	`
	return r.execConditional(ctx, "attach quiz", "chapters", chapterID, query, chapterID, quizID)
}

// DetachQuiz unsets the quiz slot if it still holds quizID
func (r *PostgresRepository) DetachQuiz(ctx context.Context, chapterID, quizID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chapters SET quiz_id = CASE WHEN quiz_id = $2 THEN NULL ELSE quiz_id END, updated_at = NOW() WHERE id = $1`,
		chapterID, quizID,
	)
	if err != nil {
		return fmt.Errorf("failed to detach quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Lessons

const lessonColumns = `id, title, description, order_index, chapter_id, estimated_duration, slide_ids, created_at, updated_at`

func scanLesson(row rowScanner) (*models.Lesson, error) {
	var l models.Lesson
	var duration sql.NullInt32
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.OrderIndex,
		&l.ChapterID,
		&duration,
		&l.SlideIDs,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.EstimatedDuration = intPtr(duration)
	return &l, nil
}

func (r *PostgresRepository) queryLessons(ctx context.Context, query string, args ...any) ([]*models.Lesson, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lessons: %w", err)
	}
	return lessons, nil
}

// CreateLesson creates a new lesson record
func (r *PostgresRepository) CreateLesson(ctx context.Context, l *models.Lesson) error {
	query := `
		INSERT INTO lessons (id, title, description, order_index, chapter_id, estimated_duration, slide_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		l.ID,
		l.Title,
		l.Description,
		l.OrderIndex,
		l.ChapterID,
		nullInt(l.EstimatedDuration),
		nonNil(l.SlideIDs),
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", mapPgError(err))
	}
	return nil
}

// GetLesson retrieves a lesson by ID
func (r *PostgresRepository) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id)
	l, err := scanLesson(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return l, nil
}

// GetLessons retrieves lessons in the order of ids, skipping missing ones
func (r *PostgresRepository) GetLessons(ctx context.Context, ids []string) ([]*models.Lesson, error) {
	if len(ids) == 0 {
		return []*models.Lesson{}, nil
	}
	lessons, err := r.queryLessons(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Lesson, len(lessons))
	for _, l := range lessons {
		byID[l.ID] = l
	}
	return inIDOrder(ids, byID), nil
}

// ListLessonsByChapter lists a chapter's lessons by order index
func (r *PostgresRepository) ListLessonsByChapter(ctx context.Context, chapterID string) ([]*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE chapter_id = $1 ORDER BY order_index ASC, seq ASC`
	return r.queryLessons(ctx, query, chapterID)
}

// UpdateLesson updates the lesson's own fields
func (r *PostgresRepository) UpdateLesson(ctx context.Context, l *models.Lesson) error {
	query := `
		UPDATE lessons
		SET title = $2, description = $3, order_index = $4, estimated_duration = $5, updated_at = $6
		WHERE id = $1
	`
	return r.exec(ctx, "update lesson", query,
		l.ID, l.Title, l.Description, l.OrderIndex, nullInt(l.EstimatedDuration), l.UpdatedAt,
	)
}

// DeleteLesson deletes a lesson by ID
func (r *PostgresRepository) DeleteLesson(ctx context.Context, id string) error {
	return r.exec(ctx, "delete lesson", `DELETE FROM lessons WHERE id = $1`, id)
}

// DeleteLessonsByChapter deletes every lesson of a chapter and returns their IDs
func (r *PostgresRepository) DeleteLessonsByChapter(ctx context.Context, chapterID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM lessons WHERE chapter_id = $1 RETURNING id`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete lessons: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect deleted lessons: %w", err)
	}
	return ids, nil
}

// AppendLessonSlide appends slideID to the lesson's slide list once
func (r *PostgresRepository) AppendLessonSlide(ctx context.Context, lessonID, slideID string) error {
	query := `
		UPDATE lessons
		SET slide_ids = CASE
			WHEN $2 = ANY(slide_ids) THEN slide_ids
			ELSE array_append(slide_ids, $2)
		END,
		updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, "append lesson slide", query, lessonID, slideID)
}

// RemoveLessonSlide pulls slideID out of the lesson's slide list
func (r *PostgresRepository) RemoveLessonSlide(ctx context.Context, lessonID, slideID string) error {
	query := `UPDATE lessons SET slide_ids = array_remove(slide_ids, $2), updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "remove lesson slide", query, lessonID, slideID)
}

// Slides

const slideColumns = `id, title, type, text_content, image_url, order_index, lesson_id, options,
	question_hint, answer, created_at, updated_at`

func scanSlide(row rowScanner) (*models.Slide, error) {
	var s models.Slide
	var slideType string
	err := row.Scan(
		&s.ID,
		&s.Title,
		&slideType,
		&s.TextContent,
		&s.ImageURL,
		&s.OrderIndex,
		&s.LessonID,
		&s.Options,
		&s.Hint,
		&s.Answer,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Type = models.SlideType(slideType)
	if len(s.Options) == 0 {
		s.Options = nil
	}
	return &s, nil
}

func (r *PostgresRepository) querySlides(ctx context.Context, query string, args ...any) ([]*models.Slide, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slides: %w", err)
	}
	defer rows.Close()

	var slides []*models.Slide
	for rows.Next() {
		s, err := scanSlide(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slide: %w", err)
		}
		slides = append(slides, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slides: %w", err)
	}
	return slides, nil
}

// CreateSlide creates a new slide record
func (r *PostgresRepository) CreateSlide(ctx context.Context, s *models.Slide) error {
	query := `
		INSERT INTO slides (id, title, type, text_content, image_url, order_index, lesson_id, options,
			question_hint, answer, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Title,
		string(s.Type),
		s.TextContent,
		s.ImageURL,
		s.OrderIndex,
		s.LessonID,
		nonNil(s.Options),
		s.Hint,
		s.Answer,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create slide: %w", mapPgError(err))
	}
	return nil
}

// GetSlide retrieves a slide by ID
func (r *PostgresRepository) GetSlide(ctx context.Context, id string) (*models.Slide, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+slideColumns+` FROM slides WHERE id = $1`, id)
	s, err := scanSlide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get slide: %w", err)
	}
	return s, nil
}

// GetSlides retrieves slides in the order of ids, skipping missing ones
func (r *PostgresRepository) GetSlides(ctx context.Context, ids []string) ([]*models.Slide, error) {
	if len(ids) == 0 {
		return []*models.Slide{}, nil
	}
	slides, err := r.querySlides(ctx, `SELECT `+slideColumns+` FROM slides WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Slide, len(slides))
	for _, s := range slides {
		byID[s.ID] = s
	}
	return inIDOrder(ids, byID), nil
}

// ListSlidesByLesson lists a lesson's slides by order index
func (r *PostgresRepository) ListSlidesByLesson(ctx context.Context, lessonID string) ([]*models.Slide, error) {
	query := `SELECT ` + slideColumns + ` FROM slides WHERE lesson_id = $1 ORDER BY order_index ASC, seq ASC`
	return r.querySlides(ctx, query, lessonID)
}

// UpdateSlide updates the slide's own fields
func (r *PostgresRepository) UpdateSlide(ctx context.Context, s *models.Slide) error {
	query := `
		UPDATE slides
		SET title = $2, type = $3, text_content = $4, image_url = $5, order_index = $6, options = $7,
			question_hint = $8, answer = $9, updated_at = $10
		WHERE id = $1
	`
	return r.exec(ctx, "update slide", query,
		s.ID, s.Title, string(s.Type), s.TextContent, s.ImageURL, s.OrderIndex, nonNil(s.Options),
		s.Hint, s.Answer, s.UpdatedAt,
	)
}

// DeleteSlide deletes a slide by ID
func (r *PostgresRepository) DeleteSlide(ctx context.Context, id string) error {
	return r.exec(ctx, "delete slide", `DELETE FROM slides WHERE id = $1`, id)
}

// DeleteSlidesByLessons deletes every slide of the given lessons
func (r *PostgresRepository) DeleteSlidesByLessons(ctx context.Context, lessonIDs []string) (int, error) {
	if len(lessonIDs) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM slides WHERE lesson_id = ANY($1)`, lessonIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete slides: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Quizzes

const quizColumns = `id, title, description, chapter_id, questions, passing_score, time_limit, created_at, updated_at`

func scanQuiz(row rowScanner) (*models.Quiz, error) {
	var q models.Quiz
	var questionsJSON []byte
	var timeLimit sql.NullInt32
	err := row.Scan(
		&q.ID,
		&q.Title,
		&q.Description,
		&q.ChapterID,
		&questionsJSON,
		&q.PassingScore,
		&timeLimit,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questionsJSON, &q.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	q.TimeLimit = intPtr(timeLimit)
	return &q, nil
}

func (r *PostgresRepository) queryQuizzes(ctx context.Context, query string, args ...any) ([]*models.Quiz, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []*models.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quizzes: %w", err)
	}
	return quizzes, nil
}

// CreateQuiz creates a new quiz record
func (r *PostgresRepository) CreateQuiz(ctx context.Context, q *models.Quiz) error {
	questionsJSON, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	query := `
		INSERT INTO quizzes (id, title, description, chapter_id, questions, passing_score, time_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		q.ID,
		q.Title,
		q.Description,
		q.ChapterID,
		questionsJSON,
		q.PassingScore,
		nullInt(q.TimeLimit),
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create quiz: %w", mapPgError(err))
	}
	return nil
}

// GetQuiz retrieves a quiz by ID
func (r *PostgresRepository) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id)
	q, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return q, nil
}

// GetQuizzes retrieves quizzes in the order of ids, skipping missing ones
func (r *PostgresRepository) GetQuizzes(ctx context.Context, ids []string) ([]*models.Quiz, error) {
	if len(ids) == 0 {
		return []*models.Quiz{}, nil
	}
	quizzes, err := r.queryQuizzes(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}
	return inIDOrder(ids, byID), nil
}

// UpdateQuiz updates the quiz's own fields
func (r *PostgresRepository) UpdateQuiz(ctx context.Context, q *models.Quiz) error {
	questionsJSON, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	query := `
		UPDATE quizzes
		SET title = $2, description = $3, questions = $4, passing_score = $5, time_limit = $6, updated_at = $7
		WHERE id = $1
	`
	return r.exec(ctx, "update quiz", query,
		q.ID, q.Title, q.Description, questionsJSON, q.PassingScore, nullInt(q.TimeLimit), q.UpdatedAt,
	)
}

// DeleteQuiz deletes a quiz by ID
func (r *PostgresRepository) DeleteQuiz(ctx context.Context, id string) error {
	return r.exec(ctx, "delete quiz", `DELETE FROM quizzes WHERE id = $1`, id)
}

// Enrollments

const enrollmentColumns = `id, user_id, course_id, completed_lessons, completed_quizzes, progress, is_completed,
	enrolled_at, last_accessed_at`

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var e models.Enrollment
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.CourseID,
		&e.CompletedLessons,
		&e.CompletedQuizzes,
		&e.Progress,
		&e.IsCompleted,
		&e.EnrolledAt,
		&e.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEnrollment creates an enrollment; a duplicate pair yields ErrConflict
func (r *PostgresRepository) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, user_id, course_id, completed_lessons, completed_quizzes, progress, is_completed,
			enrolled_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.CourseID,
		nonNil(e.CompletedLessons),
		nonNil(e.CompletedQuizzes),
		e.Progress,
		e.IsCompleted,
		e.EnrolledAt,
		e.LastAccessedAt,
	)
	if err != nil {
		err = mapPgError(err)
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

// GetEnrollment retrieves the enrollment of a (user, course) pair
func (r *PostgresRepository) GetEnrollment(ctx context.Context, courseID, userID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1 AND user_id = $2`
	e, err := scanEnrollment(r.pool.QueryRow(ctx, query, courseID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

// ListEnrollmentsByUser lists a user's enrollments, oldest first
func (r *PostgresRepository) ListEnrollmentsByUser(ctx context.Context, userID string) ([]*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateEnrollment persists progress fields and the last access time.
// is_completed is latched in SQL.
func (r *PostgresRepository) UpdateEnrollment(ctx context.Context, e *models.Enrollment) error {
	query := `
		UPDATE enrollments
		SET completed_lessons = $2, completed_quizzes = $3, progress = $4, is_completed = is_completed OR $5,
			last_accessed_at = $6
		WHERE id = $1
	`
	return r.exec(ctx, "update enrollment", query,
		e.ID,
		nonNil(e.CompletedLessons),
		nonNil(e.CompletedQuizzes),
		e.Progress,
		e.IsCompleted,
		e.LastAccessedAt,
	)
}

// TouchEnrollment records an access without rewriting progress
func (r *PostgresRepository) TouchEnrollment(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE enrollments SET last_accessed_at = $2 WHERE id = $1`
	return r.exec(ctx, "touch enrollment", query, id, at)
}

// Orphans

// DeleteOrphanLessons removes lessons whose chapter no longer exists
func (r *PostgresRepository) DeleteOrphanLessons(ctx context.Context) (int, error) {
	return r.deleteOrphans(ctx, "lessons",
		`DELETE FROM lessons l WHERE NOT EXISTS (SELECT 1 FROM chapters c WHERE c.id = l.chapter_id)`)
}

// DeleteOrphanSlides removes slides whose lesson no longer exists
func (r *PostgresRepository) DeleteOrphanSlides(ctx context.Context) (int, error) {
	return r.deleteOrphans(ctx, "slides",
		`DELETE FROM slides s WHERE NOT EXISTS (SELECT 1 FROM lessons l WHERE l.id = s.lesson_id)`)
}

// DeleteOrphanQuizzes removes quizzes whose chapter no longer exists
func (r *PostgresRepository) DeleteOrphanQuizzes(ctx context.Context) (int, error) {
	return r.deleteOrphans(ctx, "quizzes",
		`DELETE FROM quizzes q WHERE NOT EXISTS (SELECT 1 FROM chapters c WHERE c.id = q.chapter_id)`)
}

func (r *PostgresRepository) deleteOrphans(ctx context.Context, table, query string) (int, error) {
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan %s: %w", table, err)
	}
	return int(tag.RowsAffected()), nil
}

// Helper functions

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}

func inIDOrder[T any](ids []string, byID map[string]*T) []*T {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*p), Valid: true}
}

func intPtr(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
