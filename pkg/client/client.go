package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/views"
)

// Client is a Go SDK for the course-engine API
type Client struct {
	http *resty.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient takes the transport and timeout of client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client.Transport != nil {
			c.http.SetTransport(client.Transport)
		}
		if client.Timeout > 0 {
			c.http.SetTimeout(client.Timeout)
		}
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithRetries retries requests that fail at the transport level or with a
// 5xx status.
func WithRetries(count int) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count).
			SetRetryWaitTime(500 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}
}

// NewClient creates a new course-engine client authenticating with token
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
	}
	if token != "" {
		c.http.SetAuthToken(token)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a failure reported by the API
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is an API not-found error
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// ListOptions selects how courses are listed. Limit 0 lists every course.
type ListOptions struct {
	Populate        models.PopulateLevel
	IncludeCategory bool
	CategoryID      string
	Page            int
	Limit           int
}

// ListCourses lists courses
func (c *Client) ListCourses(ctx context.Context, opts ListOptions) ([]*views.CourseView, error) {
	query := url.Values{}
	query.Set("populate", opts.Populate.String())
	query.Set("includeCategory", strconv.FormatBool(opts.IncludeCategory))
	if opts.CategoryID != "" {
		query.Set("category", opts.CategoryID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
	}

	data, err := c.do(ctx, http.MethodGet, "/api/v1/courses", query, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Courses []json.RawMessage `json:"courses"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	courses := make([]*views.CourseView, 0, len(result.Courses))
	for _, raw := range result.Courses {
		v, err := views.DecodeCourse(raw, opts.Populate)
		if err != nil {
			return nil, err
		}
		courses = append(courses, v)
	}
	return courses, nil
}

// GetCourse retrieves a course populated to level
func (c *Client) GetCourse(ctx context.Context, id string, level models.PopulateLevel, includeCategory bool) (*views.CourseView, error) {
	query := url.Values{}
	query.Set("populate", level.String())
	query.Set("includeCategory", strconv.FormatBool(includeCategory))

	data, err := c.do(ctx, http.MethodGet, "/api/v1/courses/"+url.PathEscape(id), query, nil)
	if err != nil {
		return nil, err
	}
	return views.DecodeCourse(data, level)
}

// CreateCourse creates a course from JSON; image URLs are taken as given
func (c *Client) CreateCourse(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	return call[models.Course](ctx, c, http.MethodPost, "/api/v1/courses", req)
}

// DeleteCourse removes a course
func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/courses/"+url.PathEscape(id), nil, nil)
	return err
}

// CreateChapter creates a chapter
func (c *Client) CreateChapter(ctx context.Context, req models.CreateChapterRequest) (*models.Chapter, error) {
	return call[models.Chapter](ctx, c, http.MethodPost, "/api/v1/chapters", req)
}

// DeleteChapter removes a chapter with its lessons, slides and quiz
func (c *Client) DeleteChapter(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/chapters/"+url.PathEscape(id), nil, nil)
	return err
}

// CreateLesson creates a lesson
func (c *Client) CreateLesson(ctx context.Context, req models.CreateLessonRequest) (*models.Lesson, error) {
	return call[models.Lesson](ctx, c, http.MethodPost, "/api/v1/lessons", req)
}

// DeleteLesson removes a lesson and its slides
func (c *Client) DeleteLesson(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/lessons/"+url.PathEscape(id), nil, nil)
	return err
}

// CreateQuiz creates a chapter quiz
func (c *Client) CreateQuiz(ctx context.Context, req models.CreateQuizRequest) (*models.Quiz, error) {
	return call[models.Quiz](ctx, c, http.MethodPost, "/api/v1/quizzes", req)
}

// DeleteQuiz removes a quiz
func (c *Client) DeleteQuiz(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/quizzes/"+url.PathEscape(id), nil, nil)
	return err
}

// CreateSlide creates a slide
func (c *Client) CreateSlide(ctx context.Context, req models.CreateSlideRequest) (*models.Slide, error) {
	return call[models.Slide](ctx, c, http.MethodPost, "/api/v1/slides", req)
}

// DeleteSlide removes a slide
func (c *Client) DeleteSlide(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/slides/"+url.PathEscape(id), nil, nil)
	return err
}

// Enroll enrolls the token's user in a course
func (c *Client) Enroll(ctx context.Context, courseID string) (*models.Enrollment, error) {
	return call[models.Enrollment](ctx, c, http.MethodPost, "/api/v1/courses/"+url.PathEscape(courseID)+"/enroll", nil)
}

// Progress returns the token user's enrollment in a course
func (c *Client) Progress(ctx context.Context, courseID string) (*models.Enrollment, error) {
	return call[models.Enrollment](ctx, c, http.MethodGet, "/api/v1/courses/"+url.PathEscape(courseID)+"/progress", nil)
}

// MarkLessonCompleted records a completed lesson
func (c *Client) MarkLessonCompleted(ctx context.Context, courseID, lessonID string) (*models.Enrollment, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/progress/lessons/%s", url.PathEscape(courseID), url.PathEscape(lessonID))
	return call[models.Enrollment](ctx, c, http.MethodPost, path, nil)
}

// MarkQuizCompleted records a completed quiz
func (c *Client) MarkQuizCompleted(ctx context.Context, courseID, quizID string) (*models.Enrollment, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/progress/quizzes/%s", url.PathEscape(courseID), url.PathEscape(quizID))
	return call[models.Enrollment](ctx, c, http.MethodPost, path, nil)
}

// MyEnrollments lists the token user's enrollments
func (c *Client) MyEnrollments(ctx context.Context) ([]*models.Enrollment, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/me/enrollments", nil, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Enrollments []*models.Enrollment `json:"enrollments"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Enrollments, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body interface{}) (*T, error) {
	data, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &v, nil
}

// do performs a request and returns the data of the response envelope
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &APIError{
			Status:  resp.StatusCode(),
			Code:    "invalid_response",
			Message: fmt.Sprintf("failed to unmarshal response: %v", err),
		}
	}

	if !env.Success || resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Code: "unknown_error", Message: resp.Status()}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Fields
		}
		return nil, apiErr
	}

	return env.Data, nil
}
