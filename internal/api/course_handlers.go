package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/catalog"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/upload"
	"github.com/terra-clan/course-engine/internal/views"
)

// Multipart field names of the course images
const (
	coverImageField     = "coverImage"
	thumbnailImageField = "thumbnailImage"
)

// Course handlers

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	level, includeCategory, err := readQueryOptions(r)
	if err != nil {
		s.respondAppError(w, r, "list courses", err)
		return
	}

	page, limit, err := readPage(r)
	if err != nil {
		s.respondAppError(w, r, "list courses", err)
		return
	}

	query := models.CourseQuery{
		Populate:        level,
		IncludeCategory: includeCategory,
		CategoryID:      r.URL.Query().Get("category"),
		Page:            page,
		Limit:           limit,
	}

	courses, err := s.svc.Reader.FindAll(r.Context(), query)
	if err != nil {
		s.respondAppError(w, r, "list courses", err)
		return
	}

	body := map[string]interface{}{
		"courses": courses,
		"total":   len(courses),
	}
	if limit > 0 {
		total, err := s.svc.Reader.Count(r.Context(), query)
		if err != nil {
			s.respondAppError(w, r, "list courses", err)
			return
		}
		body["total"] = total
		body["page"] = page
		body["limit"] = limit
		body["totalPages"] = max(1, (total+limit-1)/limit)
	}

	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	level, includeCategory, err := readQueryOptions(r)
	if err != nil {
		s.respondAppError(w, r, "get course", err)
		return
	}

	course, err := s.svc.Reader.FindOne(r.Context(), chi.URLParam(r, "id"), level, includeCategory)
	if err != nil {
		s.respondAppError(w, r, "get course", err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}

// handleGetCourseAt serves one of the fixed population shortcuts
func (s *Server) handleGetCourseAt(find func(ctx context.Context, id string) (*views.CourseView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		course, err := find(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.respondAppError(w, r, "get course", err)
			return
		}
		respondJSON(w, http.StatusOK, course)
	}
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var (
		req models.CreateCourseRequest
		img catalog.Images
		err error
	)
	if isMultipart(r) {
		req, img, err = s.readCourseForm(r)
	} else {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.respondAppError(w, r, "create course", err)
		return
	}

	course, err := s.svc.Courses.CreateCourse(r.Context(), req, img)
	if err != nil {
		s.respondAppError(w, r, "create course", err)
		return
	}
	respondJSON(w, http.StatusCreated, course)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	var (
		req models.UpdateCourseRequest
		img catalog.Images
		err error
	)
	if isMultipart(r) {
		req, img, err = s.readCourseUpdateForm(r)
	} else {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.respondAppError(w, r, "update course", err)
		return
	}

	course, err := s.svc.Courses.UpdateCourse(r.Context(), chi.URLParam(r, "id"), req, img)
	if err != nil {
		s.respondAppError(w, r, "update course", err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.svc.Courses.RemoveCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, r, "delete course", err)
		return
	}
	respondJSON(w, http.StatusOK, course)
}

// readQueryOptions parses the populate and includeCategory parameters
func readQueryOptions(r *http.Request) (models.PopulateLevel, bool, error) {
	q := r.URL.Query()

	level, err := catalog.ParsePopulate(q.Get("populate"))
	if err != nil {
		return models.PopulateNone, false, err
	}

	includeCategory := false
	if raw := q.Get("includeCategory"); raw != "" {
		includeCategory, err = strconv.ParseBool(raw)
		if err != nil {
			return models.PopulateNone, false, apperr.Validation(map[string]string{
				"includeCategory": "must be true or false",
			})
		}
	}
	return level, includeCategory, nil
}

const maxPageLimit = 100

// readPage parses page and limit. Without limit the whole list is returned.
func readPage(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	page, limit := 1, 0
	fields := map[string]string{}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			fields["limit"] = fmt.Sprintf("must be a number between 1 and %d", maxPageLimit)
		}
		limit = n
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["page"] = "must be a positive number"
		}
		page = n
	}
	if len(fields) > 0 {
		return 0, 0, apperr.Validation(fields)
	}
	if limit == 0 && q.Get("page") != "" {
		limit = 10
	}
	return page, limit, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseForm reads a multipart body of at most MaxUploadBytes
func (s *Server) parseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		return apperr.Validation(map[string]string{"body": "invalid multipart body: " + err.Error()})
	}
	return nil
}

func (s *Server) readCourseForm(r *http.Request) (models.CreateCourseRequest, catalog.Images, error) {
	var req models.CreateCourseRequest
	if err := s.parseForm(r); err != nil {
		return req, catalog.Images{}, err
	}
	form := r.MultipartForm.Value

	req.Name = formValue(form, "name")
	req.Description = formValue(form, "description")
	req.EstimationTime = formValue(form, "estimationTime")
	req.CategoryID = formValue(form, "categoryId")
	req.CoverImage = formValue(form, coverImageField)
	req.ThumbnailImage = formValue(form, thumbnailImageField)

	var err error
	if raw := formValue(form, "price"); raw != "" {
		if req.Price, err = strconv.ParseFloat(raw, 64); err != nil {
			return req, catalog.Images{}, apperr.Validation(map[string]string{"price": "price must be a number"})
		}
	}
	if req.WillLearn, err = formList(form, "willLearn"); err != nil {
		return req, catalog.Images{}, err
	}
	if req.Requirements, err = formList(form, "requirements"); err != nil {
		return req, catalog.Images{}, err
	}

	img, err := readImages(r)
	return req, img, err
}

func (s *Server) readCourseUpdateForm(r *http.Request) (models.UpdateCourseRequest, catalog.Images, error) {
	var req models.UpdateCourseRequest
	if err := s.parseForm(r); err != nil {
		return req, catalog.Images{}, err
	}
	form := r.MultipartForm.Value

	req.Name = optionalValue(form, "name")
	req.Description = optionalValue(form, "description")
	req.EstimationTime = optionalValue(form, "estimationTime")
	req.CategoryID = optionalValue(form, "categoryId")

	if raw := optionalValue(form, "price"); raw != nil {
		price, err := strconv.ParseFloat(*raw, 64)
		if err != nil {
			return req, catalog.Images{}, apperr.Validation(map[string]string{"price": "price must be a number"})
		}
		req.Price = &price
	}
	for field, dst := range map[string]**[]string{"willLearn": &req.WillLearn, "requirements": &req.Requirements} {
		if _, ok := form[field]; !ok {
			continue
		}
		list, err := formList(form, field)
		if err != nil {
			return req, catalog.Images{}, err
		}
		*dst = &list
	}

	img, err := readImages(r)
	return req, img, err
}

func readImages(r *http.Request) (catalog.Images, error) {
	cover, err := readFile(r, coverImageField)
	if err != nil {
		return catalog.Images{}, err
	}
	thumb, err := readFile(r, thumbnailImageField)
	if err != nil {
		return catalog.Images{}, err
	}
	return catalog.Images{Cover: cover, Thumbnail: thumb}, nil
}

// readFile returns the uploaded file of field, or nil when none was sent
func readFile(r *http.Request, field string) (*upload.File, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation(map[string]string{field: err.Error()})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return &upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func formValue(form map[string][]string, key string) string {
	if v := form[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func optionalValue(form map[string][]string, key string) *string {
	if _, ok := form[key]; !ok {
		return nil
	}
	v := formValue(form, key)
	return &v
}

// formList accepts a list either as repeated fields or as one JSON array
func formList(form map[string][]string, key string) ([]string, error) {
	values := form[key]
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var list []string
		if err := json.Unmarshal([]byte(values[0]), &list); err != nil {
			return nil, apperr.Validation(map[string]string{key: "must be a JSON array of strings"})
		}
		return list, nil
	}

	list := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list, nil
}
