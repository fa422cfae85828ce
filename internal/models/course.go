package models

import (
	"time"
)

// Category groups courses. Category CRUD lives outside this service; the
// catalog only reads categories and the seed loader creates them.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	ParentID    string    `json:"parentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Course is the root of the content hierarchy. ChapterIDs is the ordered
// back-reference list maintained by the hierarchy manager.
type Course struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          float64   `json:"price"`
	EstimationTime string    `json:"estimationTime"`
	CoverImage     string    `json:"coverImage,omitempty"`
	ThumbnailImage string    `json:"thumbnailImage,omitempty"`
	CategoryID     string    `json:"categoryId,omitempty"`
	WillLearn      []string  `json:"willLearn"`
	Requirements   []string  `json:"requirements"`
	ChapterIDs     []string  `json:"chapterIds"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CourseFilters contains filters for listing courses
type CourseFilters struct {
	CategoryID string
	Name       string
	Limit      int
	Offset     int
}
