package models

import (
	"time"
)

// Enrollment links one user to one course and tracks completion.
// Progress is derived from the completed sets and never set directly.
type Enrollment struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	CourseID         string    `json:"courseId"`
	CompletedLessons []string  `json:"completedLessons"`
	CompletedQuizzes []string  `json:"completedQuizzes"`
	Progress         int       `json:"progress"`
	IsCompleted      bool      `json:"isCompleted"`
	EnrolledAt       time.Time `json:"enrolledAt"`
	LastAccessedAt   time.Time `json:"lastAccessedAt"`
}

// HasCompletedLesson returns true if lessonID is in the completed lesson set
func (e *Enrollment) HasCompletedLesson(lessonID string) bool {
	return containsID(e.CompletedLessons, lessonID)
}

// HasCompletedQuiz returns true if quizID is in the completed quiz set
func (e *Enrollment) HasCompletedQuiz(quizID string) bool {
	return containsID(e.CompletedQuizzes, quizID)
}

// CompletedCount is the number of completed items of either kind
func (e *Enrollment) CompletedCount() int {
	return len(e.CompletedLessons) + len(e.CompletedQuizzes)
}

// User is owned by the auth collaborator; this service only keeps the
// enrolled course list in sync and reads the contact address.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	EnrolledCourses []string  `json:"enrolledCourses"`
	CreatedAt       time.Time `json:"createdAt"`
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
