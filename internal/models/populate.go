package models

import (
	"fmt"
	"strings"
)

// PopulateLevel selects how deep a course read expands the hierarchy
type PopulateLevel int

const (
	PopulateNone PopulateLevel = iota
	PopulateChapters
	PopulateLessons
	PopulateSlides
	PopulateQuizzes
	PopulateFull
)

var populateNames = map[PopulateLevel]string{
	PopulateNone:     "none",
	PopulateChapters: "chapters",
	PopulateLessons:  "lessons",
	PopulateSlides:   "slides",
	PopulateQuizzes:  "quizzes",
	PopulateFull:     "full",
}

// String returns the lower-case name used in query strings
func (l PopulateLevel) String() string {
	if name, ok := populateNames[l]; ok {
		return name
	}
	return fmt.Sprintf("PopulateLevel(%d)", int(l))
}

// ParsePopulateLevel parses a level name, case-insensitively. The empty
// string means PopulateNone.
func ParsePopulateLevel(s string) (PopulateLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PopulateNone, nil
	}
	for level, name := range populateNames {
		if name == s {
			return level, nil
		}
	}
	return PopulateNone, fmt.Errorf("unknown populate level %q", s)
}

// IncludesChapters is true for every level above none
func (l PopulateLevel) IncludesChapters() bool {
	return l >= PopulateChapters && l <= PopulateFull
}

// IncludesLessons is true when chapter lessons are expanded
func (l PopulateLevel) IncludesLessons() bool {
	return l == PopulateLessons || l == PopulateSlides || l == PopulateFull
}

// IncludesSlides is true when lesson slides are expanded
func (l PopulateLevel) IncludesSlides() bool {
	return l == PopulateSlides || l == PopulateFull
}

// IncludesQuiz is true when the chapter quiz is expanded
func (l PopulateLevel) IncludesQuiz() bool {
	return l == PopulateQuizzes || l == PopulateFull
}
