package views

import (
	"encoding/json"
	"fmt"

	"github.com/terra-clan/course-engine/internal/models"
)

// DecodeCourse restores a CourseView encoded at level. The level picks the
// concrete chapter and lesson types, which JSON alone cannot tell apart.
func DecodeCourse(data []byte, level models.PopulateLevel) (*CourseView, error) {
	var aux struct {
		CourseView
		Chapters []json.RawMessage `json:"chapters"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return nil, fmt.Errorf("failed to decode course view: %w", err)
	}

	v := aux.CourseView
	if !level.IncludesChapters() {
		return &v, nil
	}

	v.Chapters = make([]ChapterView, 0, len(aux.Chapters))
	for _, raw := range aux.Chapters {
		ch, err := decodeChapter(raw, level)
		if err != nil {
			return nil, err
		}
		v.Chapters = append(v.Chapters, ch)
	}
	return &v, nil
}

func decodeChapter(raw json.RawMessage, level models.PopulateLevel) (ChapterView, error) {
	switch level {
	case models.PopulateLessons, models.PopulateSlides:
		var aux struct {
			ChapterWithLessons
			Lessons []json.RawMessage `json:"lessons"`
		}
		if err := json.Unmarshal(raw, &aux); err != nil {
			return nil, fmt.Errorf("failed to decode chapter: %w", err)
		}
		lessons, err := decodeLessons(aux.Lessons, level.IncludesSlides())
		if err != nil {
			return nil, err
		}
		ch := aux.ChapterWithLessons
		ch.Lessons = lessons
		return ch, nil

	case models.PopulateQuizzes:
		var ch ChapterWithQuiz
		if err := json.Unmarshal(raw, &ch); err != nil {
			return nil, fmt.Errorf("failed to decode chapter: %w", err)
		}
		return ch, nil

	case models.PopulateFull:
		var aux struct {
			ChapterFull
			Lessons []json.RawMessage `json:"lessons"`
		}
		if err := json.Unmarshal(raw, &aux); err != nil {
			return nil, fmt.Errorf("failed to decode chapter: %w", err)
		}
		lessons, err := decodeLessons(aux.Lessons, true)
		if err != nil {
			return nil, err
		}
		ch := aux.ChapterFull
		ch.Lessons = lessons
		return ch, nil

	default:
		var ch ChapterStub
		if err := json.Unmarshal(raw, &ch); err != nil {
			return nil, fmt.Errorf("failed to decode chapter: %w", err)
		}
		return ch, nil
	}
}

func decodeLessons(raws []json.RawMessage, withSlides bool) ([]LessonView, error) {
	out := make([]LessonView, 0, len(raws))
	for _, raw := range raws {
		if withSlides {
			var l LessonWithSlides
			if err := json.Unmarshal(raw, &l); err != nil {
				return nil, fmt.Errorf("failed to decode lesson: %w", err)
			}
			if l.Slides == nil {
				l.Slides = []SlideView{}
			}
			out = append(out, l)
			continue
		}
		var l LessonRefs
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("failed to decode lesson: %w", err)
		}
		out = append(out, l)
	}
	return out, nil
}
