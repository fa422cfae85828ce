// Package seed loads course catalogs from YAML files and applies them
// through the domain services.
package seed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/course-engine/internal/models"
)

// File is one catalog file: a category and its courses
type File struct {
	Path     string       `yaml:"-"`
	Category *CategoryDef `yaml:"category"`
	Courses  []CourseDef  `yaml:"courses"`
}

type CategoryDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
}

type CourseDef struct {
	Name           string       `yaml:"name"`
	Description    string       `yaml:"description"`
	Price          float64      `yaml:"price"`
	EstimationTime string       `yaml:"estimationTime"`
	CoverImage     string       `yaml:"coverImage"`
	ThumbnailImage string       `yaml:"thumbnailImage"`
	WillLearn      []string     `yaml:"willLearn"`
	Requirements   []string     `yaml:"requirements"`
	Chapters       []ChapterDef `yaml:"chapters"`
}

// ChapterDef holds lessons or a quiz, never both
type ChapterDef struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	OrderIndex  int         `yaml:"orderIndex"`
	Lessons     []LessonDef `yaml:"lessons"`
	Quiz        *QuizDef    `yaml:"quiz"`
}

type LessonDef struct {
	Title             string     `yaml:"title"`
	Description       string     `yaml:"description"`
	OrderIndex        int        `yaml:"orderIndex"`
	EstimatedDuration *int       `yaml:"estimatedDuration"`
	Slides            []SlideDef `yaml:"slides"`
}

type SlideDef struct {
	Title       string           `yaml:"title"`
	Type        models.SlideType `yaml:"type"`
	TextContent string           `yaml:"textContent"`
	ImageURL    string           `yaml:"imageUrl"`
	OrderIndex  int              `yaml:"orderIndex"`
	Options     []string         `yaml:"options"`
	Hint        string           `yaml:"questionHint"`
	Answer      string           `yaml:"answer"`
}

type QuizDef struct {
	Title        string                `yaml:"title"`
	Description  string                `yaml:"description"`
	PassingScore *int                  `yaml:"passingScore"`
	TimeLimit    *int                  `yaml:"timeLimit"`
	Questions    []models.QuizQuestion `yaml:"questions"`
}

// LoadDir parses every *.yaml and *.yml file in dir and its direct
// subdirectories, in path order. Files that fail to parse are skipped.
func LoadDir(dir string) ([]*File, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to open seed directory: %w", err)
	}

	slog.Info("loading seed files", "dir", dir)

	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*/*.yaml", "*/*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	files := make([]*File, 0, len(paths))
	for _, path := range paths {
		f, err := LoadFile(path)
		if err != nil {
			slog.Warn("failed to load seed file", "file", path, "error", err)
			continue
		}
		files = append(files, f)
	}

	slog.Info("seed files loaded", "count", len(files), "total_files", len(paths))
	return files, nil
}

// LoadFile parses and checks a single catalog file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// Parse decodes and checks catalog YAML
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) check() error {
	if f.Category != nil && (f.Category.ID == "" || f.Category.Name == "") {
		return fmt.Errorf("category id and name are required")
	}
	for _, c := range f.Courses {
		if c.Name == "" {
			return fmt.Errorf("course name is required")
		}
		for _, ch := range c.Chapters {
			if len(ch.Lessons) > 0 && ch.Quiz != nil {
				return fmt.Errorf("course %q chapter %q: a chapter may hold lessons or a quiz, not both", c.Name, ch.Title)
			}
		}
	}
	return nil
}
