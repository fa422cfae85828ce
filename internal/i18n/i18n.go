// Package i18n holds the user-facing message catalog. English is the
// fallback locale; Arabic is the primary audience of the platform.
package i18n

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
)

// Message keys
const (
	KeyCategoryNotFound     = "category_not_found"
	KeyCourseNotFound       = "course_not_found"
	KeyChapterNotFound      = "chapter_not_found"
	KeyLessonNotFound       = "lesson_not_found"
	KeySlideNotFound        = "slide_not_found"
	KeyQuizNotFound         = "quiz_not_found"
	KeyChapterQuizNotFound  = "chapter_quiz_not_found"
	KeyUserNotFound         = "user_not_found"
	KeyEnrollmentNotFound   = "enrollment_not_found"
	KeyAlreadyEnrolled      = "already_enrolled"
	KeyChapterHasQuiz       = "chapter_has_quiz"
	KeyChapterHasLessons    = "chapter_has_lessons"
	KeyChapterQuizExists    = "chapter_quiz_exists"
	KeyQuestionSlideOptions = "question_slide_options"
	KeyCorrectAnswerRange   = "correct_answer_range"
	KeyInvalidPopulate      = "invalid_populate_level"
	KeyUploadFailed         = "upload_failed"
	KeyValidationFailed     = "validation_failed"
	KeyInternal             = "internal_error"
)

var messages = map[string]map[string]string{
	"en": {
		KeyCategoryNotFound:     "category with id {0} not found",
		KeyCourseNotFound:       "course with id {0} not found",
		KeyChapterNotFound:      "chapter with id {0} not found",
		KeyLessonNotFound:       "lesson with id {0} not found",
		KeySlideNotFound:        "slide with id {0} not found",
		KeyQuizNotFound:         "quiz with id {0} not found",
		KeyChapterQuizNotFound:  "no quiz is linked to chapter {0}",
		KeyUserNotFound:         "user with id {0} not found",
		KeyEnrollmentNotFound:   "enrollment not found for the given user",
		KeyAlreadyEnrolled:      "user is already enrolled in this course",
		KeyChapterHasQuiz:       "cannot add a lesson to a chapter that has a quiz; a chapter may hold lessons or a quiz only",
		KeyChapterHasLessons:    "cannot add a quiz to a chapter that has lessons; a chapter may hold lessons or a quiz only",
		KeyChapterQuizExists:    "this chapter already has a quiz; delete or update the existing quiz first",
		KeyQuestionSlideOptions: "a question slide needs at least two options and an answer",
		KeyCorrectAnswerRange:   "correct answer of question {0} is out of range",
		KeyInvalidPopulate:      "unknown populate level {0}",
		KeyUploadFailed:         "file upload failed",
		KeyValidationFailed:     "validation failed",
		KeyInternal:             "internal server error",
	},
	"ar": {
		KeyCategoryNotFound:     "التصنيف بالمعرف {0} غير موجود",
		KeyCourseNotFound:       "الدورة التدريبية بالمعرف {0} غير موجودة",
		KeyChapterNotFound:      "الفصل بالمعرف {0} غير موجود",
		KeyLessonNotFound:       "الدرس بالمعرف {0} غير موجود",
		KeySlideNotFound:        "الشريحة بالمعرف {0} غير موجودة",
		KeyQuizNotFound:         "الاختبار بالمعرف {0} غير موجود",
		KeyChapterQuizNotFound:  "لا يوجد اختبار مرتبط بالفصل {0}",
		KeyUserNotFound:         "المستخدم بالمعرف {0} غير موجود",
		KeyEnrollmentNotFound:   "تسجيل الدورة غير موجود للمستخدم المذكور",
		KeyAlreadyEnrolled:      "المستخدم مسجل بالفعل في هذه الدورة",
		KeyChapterHasQuiz:       "لا يمكن إضافة درس لفصل يحتوي على اختبار. يمكن للفصل احتواء دروس أو اختبار فقط.",
		KeyChapterHasLessons:    "لا يمكن إضافة اختبار لفصل يحتوي على دروس. يمكن للفصل احتواء دروس أو اختبار فقط.",
		KeyChapterQuizExists:    "هذا الفصل لديه اختبار بالفعل. يرجى حذف الاختبار الحالي أولاً أو تحديثه.",
		KeyQuestionSlideOptions: "تحتاج شريحة السؤال إلى خيارين على الأقل وإجابة",
		KeyCorrectAnswerRange:   "الإجابة الصحيحة للسؤال {0} خارج النطاق",
		KeyInvalidPopulate:      "مستوى التوسيع {0} غير معروف",
		KeyUploadFailed:         "فشل رفع الملف",
		KeyValidationFailed:     "فشل التحقق من البيانات",
		KeyInternal:             "خطأ داخلي في الخادم",
	},
}

// Catalog resolves translators by locale
type Catalog struct {
	uni *ut.UniversalTranslator
}

// NewCatalog builds the catalog and registers every message
func NewCatalog() (*Catalog, error) {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, ar.New())

	for locale, texts := range messages {
		trans, found := uni.GetTranslator(locale)
		if !found {
			return nil, fmt.Errorf("translator for %s not registered", locale)
		}
		for key, text := range texts {
			if err := trans.Add(key, text, false); err != nil {
				return nil, fmt.Errorf("failed to add %s/%s: %w", locale, key, err)
			}
		}
	}

	return &Catalog{uni: uni}, nil
}

// Universal exposes the underlying translator set so the validator can
// register its own translations on it.
func (c *Catalog) Universal() *ut.UniversalTranslator {
	return c.uni
}

// Default returns the English translator
func (c *Catalog) Default() ut.Translator {
	return c.uni.GetFallback()
}

// ForAcceptLanguage picks a translator from an Accept-Language header value.
// Quality values are ignored; header order wins.
func (c *Catalog) ForAcceptLanguage(header string) ut.Translator {
	var tags []string
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" || tag == "*" {
			continue
		}
		tag = strings.ToLower(strings.ReplaceAll(tag, "-", "_"))
		tags = append(tags, tag)
		if base, _, ok := strings.Cut(tag, "_"); ok {
			tags = append(tags, base)
		}
	}
	trans, _ := c.uni.FindTranslator(tags...)
	return trans
}

// Translate renders key with args, falling back to English and then to the
// key itself.
func (c *Catalog) Translate(trans ut.Translator, key string, args ...string) string {
	if trans != nil {
		if s, err := trans.T(key, args...); err == nil {
			return s
		}
	}
	if s, err := c.Default().T(key, args...); err == nil {
		return s
	}
	return key
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns a lazily built process-wide catalog
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog()
		if err != nil {
			panic(fmt.Sprintf("i18n: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// English renders key in English
func English(key string, args ...string) string {
	c := DefaultCatalog()
	return c.Translate(c.Default(), key, args...)
}
