package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/models"
)

var (
	slideTypeTag  = "slide_type"
	slideTypeText = "{0} must be one of text, golden_info, quote, question"

	correctAnswerTag  = "correct_answer"
	correctAnswerText = "{0} must be the index of one of the options"

	requiredTag  = "required"
	requiredText = "{0} is required"
)

// Validator checks request DTOs and reports failures as apperr validation
// errors keyed by JSON field path.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New instantiates the validator with English messages
func New() *Validator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(slideTypeTag, slideTypeValidation)
	registerCustomTranslation(validate, trans, slideTypeTag, slideTypeText)

	validate.RegisterStructValidation(quizQuestionValidation, models.QuizQuestion{})
	registerCustomTranslation(validate, trans, correctAnswerTag, correctAnswerText)

	registerCustomTranslation(validate, trans, requiredTag, requiredText, true)

	return &Validator{validate: validate, trans: trans}
}

// Struct validates s. It returns nil or an *apperr.Error of kind validation.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation(map[string]string{"": err.Error()})
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(fe.Namespace())] = fe.Translate(v.trans)
	}
	return apperr.Validation(fields)
}

// fieldPath drops the root struct name: "CreateQuizRequest.questions[0].options"
// becomes "questions[0].options".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func registerCustomTranslation(validate *validator.Validate, trans ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func slideTypeValidation(fl validator.FieldLevel) bool {
	return models.SlideType(fl.Field().String()).IsValid()
}

func quizQuestionValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(models.QuizQuestion)
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		sl.ReportError(q.CorrectAnswer, "correctAnswer", "CorrectAnswer", correctAnswerTag, strconv.Itoa(len(q.Options)))
	}
}
