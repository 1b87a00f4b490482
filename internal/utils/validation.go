package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	phoneTag   = "phone"
	phoneText  = "must be a valid phone number"
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9\s\-]{6,18}$`)

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"
)

// Validation bundles the validator with its English translator.
type Validation struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewValidation builds the validator used by services and handlers. Error
// fields are keyed by JSON name and custom tags carry English messages.
func NewValidation() *Validation {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return value == "" || phoneRegex.MatchString(value)
	})
	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if str, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(str) != ""
		}
		return false
	})

	noop := func(ut.Translator) error { return nil }
	_ = validate.RegisterTranslation(phoneTag, translator, noop, func(_ ut.Translator, _ validator.FieldError) string {
		return phoneText
	})
	_ = validate.RegisterTranslation(notBlankTag, translator, noop, func(_ ut.Translator, _ validator.FieldError) string {
		return notBlankText
	})

	return &Validation{Validate: validate, Translator: translator}
}

// Details converts validation errors into a field → message map.
// It returns nil when err is not a validation error.
func (v *Validation) Details(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	details := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		field := fieldPath(fe)
		details[field] = fe.Translate(v.Translator)
	}
	return details
}

func fieldPath(fe validator.FieldError) string {
	namespace := fe.Namespace()
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return fe.Field()
}
