// Package forms validates entity drafts and drives the create/edit dialog.
package forms

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "{0} may only contain letters, digits, dashes and underscores"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w-]+$`)

	requiredText = "{0} is required"
	datetimeText = "{0} must be a date in YYYY-MM-DD format"
)

// FieldError is a validation failure on one field, keyed by its JSON name.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"message"`
	Tag   string `json:"type"`
}

// FieldErrors holds at most one error per invalid field, in declaration order.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, f := range fe {
		msgs = append(msgs, f.Error)
	}
	return strings.Join(msgs, "; ")
}

// For returns the message for field, if any.
func (fe FieldErrors) For(field string) (string, bool) {
	for _, f := range fe {
		if f.Field == field {
			return f.Error, true
		}
	}
	return "", false
}

// Validator checks drafts against the `validate` struct tags of the domain records.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator instantiates the validator with English messages.
func NewValidator() *Validator {
	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// money fields compare as numbers
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = validate.RegisterValidation(alphaNumUnderTag, func(fl validator.FieldLevel) bool {
		return alphaNumUnderRegex.MatchString(fl.Field().String())
	})
	registerTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText, false)

	for _, tag := range []string{"required", "required_if", "required_unless"} {
		registerTranslation(validate, translator, tag, requiredText, true)
	}
	registerTranslation(validate, translator, "datetime", datetimeText, true)

	return &Validator{validate: validate, translator: translator}
}

// registerTranslation registers a custom translation for the specified validation tag.
func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Validate checks v and returns nil when it passes.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate")
	}

	out := make(FieldErrors, 0, len(verrs))
	seen := make(map[string]struct{}, len(verrs))
	for _, fe := range verrs {
		if _, ok := seen[fe.Field()]; ok {
			continue
		}
		seen[fe.Field()] = struct{}{}
		out = append(out, FieldError{
			Field: fe.Field(),
			Error: fe.Translate(v.translator),
			Tag:   fe.Tag(),
		})
	}
	return out
}
