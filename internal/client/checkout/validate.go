package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	expiryTag   = "expiry"
	expiryText  = "{0} must be in MM/YY format"
	expiryRegex = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
)

type checker struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newChecker() *checker {
	v := validator.New(validator.WithRequiredStructEnabled())

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(fmt.Errorf("register default translations: %w", err))
	}

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(expiryTag, func(fl validator.FieldLevel) bool {
		return expiryRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Errorf("register %s validation: %w", expiryTag, err))
	}
	if err := v.RegisterTranslation(expiryTag, trans,
		func(t ut.Translator) error { return t.Add(expiryTag, expiryText, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(expiryTag, fe.Field())
			return s
		},
	); err != nil {
		panic(fmt.Errorf("register %s translation: %w", expiryTag, err))
	}

	return &checker{validate: v, translator: trans}
}

// check returns nil or a *ValidationError listing every failed field.
func (c *checker) check(s any) *ValidationError {
	err := c.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Fields: []FieldError{{Error: err.Error()}}}
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Error: fe.Translate(c.translator)})
	}
	return out
}

func fieldRequired(field string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Error: field + " is a required field"}}}
}
