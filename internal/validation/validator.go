// Package validation wraps go-playground/validator with the request rules of
// the API. Field errors are reported under their JSON names so clients can
// map them onto form inputs.
//
// A struct field may carry a `message:"..."` tag that replaces the generated
// text for every rule failing on that field, or `message_<rule>:"..."` for a
// single rule (message_personname, message_min, ...).
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/medication-adherence/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	personName = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

// FieldError is one failed rule, shaped for the response body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
	tag     string
}

// Tag returns the validator tag that failed.
func (e FieldError) Tag() string { return e.tag }

// RequestValidationError collects the field errors of one request.
type RequestValidationError struct {
	Fields []FieldError
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed any rule.
func (ve *RequestValidationError) Has(field string) bool {
	_, ok := ve.Lookup(field)
	return ok
}

// Lookup returns the first failure reported for field.
func (ve *RequestValidationError) Lookup(field string) (FieldError, bool) {
	for _, f := range ve.Fields {
		if f.Field == field {
			return f, true
		}
	}
	return FieldError{}, false
}

// GetValidator returns the shared validator with the custom tags registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
			return personName.MatchString(fl.Field().String())
		})
		mustRegister(v, "strongpassword", func(fl validator.FieldLevel) bool {
			return strongPassword(fl.Field().String())
		})
		mustRegister(v, "frequency", func(fl validator.FieldLevel) bool {
			return model.Frequency(fl.Field().String()).Valid()
		})
		mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
			_, err := model.ParseDate(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// strongPassword requires a lower-case letter, an upper-case letter and a digit.
func strongPassword(s string) bool {
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// ValidateStruct runs the rules on s, a pointer to a struct. It returns nil
// when s is valid.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Message: err.Error(), tag: "unknown"}}}
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	out := &RequestValidationError{Fields: make([]FieldError, 0, len(verrs))}
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		// one entry per field, the first failing rule wins
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: messageFor(t, fe),
			Value:   fe.Value(),
			tag:     fe.Tag(),
		})
	}
	return out
}

func messageFor(t reflect.Type, fe validator.FieldError) string {
	if t.Kind() == reflect.Struct {
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if msg := sf.Tag.Get("message_" + fe.Tag()); msg != "" {
				return msg
			}
			if msg := sf.Tag.Get("message"); msg != "" {
				return msg
			}
		}
	}
	return translate(fe)
}

var templates = map[string]string{
	"required":       "%s is required",
	"email":          "%s must be a valid email address",
	"personname":     "%s can only contain letters and spaces",
	"strongpassword": "%s must contain at least one lowercase letter, one uppercase letter, and one number",
	"frequency":      "%s is not a valid frequency",
	"isodate":        "%s must be a date in YYYY-MM-DD format",
}

func translate(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	if tpl, ok := templates[fe.Tag()]; ok {
		return fmt.Sprintf(tpl, field)
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
