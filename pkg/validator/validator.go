// Package validator applies go-playground struct rules and reports failures
// keyed by JSON field name.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// FieldError is one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
	Kind  reflect.Kind
}

// Message renders the failure for API clients.
func (e FieldError) Message() string {
	name := strings.ReplaceAll(leafName(e.Field), "_", " ")
	switch e.Tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "url", "http_url":
		return fmt.Sprintf("The %s must be a valid URL.", name)
	case "oneof":
		return fmt.Sprintf("The %s must be one of: %s.", name, e.Param)
	case "slug":
		return fmt.Sprintf("The %s may only contain lowercase letters, digits and dashes.", name)
	case "min", "max":
		bound := "at least"
		if e.Tag == "max" {
			bound = "at most"
		}
		if e.Kind == reflect.String {
			return fmt.Sprintf("The %s must be %s %s characters.", name, bound, e.Param)
		}
		if e.Kind == reflect.Slice || e.Kind == reflect.Map {
			return fmt.Sprintf("The %s must have %s %s items.", name, bound, e.Param)
		}
		return fmt.Sprintf("The %s must be %s %s.", name, bound, e.Param)
	default:
		return fmt.Sprintf("The %s is invalid.", name)
	}
}

// leafName returns the last segment of a field path without its index, so
// "tags[0].label" becomes "label" and "tags[1]" becomes "tags".
func leafName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.Index(path, "["); i >= 0 {
		path = path[:i]
	}
	return path
}

// ValidationErrors collects every failed rule of one struct.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v))
	for _, e := range v {
		rule := e.Tag
		if e.Param != "" {
			rule += "=" + e.Param
		}
		parts = append(parts, e.Field+": "+rule)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields groups the messages by field.
func (v ValidationErrors) Fields() map[string][]string {
	out := make(map[string][]string, len(v))
	for _, e := range v {
		out[e.Field] = append(out[e.Field], e.Message())
	}
	return out
}

var (
	shared     *validator.Validate
	sharedOnce sync.Once
)

func instance() *validator.Validate {
	sharedOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || slugPattern.MatchString(s)
		})
		shared = v
	})
	return shared
}

// jsonName reports fields by their json (or form) name.
func jsonName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return f.Name
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// ValidateStruct checks s against its validate tags. Rule failures come back
// as ValidationErrors; anything else (such as a non-struct argument) is
// returned unchanged.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	var failed validator.ValidationErrors
	if !errors.As(err, &failed) {
		return err
	}
	out := make(ValidationErrors, 0, len(failed))
	for _, fe := range failed {
		out = append(out, FieldError{Field: fieldPath(fe), Tag: fe.Tag(), Param: fe.Param(), Kind: fe.Kind()})
	}
	return out
}

// fieldPath drops the root struct name from the namespace so nested fields
// read "values[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

// RegisterValidation adds a custom rule.
func RegisterValidation(tag string, fn validator.Func) error {
	return instance().RegisterValidation(tag, fn)
}
