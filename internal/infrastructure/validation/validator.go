package validation

import (
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the singleton validator. Field names in errors follow the json
// tags, and these custom tags are registered:
//
//	notblank  string is not empty after trimming
//	http_url  absolute http(s) URL with a host
//	future    time.Time (or *time.Time, nil allowed) after now
//	slug      3-64 of [A-Za-z0-9_-]
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
			return fld.Name
		})

		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			field, ok := stringField(fl)
			return ok && strings.TrimSpace(field) != ""
		})

		_ = validate.RegisterValidation("http_url", func(fl validator.FieldLevel) bool {
			raw, ok := stringField(fl)
			if !ok {
				return false
			}
			u, err := url.Parse(strings.TrimSpace(raw))
			if err != nil {
				return false
			}
			return (u.Scheme == "http" || u.Scheme == "https") && strings.TrimSpace(u.Host) != ""
		})

		_ = validate.RegisterValidation("future", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() == reflect.Ptr {
				if field.IsNil() {
					return true
				}
				field = field.Elem()
			}
			if field.Type() != reflect.TypeOf(time.Time{}) {
				return false
			}
			return field.Interface().(time.Time).After(time.Now())
		})

		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			raw, ok := stringField(fl)
			if !ok {
				return false
			}
			if len(raw) < 3 || len(raw) > 64 {
				return false
			}
			for _, c := range raw {
				switch {
				case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
				default:
					return false
				}
			}
			return true
		})
	})
	return validate
}

// stringField dereferences *string fields so tags work on optional inputs.
func stringField(fl validator.FieldLevel) (string, bool) {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return "", false
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return "", false
	}
	return field.String(), true
}

// Validate validates a struct and returns an error if invalid
func Validate(s any) error {
	return Get().Struct(s)
}
