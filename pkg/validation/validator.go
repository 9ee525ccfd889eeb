package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

// entities is the validator used for domain records before they are committed.
// It reads `validate` tags; request payloads go through Gin's `binding` tags instead.
var entities = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	registerCustom(v)
	return v
}

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("activity", func(fl validator.FieldLevel) bool {
		if k := fl.Field().Kind(); k != reflect.Float64 && k != reflect.Float32 {
			return false
		}
		f := fl.Field().Float()
		for _, a := range entity.ActivityFactors {
			if f == a {
				return true
			}
		}
		return false
	})
}

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the custom tags shared with entity validation.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		registerCustom(v)
	}
}

// Struct validates a domain record against its `validate` tags.
func Struct(s any) error {
	return entities.Struct(s)
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()
	kind := fe.Kind()

	switch tag {
	case "required":
		return "is required"
	case "required_if":
		return "is required if " + param
	case "required_without":
		return "is required when " + param + " is not present"

	case "min":
		if isNumberKind(kind) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(kind) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param

	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "dive":
		return "array validation failed"

	case "activity":
		parts := make([]string, 0, len(entity.ActivityFactors))
		for _, f := range entity.ActivityFactors {
			parts = append(parts, fmt.Sprint(f))
		}
		return "must be one of: " + strings.Join(parts, ", ")

	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
