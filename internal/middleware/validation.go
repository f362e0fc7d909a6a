package middleware

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Validator checks request structs against their validate tags. Field names
// in errors come from the query tag, falling back to json.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that also understands the detection_rule
// and results_layout tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("detection_rule", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseRule(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("results_layout", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseLayout(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"query", "json"} {
		switch name, _, _ := strings.Cut(fld.Tag.Get(tag), ","); name {
		case "-":
			return ""
		case "":
		default:
			return name
		}
	}
	return fld.Name
}

// Struct validates s and returns an APIError listing every failing field.
func (m *Validator) Struct(s interface{}) error {
	err := m.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// ContentTypeValidator rejects POST and PUT bodies whose media type is not
// in contentTypes.
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				errorHandler.HandleError(w, r, apierrors.ErrMissingContentType)
				return
			}

			mediaType, _, err := mime.ParseMediaType(contentType)
			if err == nil {
				for _, allowed := range contentTypes {
					if strings.EqualFold(mediaType, allowed) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			errorHandler.HandleError(w, r, apierrors.UnsupportedMediaType(contentType, contentTypes))
		})
	}
}

// fieldMessages render a failed tag; %[1]s is the field and %[2]s the tag
// parameter.
var fieldMessages = map[string]string{
	"required":       "%[1]s is required",
	"min":            "%[1]s must be at least %[2]s",
	"max":            "%[1]s must be at most %[2]s",
	"len":            "%[1]s must be exactly %[2]s characters",
	"numeric":        "%[1]s must contain only digits",
	"gte":            "%[1]s must be greater than or equal to %[2]s",
	"lte":            "%[1]s must be less than or equal to %[2]s",
	"gt":             "%[1]s must be greater than %[2]s",
	"lt":             "%[1]s must be less than %[2]s",
	"detection_rule": "%[1]s must be relative or absolute",
	"results_layout": "%[1]s must be v1 or v2",
}

func formatValidationError(fe validator.FieldError) string {
	if tmpl, ok := fieldMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	if fe.Tag() == "oneof" {
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
