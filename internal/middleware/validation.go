package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "ecgprep/internal/errors"
)

// DefaultMaxBodySize bounds JSON request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 64 << 20

// RequestValidator decodes JSON request bodies and validates them using
// struct tags.
type RequestValidator struct {
	validator   *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewRequestValidator creates a new request validator
func NewRequestValidator(logger *slog.Logger, maxBodySize int64) *RequestValidator {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator:   v,
		logger:      logger.With(slog.String("component", "request_validator")),
		maxBodySize: maxBodySize,
	}
}

// MaxBodySize is the largest accepted request body in bytes.
func (m *RequestValidator) MaxBodySize() int64 { return m.maxBodySize }

// DecodeAndValidate reads r's JSON body into v and validates it. Failures are
// returned as *apperrors.ProblemDetails ready for the error handler.
func (m *RequestValidator) DecodeAndValidate(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return apperrors.NewProblemDetails(http.StatusBadRequest, apperrors.TypeValidation,
			"Invalid Request", "Request body is required", r.URL.Path)
	}
	if r.ContentLength > m.maxBodySize {
		return m.tooLarge(r)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, m.maxBodySize+1))
	if err != nil {
		m.logger.ErrorContext(r.Context(), "failed to read request body",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return apperrors.NewProblemDetails(http.StatusBadRequest, apperrors.TypeValidation,
			"Invalid Request", "Request body could not be read", r.URL.Path)
	}
	if int64(len(body)) > m.maxBodySize {
		return m.tooLarge(r)
	}

	if err := json.Unmarshal(body, v); err != nil {
		detail := "Request body contains invalid JSON"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			detail = fmt.Sprintf("Field %s has the wrong type", typeErr.Field)
		}
		return apperrors.NewProblemDetails(http.StatusBadRequest, apperrors.TypeValidation,
			"Invalid JSON", detail, r.URL.Path)
	}

	return m.ValidateStruct(r, v)
}

// ValidateStruct validates a struct and returns a field-level problem
func (m *RequestValidator) ValidateStruct(r *http.Request, v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewAppValidationError(err.Error())
	}

	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field:   fieldPath(fe),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationProblem(r.URL.Path, fields)
}

func (m *RequestValidator) tooLarge(r *http.Request) error {
	return apperrors.NewProblemDetails(
		http.StatusRequestEntityTooLarge,
		apperrors.TypePayloadTooLarge,
		"Payload Too Large",
		"Request body exceeds maximum allowed size",
		r.URL.Path,
	).WithExtension("max_size", m.maxBodySize)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// ContentTypeValidator ensures requests have proper content type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead ||
				r.Method == http.MethodDelete || r.Method == http.MethodOptions ||
				r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			problem := apperrors.NewProblemDetails(
				http.StatusUnsupportedMediaType,
				apperrors.TypeValidation,
				"Unsupported Media Type",
				fmt.Sprintf("Content-Type %q is not supported", contentType),
				r.URL.Path,
			).WithExtension("allowed", contentTypes)
			render.Render(w, r, problem)
		})
	}
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without", "required_without_all":
		return fmt.Sprintf("%s is required unless %s is set", field, strings.ReplaceAll(param, " ", " or "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "len":
		return fmt.Sprintf("%s must have length %s", field, param)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
