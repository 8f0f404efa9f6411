package validation

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
)

// Validator validates request data
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Err returns the collected errors, or nil when there are none.
func (v *Validator) Err() error {
	if v.HasErrors() {
		return v.errors
	}
	return nil
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// Min validates minimum integer value
func (v *Validator) Min(field string, value, min int) *Validator {
	if value < min {
		v.errors.Add(field, "Must be at least "+strconv.Itoa(min))
	}
	return v
}

// Range validates integer is within range
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors.Add(field, "Must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return v
}

// OneOf validates value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v // Empty is handled by Required
	}

	for _, a := range allowed {
		if value == a {
			return v
		}
	}

	v.errors.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// ExactlyOne validates that exactly one of the named values is set.
func (v *Validator) ExactlyOne(fields map[string]string) *Validator {
	set := 0
	for _, value := range fields {
		if strings.TrimSpace(value) != "" {
			set++
		}
	}
	if set != 1 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			v.errors.Add(name, "Exactly one of "+strings.Join(names, ", ")+" is required")
		}
	}
	return v
}

// Validatable is implemented by request types that check themselves.
type Validatable interface {
	Validate() error
}

// DecodeAndValidate decodes the JSON request body and validates it when the
// type implements Validatable.
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}

	return validate(&req)
}

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.SetAliasTag("query")
	return d
}()

// DecodeQuery decodes the query string into T using `query` struct tags
// and validates it when T implements Validatable.
func DecodeQuery[T any](r *http.Request) (*T, error) {
	var req T

	if err := queryDecoder.Decode(&req, r.URL.Query()); err != nil {
		return nil, apperrors.NewBadRequestError(err, "Invalid query parameters")
	}

	return validate(&req)
}

func validate[T any](req *T) (*T, error) {
	if v, ok := any(req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// PageParams are the page/rows query parameters used by the dashboard.
// Page is zero based.
type PageParams struct {
	Page int `query:"page"`
	Rows int `query:"rows"`
}

// Pagination converts page/rows into a limit and offset, falling back to
// defaultRows and capping at maxRows.
func (p PageParams) Pagination(defaultRows, maxRows int) PaginationParams {
	rows := p.Rows
	if rows <= 0 {
		rows = defaultRows
	}
	if rows > maxRows {
		rows = maxRows
	}
	page := max(p.Page, 0)
	return PaginationParams{Limit: rows, Offset: page * rows}
}
