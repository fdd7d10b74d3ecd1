// Package intake validates emergency reports before they reach the engine.
//
// A report arrives as raw text fields. Validate checks field shapes with
// struct tags; Resolve additionally parses the numbers and resolves the
// house id to a world location. The engine is only called once Resolve
// succeeds, so a bad report can never be half-submitted.
package intake

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/grid"
)

// ErrMalformedNumber is returned when a numeric field does not parse
var ErrMalformedNumber = errors.New("invalid number")

// LocationResolver maps a location id to a world point
type LocationResolver interface {
	Resolve(id int) (grid.Point, error)
}

// Form is an emergency report as typed by a caller
type Form struct {
	PatientName string `json:"patient_name" validate:"required,max=32"`
	Age         string `json:"age" validate:"required,max=4,number"`
	Severity    string `json:"severity" validate:"max=16"`
	Description string `json:"description" validate:"max=200"`
	House       string `json:"house" validate:"required,max=6"`
}

// Request is a validated report ready for intake
type Request struct {
	Patient  engine.PatientInfo `json:"patient"`
	Location grid.Point         `json:"location"`
}

// FieldError describes one rejected field
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ValidationError collects every rejected field of a form
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.err.Error()
}

// Unwrap exposes the individual field errors to errors.Is and errors.As
func (e *ValidationError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// Fields returns the first message for each rejected field
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string)
	for _, err := range multierr.Errors(e.err) {
		var fe *FieldError
		if errors.As(err, &fe) {
			if _, exists := fields[fe.Field]; !exists {
				fields[fe.Field] = fe.Message
			}
		}
	}
	return fields
}

var fieldLabels = map[string]string{
	"patient_name": "Name",
	"age":          "Age",
	"severity":     "Severity",
	"description":  "Description",
	"house":        "House number",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims whitespace and canonicalizes the severity label
func (f Form) Normalize() Form {
	f.PatientName = strings.TrimSpace(f.PatientName)
	f.Age = strings.TrimSpace(f.Age)
	f.Description = strings.TrimSpace(f.Description)
	f.House = strings.TrimSpace(f.House)
	f.Severity = CanonicalSeverity(f.Severity)
	return f
}

// CanonicalSeverity maps known labels to their canonical spelling and blanks to Normal
func CanonicalSeverity(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return engine.SeverityNormal
	}
	for _, known := range engine.Severities() {
		if strings.EqualFold(label, known) {
			return known
		}
	}
	return label
}

// Validate checks field presence and lengths
func Validate(form Form) error {
	if errs := tagErrors(form.Normalize()); errs != nil {
		return &ValidationError{err: errs}
	}
	return nil
}

func tagErrors(form Form) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var errs error
	for _, fe := range verrs {
		errs = multierr.Append(errs, &FieldError{
			Field:   fe.Field(),
			Message: tagMessage(fe.Field(), fe.Tag(), fe.Param()),
		})
	}
	return errs
}

func tagMessage(field, tag, param string) string {
	label := fieldLabels[field]
	if label == "" {
		label = field
	}
	switch tag {
	case "required":
		return label + " required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, param)
	case "number":
		return "Invalid number"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// Resolve validates the form, parses its numbers and resolves the house to a location.
// Every failing field is reported, not just the first.
func Resolve(form Form, resolver LocationResolver) (Request, error) {
	form = form.Normalize()

	errs := tagErrors(form)

	age, ageErr := strconv.Atoi(form.Age)
	if form.Age != "" && ageErr != nil && !hasField(errs, "age") {
		errs = multierr.Append(errs, &FieldError{Field: "age", Message: "Invalid number", Err: ErrMalformedNumber})
	}

	var location grid.Point
	if !hasField(errs, "house") {
		house, err := strconv.Atoi(form.House)
		if err != nil {
			errs = multierr.Append(errs, &FieldError{Field: "house", Message: "Invalid number", Err: ErrMalformedNumber})
		} else if location, err = resolver.Resolve(house); err != nil {
			errs = multierr.Append(errs, &FieldError{Field: "house", Message: "House not found", Err: err})
		}
	}

	if errs != nil {
		return Request{}, &ValidationError{err: errs}
	}

	house, _ := strconv.Atoi(form.House)
	return Request{
		Patient: engine.PatientInfo{
			Name:        form.PatientName,
			Age:         age,
			Severity:    form.Severity,
			Description: form.Description,
			LocationID:  house,
		},
		Location: location,
	}, nil
}

func hasField(errs error, field string) bool {
	for _, err := range multierr.Errors(errs) {
		var fe *FieldError
		if errors.As(err, &fe) && fe.Field == field {
			return true
		}
	}
	return false
}

// FieldNames returns the rejected field names in sorted order
func FieldNames(err error) []string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	var names []string
	for name := range verr.Fields() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
