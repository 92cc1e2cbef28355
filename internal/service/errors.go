package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound indicates the requested resource was not found.
var ErrNotFound = errors.New("not found")

// ValidationError represents a bad-request condition (HTTP 400).
// Field names the offending input when the error is tied to one.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ConflictError represents a conflict condition (HTTP 409).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnknownPermissionError lists codenames that are not in the catalog.
// It matches ErrNotFound with errors.Is.
type UnknownPermissionError struct {
	Codenames []string
}

func (e *UnknownPermissionError) Error() string {
	return fmt.Sprintf("unknown permission(s): %s", strings.Join(e.Codenames, ", "))
}

func (e *UnknownPermissionError) Unwrap() error { return ErrNotFound }

// fromValidator converts go-playground validation failures into a ValidationError
// for the first failing field (sorted for stable messages).
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	sort.Slice(verrs, func(i, j int) bool { return verrs[i].Field() < verrs[j].Field() })
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "category":
		return fmt.Sprintf("Select a valid choice. %v is not one of the available choices.", fe.Value())
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}
