package model

import (
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateNode checks a Node for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the node is valid.
func ValidateNode(n *Node) error {
	var ve ValidationError

	id := strings.TrimSpace(n.ID)
	if id == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	} else if id != n.ID {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "must not have leading or trailing whitespace"})
	} else if len(n.ID) > 255 {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "must be 255 bytes or fewer"})
	}

	if !n.Kind.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{Field: "type", Message: "must be 1-50 characters"})
	}

	if len([]rune(n.Label)) > 500 {
		ve.Errors = append(ve.Errors, FieldError{Field: "label", Message: "must be 500 characters or fewer"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateEdge checks an Edge for constraint violations.
func ValidateEdge(e *Edge) error {
	var ve ValidationError

	if strings.TrimSpace(e.Source) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "source", Message: "is required"})
	}
	if strings.TrimSpace(e.Target) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "target", Message: "is required"})
	}
	if !e.Kind.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{Field: "type", Message: "must be 1-50 characters"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
