package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique identity such as an SRN is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when sign-in fails or no session token is supplied.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSlotUnavailable is returned when a booking overlaps an existing meeting.
	ErrSlotUnavailable = errors.New("application: time slot unavailable")
	// ErrMentorUnavailable is returned when a mentor is not accepting new mentees.
	ErrMentorUnavailable = errors.New("application: mentor unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// FirstMessage returns the message of the first field in declaration order of fields,
// falling back to any recorded message.
func (v *ValidationError) FirstMessage(fields ...string) string {
	if v == nil {
		return ""
	}
	for _, field := range fields {
		if msg, ok := v.FieldErrors[field]; ok {
			return msg
		}
	}
	keys := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return v.FieldErrors[keys[0]]
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}
