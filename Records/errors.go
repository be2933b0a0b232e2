package Records

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCredentials is returned for any failed login, whatever the cause.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports missing or malformed request fields.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing required field(s): %s", strings.Join(e.Fields, ", "))
}

// NotFoundError reports an unmatched id lookup. Known lists the ids that do
// exist so the caller can spot a typo.
type NotFoundError struct {
	Kind  string
	ID    string
	Known []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// UnknownFieldsError is returned under the reject policy when a write carries
// keys the sheet header does not have.
type UnknownFieldsError struct {
	Sheet  string
	Fields []string
}

func (e *UnknownFieldsError) Error() string {
	return fmt.Sprintf("%s has no column for field(s): %s", e.Sheet, strings.Join(e.Fields, ", "))
}

// HeaderError reports a sheet whose header row lacks a column the operation
// depends on.
type HeaderError struct {
	Sheet  string
	Column string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s header has no %s column", e.Sheet, e.Column)
}

func requireFields(fields map[string]string, names ...string) error {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
