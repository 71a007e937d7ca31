package sourcemap

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownVersion is returned for maps with a version other than 3.
	ErrUnknownVersion = errors.New("unknown version")
	// ErrMissingFile is returned when the "file" entry is missing or empty.
	ErrMissingFile = errors.New("file entry is missing or empty")
	// ErrInvalidFormat is returned for maps that don't follow the expected
	// structure, such as index maps mixing sections with flat map fields.
	ErrInvalidFormat = errors.New("invalid map format")
	// ErrUnableToRetrieve is returned when a section url can't be resolved.
	ErrUnableToRetrieve = errors.New("unable to retrieve")
	// ErrInvalidExtension is returned for extension names without the "x_"
	// prefix.
	ErrInvalidExtension = errors.New("invalid extension name")
	// ErrEntryArity is returned for mapping entries that don't have 1, 4 or 5
	// values.
	ErrEntryArity = errors.New("unexpected number of values for entry")
)

// FormatError reports malformed or unsupported source map content.
type FormatError struct {
	Msg string
	Err error
}

func formatErrorf(err error, format string, args ...any) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *FormatError) Error() string {
	switch {
	case e.Msg == "":
		return fmt.Sprintf("source map format error: %v", e.Err)
	case e.Err == nil:
		return fmt.Sprintf("source map format error: %s", e.Msg)
	default:
		return fmt.Sprintf("source map format error: %s: %v", e.Msg, e.Err)
	}
}

func (e *FormatError) Unwrap() error { return e.Err }
