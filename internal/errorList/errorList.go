package errorList

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrTooManyErrors is added to the ErrorList by the Trim method.
var ErrTooManyErrors = errors.New("too many errors")

// FileError is an error attributed to a source map file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// ErrorList wraps multiple errors as a single error.
type ErrorList []error

func (errs ErrorList) Error() string {
	if len(errs) == 0 {
		return "<no errors>"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", errs[0].Error(), len(errs[1:]))
}

// Details returns all errors of the list, one per line.
func (errs ErrorList) Details() string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// Is reports whether any error in the list matches target.
func (errs ErrorList) Is(target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrOrNil returns nil if ErrorList is empty, or the error otherwise.
func (errs ErrorList) ErrOrNil() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Append an error to the list.
//
// If err is an instance of ErrorList, the lists are concatenated together,
// otherwise err is appended at the end of the list. If err is nil, the list is
// returned unmodified.
//
//	err := parse(path)
//	errList = errList.Append(err)
func (errs ErrorList) Append(err error) ErrorList {
	if err == nil {
		return errs
	}
	if err, ok := err.(ErrorList); ok {
		return append(errs, err...)
	}
	return append(errs, err)
}

// AppendFile is similar to Append, but attributes err to the file at path.
func (errs ErrorList) AppendFile(path string, err error) ErrorList {
	if err == nil {
		return errs
	}
	return errs.Append(&FileError{Path: path, Err: err})
}

// Sort orders the list by file path, keeping the relative order of errors
// of the same file. Errors not attributed to a file come first.
func (errs ErrorList) Sort() {
	path := func(err error) string {
		var fe *FileError
		if errors.As(err, &fe) {
			return fe.Path
		}
		return ""
	}
	sort.SliceStable(errs, func(i, j int) bool { return path(errs[i]) < path(errs[j]) })
}

// Trim the error list if it has more than limit errors. If the list is trimmed,
// all extraneous errors are replaced with a single ErrTooManyErrors, making the
// returned ErrorList length of limit+1.
func (errs ErrorList) Trim(limit int) ErrorList {
	if len(errs) <= limit {
		return errs
	}

	return append(errs[:limit], ErrTooManyErrors)
}
