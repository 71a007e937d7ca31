// Package testingx provides helpers for use with the testing package.
package testingx

import "testing"

// Must wraps a (value, error) returning call made during test setup and fails
// the test immediately if the error is non-nil.
//
// Use it for fixtures that are known to be valid, such as a map produced by a
// Generator a few lines earlier. Assertions about the code under test should
// check errors explicitly, since Must only reports a generic message.
//
//	mustParse := testingx.Must[*sourcemap.Consumer](t)
//	c := mustParse(sourcemap.ParseMap(contents, nil))
func Must[T any](t *testing.T) func(v T, err error) T {
	return func(v T, err error) T {
		t.Helper()
		if err != nil {
			t.Fatalf("Got: unexpected setup error: %s. Want: no error.", err)
		}
		return v
	}
}
