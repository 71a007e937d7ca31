package testingx

import (
	"testing"

	"golang.org/x/tools/txtar"
)

// Archive reads a txtar archive with test fixtures and returns its files by
// name. The archive comment is stored under the empty name.
func Archive(t *testing.T, path string) map[string]string {
	t.Helper()
	a, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatalf("Got: error reading test archive %q: %s. Want: no error.", path, err)
	}
	files := map[string]string{"": string(a.Comment)}
	for _, f := range a.Files {
		if _, ok := files[f.Name]; ok {
			t.Fatalf("Got: duplicate file %q in test archive %q. Want: unique file names.", f.Name, path)
		}
		files[f.Name] = string(f.Data)
	}
	return files
}

// ArchiveFile returns the named file of the archive, failing the test if it
// is missing.
func ArchiveFile(t *testing.T, files map[string]string, name string) string {
	t.Helper()
	data, ok := files[name]
	if !ok {
		t.Fatalf("Got: no file %q in test archive. Want: file present.", name)
	}
	return data
}
