package build

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/shurcooL/httpfs/filter"
	"github.com/shurcooL/httpfs/vfsutil"

	"github.com/gopherjs/sourcemaps/sourcemap"
)

// isMapFile reports whether the file at path may contain a source map.
func isMapFile(path string) bool {
	return strings.HasSuffix(path, ".map") || strings.HasSuffix(path, ".json")
}

// MapFS returns a file system with only the directories and source map files
// of fs.
func MapFS(fs http.FileSystem) http.FileSystem {
	return filter.Keep(fs, func(path string, fi os.FileInfo) bool {
		return fi.IsDir() || isMapFile(path)
	})
}

// cleanPath turns name into a rooted slash-separated path, the form
// http.FileSystem implementations expect.
func cleanPath(name string) string {
	return path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))
}

// ReadMap reads the source map at name from fs, returning its contents and
// modification time.
func ReadMap(fs http.FileSystem, name string) (string, time.Time, error) {
	name = cleanPath(name)
	fi, err := vfsutil.Stat(fs, name)
	if err != nil {
		return "", time.Time{}, err
	}
	if fi.IsDir() {
		return "", time.Time{}, fmt.Errorf("%s is a directory", name)
	}
	data, err := vfsutil.ReadFile(fs, name)
	if err != nil {
		return "", time.Time{}, err
	}
	return string(data), fi.ModTime(), nil
}

// FindMaps returns paths of all source map files under root in fs, in
// lexical order.
func FindMaps(fs http.FileSystem, root string) ([]string, error) {
	var paths []string
	err := vfsutil.Walk(fs, cleanPath(root), func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && isMapFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

var _ sourcemap.Supplier = (*FileSystemSupplier)(nil)

// FileSystemSupplier resolves index map section urls as paths of a file
// system. Relative urls are resolved against Dir.
type FileSystemSupplier struct {
	FS  http.FileSystem
	Dir string
	// Read, if not nil, is called for every map read by the supplier.
	Read func(path string, modTime time.Time)
}

// SourceMap implements sourcemap.Supplier.
func (s *FileSystemSupplier) SourceMap(url string) (string, error) {
	if strings.Contains(url, "://") {
		return "", fmt.Errorf("unsupported section url %q: only file paths can be resolved", url)
	}
	name := url
	if !path.IsAbs(name) {
		name = path.Join(cleanPath(s.Dir), name)
	}
	contents, modTime, err := ReadMap(s.FS, name)
	if err != nil {
		return "", err
	}
	if s.Read != nil {
		s.Read(cleanPath(name), modTime)
	}
	return contents, nil
}
