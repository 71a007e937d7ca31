// Package build loads source map files from disk, resolves the sections of
// index maps and flattens them into plain maps.
package build

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/gopherjs/sourcemaps/build/cache"
	"github.com/gopherjs/sourcemaps/internal/experiments"
	"github.com/gopherjs/sourcemaps/sourcemap"
)

// Version of the source map tooling, part of the cache key.
const Version = "1.0.0"

// MergePolicy tells how extensions of index map sections are merged into the
// flattened map.
type MergePolicy string

const (
	// MergeNone drops the extensions of sections.
	MergeNone MergePolicy = ""
	// MergeKeep keeps the first value seen for each extension.
	MergeKeep MergePolicy = "keep"
	// MergeOverwrite keeps the last value seen for each extension.
	MergeOverwrite MergePolicy = "overwrite"
)

func (p MergePolicy) action() (sourcemap.ExtensionMergeAction, error) {
	switch p {
	case MergeNone:
		return nil, nil
	case MergeKeep:
		return func(key string, current, incoming any) any { return current }, nil
	case MergeOverwrite:
		return func(key string, current, incoming any) any { return incoming }, nil
	default:
		return nil, fmt.Errorf("unknown extension merge policy %q, want one of %q, %q", string(p), MergeKeep, MergeOverwrite)
	}
}

// Options of a Session.
type Options struct {
	// Root is the directory map paths are resolved against, the working
	// directory by default.
	Root    string
	Verbose bool
	Watch   bool

	// NoCache disables the cache of flattened maps, CacheDir overrides its
	// location.
	NoCache  bool
	CacheDir string

	// Settings of flattened maps.
	SourceRoot  string
	Prefix      string
	Extensions  map[string]any
	MergePolicy MergePolicy
}

// Session loads and flattens source maps with the same options. In watch
// mode it also tracks every file it read.
type Session struct {
	options *Options
	fs      http.FileSystem
	cache   *cache.MapCache
	Watcher *fsnotify.Watcher
}

// NewSession returns a session for the given options.
func NewSession(options *Options) (*Session, error) {
	if options.Root == "" {
		options.Root = "."
	}
	options.Verbose = options.Verbose || options.Watch
	if _, err := options.MergePolicy.action(); err != nil {
		return nil, err
	}

	s := &Session{
		options: options,
		fs:      MapFS(http.Dir(options.Root)),
	}
	if !options.NoCache {
		exts, err := json.Marshal(options.Extensions)
		if err != nil {
			return nil, fmt.Errorf("failed to encode extensions: %w", err)
		}
		s.cache = &cache.MapCache{
			Dir:         options.CacheDir,
			SourceRoot:  options.SourceRoot,
			Prefix:      options.Prefix,
			MergePolicy: string(options.MergePolicy),
			Extensions:  string(exts),
			Experiments: experiments.Env.String(),
			Version:     Version,
		}
	}
	if options.Watch {
		var err error
		s.Watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to start file watcher: %w", err)
		}
	}
	return s, nil
}

// FS returns the file system the session reads maps from.
func (s *Session) FS() http.FileSystem { return s.fs }

func (s *Session) read(name string) (string, time.Time, error) {
	contents, modTime, err := ReadMap(s.fs, name)
	if err != nil {
		return "", time.Time{}, err
	}
	log.Debugf("Read %s (%d bytes).", name, len(contents))
	s.watch(name)
	return contents, modTime, nil
}

func (s *Session) watch(name string) {
	if s.Watcher == nil {
		return
	}
	file := filepath.Join(s.options.Root, filepath.FromSlash(cleanPath(name)))
	if err := s.Watcher.Add(file); err != nil {
		log.Warningf("Failed to watch %s: %v", file, err)
	}
}

func (s *Session) supplier(name string, read func(string, time.Time)) *FileSystemSupplier {
	return &FileSystemSupplier{
		FS:  s.fs,
		Dir: path.Dir(cleanPath(name)),
		Read: func(p string, modTime time.Time) {
			s.watch(p)
			if read != nil {
				read(p, modTime)
			}
		},
	}
}

// Load parses the source map at name. Url sections of index maps are read
// relative to the directory of name.
func (s *Session) Load(name string) (*sourcemap.Consumer, error) {
	contents, _, err := s.read(name)
	if err != nil {
		return nil, err
	}
	c, err := sourcemap.ParseMap(contents, s.supplier(name, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return c, nil
}

// resolve checks the envelope of the map at name and returns its file name
// and sections, as sourcemap.ResolveSections does. It also returns the latest
// modification time among the files read.
func (s *Session) resolve(name, contents string, modTime time.Time) (string, []sourcemap.Section, time.Time, error) {
	latest := modTime
	supplier := s.supplier(name, func(_ string, t time.Time) {
		if t.After(latest) {
			latest = t
		}
	})
	file, sections, err := sourcemap.ResolveSections(contents, supplier)
	if err != nil {
		return "", nil, time.Time{}, err
	}
	return file, sections, latest, nil
}

// flatMap is the cached result of flattening.
type flatMap struct{ Contents string }

func (m *flatMap) Write(encode func(any) error) error { return encode(m.Contents) }
func (m *flatMap) Read(decode func(any) error) error  { return decode(&m.Contents) }

// Flatten returns the map at name as a plain map with the session's source
// root, extensions and wrapper prefix. Index map sections are merged in
// order.
func (s *Session) Flatten(name string) (string, error) {
	contents, modTime, err := s.read(name)
	if err != nil {
		return "", err
	}
	file, sections, latest, err := s.resolve(name, contents, modTime)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	key := cleanPath(name)
	cached := &flatMap{}
	if s.cache.Load(cached, key, latest) {
		return cached.Contents, nil
	}

	action, err := s.options.MergePolicy.action()
	if err != nil {
		return "", err
	}
	g := sourcemap.NewGeneratorForFormat(sourcemap.FormatV3)
	g.SetSourceRoot(s.options.SourceRoot)
	g.SetWrapperPrefix(s.options.Prefix)
	keys := make([]string, 0, len(s.options.Extensions))
	for k := range s.options.Extensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := g.AddExtension(k, s.options.Extensions[k]); err != nil {
			return "", err
		}
	}

	for i, sec := range sections {
		if s.options.Verbose {
			log.Infof("Merging section %d of %s at %d:%d.", i, name, sec.Line, sec.Column)
		}
		if err := g.MergeMapSectionWithAction(sec.Line, sec.Column, sec.Value, action); err != nil {
			return "", fmt.Errorf("failed to merge section %d of %s: %w", i, name, err)
		}
	}

	var sb strings.Builder
	if _, err := g.AppendTo(&sb, file); err != nil {
		return "", err
	}
	s.cache.Store(&flatMap{Contents: sb.String()}, key, time.Now())
	return sb.String(), nil
}

// WaitForChange blocks until one of the files read by the session changes,
// then stops watching.
func (s *Session) WaitForChange() {
	log.Info("Watching for changes...")
	defer s.Watcher.Close()
	for {
		select {
		case ev, ok := <-s.Watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Infof("Change detected: %s", ev.Name)
			return
		case err, ok := <-s.Watcher.Errors:
			if !ok {
				return
			}
			log.Warningf("Watcher error: %s", err)
			return
		}
	}
}
