// Package cache keeps flattened index source maps between runs, so unchanged
// inputs don't need to be merged again.
package cache

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// Cacheable defines methods to serialize and deserialize cachable objects.
// This object should represent a flattened source map.
//
// The encode and decode functions are typically wrappers around gob.Encoder.Encode
// and gob.Decoder.Decode, but other formats are possible as well.
type Cacheable interface {
	Write(encode func(any) error) error
	Read(decode func(any) error) error
}

// Cache defines methods to store and load cacheable objects.
type Cache interface {

	// Store stores the map flattened from the index map at the given path.
	// Any error inside this method will cause the cache not to be persisted.
	//
	// The passed in buildTime is used to determine if the map is out-of-date
	// when reloaded. Typically it should be set to the input modification
	// time or time.Now().
	Store(c Cacheable, mapPath string, buildTime time.Time) bool

	// Load reads a previously cached map for the given index map path, if it
	// was previously stored.
	//
	// The loaded map would have been flattened with the same configuration as
	// the cache was.
	Load(c Cacheable, mapPath string, srcModTime time.Time) bool
}

// cacheRoot is the default base path for the cache of flattened maps.
var cacheRoot = func() string {
	path, err := os.UserCacheDir()
	if err == nil {
		return filepath.Join(path, "gopherjs", "sourcemaps_cache")
	}

	return filepath.Join(os.TempDir(), "gopherjs_sourcemaps_cache")
}()

// cachedPath returns a location inside the cache under root for a given set of
// key strings. The set of keys must uniquely identify cacheable object.
func cachedPath(root string, keys ...string) string {
	key := path.Join(keys...)
	if key == "" {
		panic("cachedPath() must not be used with an empty string")
	}
	sum := fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
	return filepath.Join(root, sum[0:2], sum)
}

// Clear the cache under dir, or the default cache when dir is empty. This
// will remove *all* cached maps from *all* configurations.
func Clear(dir string) error {
	if dir == "" {
		dir = cacheRoot
	}
	return os.RemoveAll(dir)
}

var _ Cache = (*MapCache)(nil)

// MapCache manages flattened source maps cached between runs.
//
// Cache is designed to be non-durable: any store and load errors are swallowed
// and simply lead to a cache miss. The caller must be able to handle cache
// misses. Nil pointer to MapCache is valid and simply disables caching.
//
// MapCache struct fields represent flattening parameters which change
// invalidates the cache. It is callers responsibility to ensure that maps
// passed to the Store function were flattened with the same parameters as the
// cache is configured.
//
// The cached files are gzip compressed, therefore each file uses the gzip
// checksum as a basic integrity check performed after reading the file.
type MapCache struct {
	// Dir overrides the default cache location.
	Dir string

	SourceRoot  string
	Prefix      string
	MergePolicy string
	// Extensions added to every flattened map, in a canonical text form.
	Extensions string
	// Experiments enabled while flattening, see experiments.Flags.String().
	Experiments string

	// Version should be set to the tool version.
	Version string
}

func (mc MapCache) String() string {
	return fmt.Sprintf("%#v", mc)
}

func (mc *MapCache) root() string {
	if mc.Dir != "" {
		return mc.Dir
	}
	return cacheRoot
}

func (mc *MapCache) Store(c Cacheable, mapPath string, buildTime time.Time) bool {
	if mc == nil {
		return false // Caching is disabled.
	}

	start := time.Now()
	path := cachedPath(mc.root(), mc.mapKey(mapPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		log.Warningf("Failed to create source map cache directory: %v", err)
		return false
	}
	// Write the map in a temporary file first to avoid concurrency errors.
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		log.Warningf("Failed to create temporary source map cache file: %v", err)
		return false
	}
	defer f.Close()
	if err := mc.serialize(c, buildTime, f); err != nil {
		log.Warningf("Failed to write cached map for %q: %v", mapPath, err)
		// Make sure we don't leave a half-written map behind.
		os.Remove(f.Name())
		return false
	}
	f.Close()
	// Rename fully written file into its permanent name.
	if err := os.Rename(f.Name(), path); err != nil {
		log.Warningf("Failed to rename cached map for %q to %q: %v", mapPath, path, err)
		return false
	}
	dur := time.Since(start).Round(time.Millisecond)
	log.Infof("Successfully stored flattened map for %q as %q (%v).", mapPath, path, dur)
	return true
}

func (mc *MapCache) Load(c Cacheable, mapPath string, srcModTime time.Time) bool {
	if mc == nil {
		return false // Caching is disabled.
	}

	start := time.Now()
	path := cachedPath(mc.root(), mc.mapKey(mapPath))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("No cached map for %q at %q.", mapPath, path)
		} else {
			log.Warningf("Failed to open cached map for %q at %q: %v", mapPath, path, err)
		}
		return false // Cache miss.
	}
	defer f.Close()
	buildTime, old, err := mc.deserialize(c, srcModTime, f)
	if err != nil {
		log.Warningf("Failed to read cached map for %q at %q: %v", mapPath, path, err)
		return false // Invalid/corrupted map, cache miss.
	}
	if old {
		log.Infof("Found out-of-date map for %q, flattened at %v.", mapPath, buildTime)
		return false // Cache miss, inputs changed since.
	}
	dur := time.Since(start).Round(time.Millisecond)
	log.Infof("Found cached map for %q, flattened at %v (%v).", mapPath, buildTime, dur)
	return true
}

func (mc *MapCache) serialize(c Cacheable, buildTime time.Time, w io.Writer) (err error) {
	zw := gzip.NewWriter(w)
	defer func() {
		// This close flushes the gzip but does not close the given writer.
		if closeErr := zw.Close(); err == nil {
			err = closeErr
		}
	}()

	ge := gob.NewEncoder(zw)
	if err := ge.Encode(buildTime); err != nil {
		return err
	}
	return c.Write(ge.Encode)
}

func (mc *MapCache) deserialize(c Cacheable, srcModTime time.Time, r io.Reader) (buildTime time.Time, old bool, err error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return buildTime, false, err
	}
	defer func() {
		// This close checks the gzip checksum but does not close the given reader.
		if closeErr := zr.Close(); err == nil {
			err = closeErr
		}
	}()

	gd := gob.NewDecoder(zr)
	if err := gd.Decode(&buildTime); err != nil {
		return buildTime, false, err
	}
	if srcModTime.After(buildTime) {
		return buildTime, true, nil // Inputs are newer, cache miss.
	}
	return buildTime, false, c.Read(gd.Decode)
}

// commonKey returns a part of the cache key common for all maps flattened
// under a given MapCache configuration.
func (mc *MapCache) commonKey() string {
	type commonKey struct {
		SourceRoot  string
		Prefix      string
		MergePolicy string
		Extensions  string
		Experiments string
		Version     string
	}
	ck := commonKey{
		SourceRoot:  mc.SourceRoot,
		Prefix:      mc.Prefix,
		MergePolicy: mc.MergePolicy,
		Extensions:  mc.Extensions,
		Experiments: mc.Experiments,
		Version:     mc.Version,
	}
	return fmt.Sprintf("%#v", ck)
}

// mapKey returns a full cache key for a flattened map.
func (mc *MapCache) mapKey(mapPath string) string {
	return path.Join("flatten", mc.commonKey(), mapPath)
}
