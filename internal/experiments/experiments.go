// Package experiments manages optional behaviors of the source map codec that
// are off by default.
//
// GOPHERJS_SOURCEMAP_EXPERIMENT environment variable controls which of them
// are enabled, e.g. GOPHERJS_SOURCEMAP_EXPERIMENT=validate,strictlinecount.
package experiments

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// EnvVar is the name of the environment variable Env is populated from.
const EnvVar = "GOPHERJS_SOURCEMAP_EXPERIMENT"

var (
	// ErrInvalidDest is returned by parseFlags() when the dest argument does
	// not meet the requirements.
	ErrInvalidDest = errors.New("invalid flag struct")
	// ErrInvalidFormat is returned by parseFlags() when the raw flag string
	// format is not valid.
	ErrInvalidFormat = errors.New("invalid flag string format")
)

// Env contains experiment flag values from the GOPHERJS_SOURCEMAP_EXPERIMENT
// environment variable.
var Env Flags

func init() {
	if err := parseFlags(os.Getenv(EnvVar), &Env); err != nil {
		panic(fmt.Errorf("failed to parse %s flags: %w", EnvVar, err))
	}
}

// Flags contains flags for currently supported experiments.
type Flags struct {
	// Validate makes source map generators check their segment traversal
	// invariants and panic on violation.
	Validate bool `flag:"validate"`
	// StrictLineCount makes consumers reject mapping entries on lines past the
	// advisory "lineCount" field.
	StrictLineCount bool `flag:"strictlinecount"`
}

// String returns the enabled flags in the same format they are parsed from.
func (f Flags) String() string {
	enabled := []string{}
	v := reflect.ValueOf(f)
	for name, field := range fieldMap(v) {
		if field.Bool() {
			enabled = append(enabled, name)
		}
	}
	sort.Strings(enabled)
	return strings.Join(enabled, ",")
}

// Parse returns flags parsed from a raw comma-separated flag list, starting
// from the values in base. It is used to apply command line overrides on top
// of Env.
func Parse(raw string, base Flags) (Flags, error) {
	if err := parseFlags(raw, &base); err != nil {
		return Flags{}, err
	}
	return base, nil
}

// parseFlags parses the `raw` flags string and populates flag values in the
// `dest`.
//
// `raw` is a comma-separated experiment flag list: `<flag1>,<flag2>,...`. Each
// flag may be either `<name>` or `<name>=<value>`. Omitting value is equivalent
// to "<name> = true". Spaces around name and value are trimmed. Flag name
// can't be empty. If the same flag is specified multiple times, the last
// instance takes effect.
//
// `dest` must be a non-nil pointer to a struct with boolean fields tagged
// with `flag`. Unknown flags are ignored, so that a removed experiment left in
// the user's environment doesn't break anything.
func parseFlags(raw string, dest any) error {
	ptr := reflect.ValueOf(dest)
	if ptr.Kind() != reflect.Pointer || ptr.Type().Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: must be a pointer to a struct", ErrInvalidDest)
	}
	if ptr.IsNil() {
		return fmt.Errorf("%w: must not be nil", ErrInvalidDest)
	}
	fields := fieldMap(ptr.Elem())

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, val := entry, "true"
		if idx := strings.IndexByte(entry, '='); idx != -1 {
			key = strings.TrimSpace(entry[:idx])
			val = strings.TrimSpace(entry[idx+1:])
		}
		if key == "" {
			return fmt.Errorf("%w: empty flag name in %q", ErrInvalidFormat, entry)
		}

		field, ok := fields[key]
		if !ok {
			continue
		}
		if field.Kind() != reflect.Bool {
			return fmt.Errorf("%w: only boolean flags are supported", ErrInvalidDest)
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%w: can't parse %q as boolean for flag %q", ErrInvalidFormat, val, key)
		}
		field.SetBool(b)
	}
	return nil
}

// fieldMap returns struct fields keyed by their "flag" tag.
func fieldMap(s reflect.Value) map[string]reflect.Value {
	typ := s.Type()
	result := map[string]reflect.Value{}
	for i := 0; i < typ.NumField(); i++ {
		if name, ok := typ.Field(i).Tag.Lookup("flag"); ok {
			result[name] = s.Field(i)
		}
	}
	return result
}
