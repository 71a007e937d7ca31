package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/gopherjs/sourcemaps/build"
	"github.com/gopherjs/sourcemaps/sourcemap"
)

// parsePosition parses a "line:column" pair.
func parsePosition(s string) (sourcemap.FilePosition, error) {
	line, column, ok := strings.Cut(s, ":")
	if !ok {
		return sourcemap.FilePosition{}, fmt.Errorf("invalid position %q, want line:column", s)
	}
	l, err := strconv.Atoi(line)
	if err != nil || l < 0 {
		return sourcemap.FilePosition{}, fmt.Errorf("invalid line in position %q", s)
	}
	c, err := strconv.Atoi(column)
	if err != nil || c < 0 {
		return sourcemap.FilePosition{}, fmt.Errorf("invalid column in position %q", s)
	}
	return sourcemap.FilePosition{Line: l, Column: c}, nil
}

var _ pflag.Value = (*positionValue)(nil)

// positionValue is a "line:column" flag.
type positionValue sourcemap.FilePosition

func (v *positionValue) String() string { return sourcemap.FilePosition(*v).String() }

func (v *positionValue) Set(s string) error {
	p, err := parsePosition(s)
	if err != nil {
		return err
	}
	*v = positionValue(p)
	return nil
}

func (v *positionValue) Type() string { return "line:column" }

// shift moves p, a position relative to the start of a piece of code, to the
// generated file the code starts at v in. The column only moves on the first
// line.
func (v *positionValue) shift(p sourcemap.FilePosition) sourcemap.FilePosition {
	if p.Line == 0 {
		p.Column += v.Column
	}
	p.Line += v.Line
	return p
}

var _ pflag.Value = (*extensionsValue)(nil)

// extensionsValue collects repeated "name=value" flags. Values that are valid
// JSON are kept as decoded JSON, anything else as a string.
type extensionsValue map[string]any

func (v extensionsValue) String() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, v[k])
	}
	return strings.Join(parts, ",")
}

func (v extensionsValue) Set(s string) error {
	name, raw, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("invalid extension %q, want name=value", s)
	}
	if !strings.HasPrefix(name, "x_") {
		return fmt.Errorf("extension name %q must start with x_", name)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	v[name] = value
	return nil
}

func (v extensionsValue) Type() string { return "name=value" }

var _ pflag.Value = (*mergePolicyValue)(nil)

// mergePolicyValue is a build.MergePolicy flag.
type mergePolicyValue build.MergePolicy

func (v *mergePolicyValue) String() string { return string(*v) }

func (v *mergePolicyValue) Set(s string) error {
	switch p := build.MergePolicy(s); p {
	case build.MergeNone, build.MergeKeep, build.MergeOverwrite:
		*v = mergePolicyValue(p)
		return nil
	default:
		return fmt.Errorf("unknown merge policy %q, want %q or %q", s, build.MergeKeep, build.MergeOverwrite)
	}
}

func (v *mergePolicyValue) Type() string { return "policy" }
