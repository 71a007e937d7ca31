package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/gopherjs/sourcemaps/base64vlq"
	gbuild "github.com/gopherjs/sourcemaps/build"
	"github.com/gopherjs/sourcemaps/build/cache"
	"github.com/gopherjs/sourcemaps/internal/concat"
	"github.com/gopherjs/sourcemaps/internal/errorList"
	"github.com/gopherjs/sourcemaps/internal/experiments"
	"github.com/gopherjs/sourcemaps/sourcemap"
)

// maxErrors is the number of errors reported by check before giving up.
const maxErrors = 20

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(handleError(err, cmd.ErrOrStderr()))
	}
}

func newRootCommand() *cobra.Command {
	options := &gbuild.Options{}
	exts := extensionsValue{}
	var (
		debug      bool
		configPath string
		experiment string
	)

	cmd := &cobra.Command{
		Use:   "sourcemaps",
		Short: "Inspect, merge and flatten source maps",
		Long: `sourcemaps reads and writes revision 3 source maps.

It answers lookups in both directions, joins generated files into index maps
and flattens index maps into plain ones.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(cmd.ErrOrStderr())
			switch {
			case debug:
				log.SetLevel(log.DebugLevel)
			case options.Verbose:
				log.SetLevel(log.InfoLevel)
			default:
				log.SetLevel(log.WarnLevel)
			}
			if len(exts) > 0 {
				options.Extensions = map[string]any(exts)
			}
			if configPath != "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				if err := cfg.apply(cmd.Flags(), options); err != nil {
					return err
				}
				if experiment == "" {
					experiment = cfg.Experiments
				}
			}
			if experiment != "" {
				flags, err := experiments.Parse(experiment, experiments.Env)
				if err != nil {
					return fmt.Errorf("invalid --experiment value: %w", err)
				}
				experiments.Env = flags
				log.Debugf("Enabled experiments: %s", flags)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&options.Verbose, "verbose", "v", false, "print progress information")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&options.Root, "root", ".", "directory map paths are relative to")
	flags.StringVar(&experiment, "experiment", "", "comma-separated experiments to enable, e.g. validate,strictlinecount")

	flagFlatten := pflag.NewFlagSet("", 0)
	flagFlatten.StringVar(&options.SourceRoot, "source-root", "", "sourceRoot of the flattened map")
	flagFlatten.StringVar(&options.Prefix, "prefix", "", "wrapper code that will be added before the generated file")
	flagFlatten.Var(exts, "extension", "extension to add to the flattened map, as x_name=value (repeatable)")
	flagFlatten.Var((*mergePolicyValue)(&options.MergePolicy), "merge-extensions", "how to merge section extensions: keep or overwrite")
	flagFlatten.BoolVar(&options.NoCache, "no-cache", false, "don't use the cache of flattened maps")
	flagFlatten.StringVar(&options.CacheDir, "cache-dir", "", "location of the cache of flattened maps")

	cmd.AddCommand(
		newLookupCommand(options),
		newReverseCommand(options),
		newSourcesCommand(options),
		newDumpCommand(options),
		newFlattenCommand(options, flagFlatten),
		newIndexCommand(options),
		newConcatCommand(),
		newCheckCommand(options),
		newVLQCommand(),
		newCacheCommand(options),
		newVersionCommand(),
	)
	return cmd
}

func loadMap(options *gbuild.Options, name string) (*sourcemap.Consumer, error) {
	s, err := gbuild.NewSession(options)
	if err != nil {
		return nil, err
	}
	return s.Load(name)
}

func newLookupCommand(options *gbuild.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup MAP LINE:COLUMN...",
		Short: "Print the original positions of 1-based generated positions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadMap(options, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, arg := range args[1:] {
				p, err := parsePosition(arg)
				if err != nil {
					return err
				}
				if m, ok := c.GetMappingForLine(p.Line, p.Column); ok {
					fmt.Fprintf(out, "%s\t%s\n", arg, m)
				} else {
					fmt.Fprintf(out, "%s\tunmapped\n", arg)
				}
			}
			return nil
		},
	}
}

func newReverseCommand(options *gbuild.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse MAP SOURCE LINE...",
		Short: "Print the generated positions produced from 0-based lines of an original source",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadMap(options, args[0])
			if err != nil {
				return err
			}
			c.PrepareReverseIndex()
			out := cmd.OutOrStdout()
			for _, arg := range args[2:] {
				line, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid line %q: %w", arg, err)
				}
				positions := c.GetReverseMapping(args[1], line, 0)
				parts := make([]string, len(positions))
				for i, p := range positions {
					parts[i] = p.String()
				}
				fmt.Fprintf(out, "%s:%d\t%s\n", args[1], line, strings.Join(parts, " "))
			}
			return nil
		},
	}
}

func newSourcesCommand(options *gbuild.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "sources MAP",
		Short: "List the original sources of a map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadMap(options, args[0])
			if err != nil {
				return err
			}
			for _, s := range c.OriginalSources() {
				fmt.Fprintln(cmd.OutOrStdout(), c.SourceRoot()+s)
			}
			return nil
		},
	}
}

func newDumpCommand(options *gbuild.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump MAP",
		Short: "Print the mapped ranges of a map, with 0-based positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadMap(options, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			c.VisitMappings(func(sourceName, symbolName string, sourceStart, start, end sourcemap.FilePosition) {
				fmt.Fprintf(out, "%v-%v\t%s:%v", start, end, sourceName, sourceStart)
				if symbolName != "" {
					fmt.Fprintf(out, "\t%s", symbolName)
				}
				fmt.Fprintln(out)
			})
			return nil
		},
	}
}

func newFlattenCommand(options *gbuild.Options, flagFlatten *pflag.FlagSet) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "flatten MAP",
		Short: "Merge the sections of an index map into a plain map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for {
				s, err := gbuild.NewSession(options)
				if err != nil {
					return err
				}
				flat, err := s.Flatten(args[0])
				if err == nil {
					err = writeOutput(cmd.OutOrStdout(), output, flat)
				}
				if s.Watcher == nil {
					return err
				}
				if err != nil {
					log.Errorf("%s", err)
				}
				s.WaitForChange()
			}
		},
	}
	cmd.Flags().AddFlagSet(flagFlatten)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the map to this file instead of stdout")
	cmd.Flags().BoolVarP(&options.Watch, "watch", "w", false, "flatten again whenever an input changes")
	return cmd
}

func writeOutput(stdout io.Writer, output, contents string) error {
	if output == "" {
		_, err := io.WriteString(stdout, contents)
		return err
	}
	return os.WriteFile(output, []byte(contents), 0o644)
}

func newIndexCommand(options *gbuild.Options) *cobra.Command {
	var (
		file   string
		inline bool
		offset positionValue
	)
	cmd := &cobra.Command{
		Use:   "index URL@LINE:COLUMN...",
		Short: "Write an index map with a section for each url at a 0-based offset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := gbuild.MapFS(http.Dir(options.Root))
			sections := make([]sourcemap.Section, 0, len(args))
			for _, arg := range args {
				i := strings.LastIndex(arg, "@")
				if i < 0 {
					return fmt.Errorf("invalid section %q, want url@line:column", arg)
				}
				url := arg[:i]
				p, err := parsePosition(arg[i+1:])
				if err != nil {
					return err
				}
				p = offset.shift(p)
				if !inline {
					sections = append(sections, sourcemap.SectionForURL(url, p.Line, p.Column))
					continue
				}
				contents, _, err := gbuild.ReadMap(fs, url)
				if err != nil {
					return err
				}
				sections = append(sections, sourcemap.SectionForMap(strings.TrimSpace(contents), p.Line, p.Column))
			}
			return sourcemap.NewGenerator().AppendIndexMapTo(cmd.OutOrStdout(), file, sections)
		},
	}
	cmd.Flags().StringVar(&file, "file", "out.js", "name of the generated file the index map describes")
	cmd.Flags().BoolVar(&inline, "inline", false, "embed the section maps instead of referencing them")
	cmd.Flags().Var(&offset, "offset", "position of the first line of the described code in the generated file, added to every section")
	return cmd
}

func newConcatCommand() *cobra.Command {
	var (
		output, mapOutput string
		link              bool
	)
	cmd := &cobra.Command{
		Use:   "concat FILE...",
		Short: "Join generated files and write an index map for the result",
		Long: `Join generated files and write an index map for the result.

Files with a FILE.map next to them get a section for it, other files are
mapped line by line to themselves.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mapOutput == "" {
				if output == "" {
					return fmt.Errorf("--map is required when writing the code to stdout")
				}
				mapOutput = output + ".map"
			}
			var code strings.Builder
			w := concat.New(&code)
			for _, name := range args {
				data, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				if !strings.HasSuffix(string(data), "\n") {
					data = append(data, '\n')
				}
				m, err := os.ReadFile(name + ".map")
				switch {
				case os.IsNotExist(err):
					err = w.AddIdentity(string(data), filepath.ToSlash(name))
				case err != nil:
				case link:
					err = w.AddURL(string(data), relativeURL(mapOutput, name+".map"))
				default:
					err = w.AddMap(string(data), strings.TrimSpace(string(m)))
				}
				if err != nil {
					return err
				}
			}

			if err := writeOutput(cmd.OutOrStdout(), output, code.String()); err != nil {
				return err
			}
			f, err := os.Create(mapOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			name := "out.js"
			if output != "" {
				name = filepath.Base(output)
			}
			if err := w.WriteIndexMap(f, name); err != nil {
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the joined code to this file instead of stdout")
	cmd.Flags().StringVar(&mapOutput, "map", "", "index map file, FILE.map of --output by default")
	cmd.Flags().BoolVar(&link, "link", false, "reference input maps by url instead of embedding them")
	return cmd
}

// relativeURL returns the url of target relative to the directory of from.
func relativeURL(from, target string) string {
	rel, err := filepath.Rel(filepath.Dir(from), target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return path.Clean(filepath.ToSlash(rel))
}

func newCheckCommand(options *gbuild.Options) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "check PATH...",
		Short: "Parse maps and report the ones that are malformed",
		Long: `Parse maps and report the ones that are malformed.

Directories are searched for .map and .json files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := gbuild.NewSession(options)
			if err != nil {
				return err
			}
			var names []string
			for _, arg := range args {
				fi, err := os.Stat(filepath.Join(options.Root, arg))
				if err != nil {
					return err
				}
				if !fi.IsDir() {
					names = append(names, arg)
					continue
				}
				found, err := gbuild.FindMaps(s.FS(), arg)
				if err != nil {
					return err
				}
				names = append(names, found...)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if jobs < 1 {
				jobs = 1
			}
			results := make([]error, len(names))
			sem := make(chan struct{}, jobs)
			g, ctx := errgroup.WithContext(ctx)
			for i, name := range names {
				i, name := i, name
				g.Go(func() error {
					select {
					case sem <- struct{}{}:
					case <-ctx.Done():
						return ctx.Err()
					}
					defer func() { <-sem }()
					_, results[i] = s.Load(name)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			var errs errorList.ErrorList
			for i, err := range results {
				errs = errs.AppendFile(names[i], err)
			}
			errs.Sort()
			log.Infof("Checked %d maps, %d failed.", len(names), len(errs))
			if len(errs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d maps ok\n", len(names))
			}
			return errs.Trim(maxErrors).ErrOrNil()
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "number of maps to parse concurrently")
	return cmd
}

func newVLQCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vlq",
		Short: "Encode and decode base64 VLQ values",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "encode [--] VALUE...",
		Short: "Print the base64 VLQ encoding of integers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sb strings.Builder
			for _, arg := range args {
				v, err := strconv.ParseInt(arg, 10, 32)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", arg, err)
				}
				if err := base64vlq.Encode(&sb, int(v)); err != nil {
					return fmt.Errorf("invalid value %q: %w", arg, err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), sb.String())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decode SEGMENT...",
		Short: "Print the integers encoded in base64 VLQ segments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				var values []string
				for s := arg; s != ""; {
					v, n, err := base64vlq.DecodeString(s)
					if err != nil {
						return fmt.Errorf("segment %q: %w", arg, err)
					}
					values = append(values, strconv.Itoa(v))
					s = s[n:]
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", arg, strings.Join(values, " "))
			}
			return nil
		},
	})
	return cmd
}

func newCacheCommand(options *gbuild.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the cache of flattened maps",
	}
	var dir string
	clean := &cobra.Command{
		Use:   "clean",
		Short: "Remove all cached maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = options.CacheDir
			}
			return cache.Clear(dir)
		},
	}
	clean.Flags().StringVar(&dir, "cache-dir", "", "location of the cache of flattened maps")
	cmd.AddCommand(clean)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sourcemaps %s\n", gbuild.Version)
		},
	}
}

// handleError prints err and returns the process exit code for it.
func handleError(err error, stderr io.Writer) int {
	switch err := err.(type) {
	case nil:
		return 0
	case errorList.ErrorList:
		for _, entry := range err {
			printError(stderr, entry)
		}
		return 1
	default:
		printError(stderr, err)
		return 1
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "\x1B[31m%s\x1B[39m\n", err)
}
