// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/h2t/unpack"
	"github.com/h2t/unpack/metrics"
	"github.com/h2t/unpack/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// CLI are the cli parameters for the unpack binary
type CLI struct {
	Archives                 []string         `arg:"" name:"archive" help:"Path to archive. (\"-\" for STDIN, requires --format) Multiple archives are extracted into sub directories of the destination."`
	BufferSize               int              `optional:"" default:"1024" help:"Size of the copy buffer (in bytes)."`
	CacheInMemory            bool             `short:"M" help:"Cache an archive from STDIN in memory instead of a temporary file."`
	ContinueOnUnsupported    bool             `short:"U" name:"continue-on-unsupported" help:"Skip unsupported entries, like hard links, instead of recording them as failures."`
	CreateDestination        bool             `short:"c" default:"true" negatable:"" help:"Create destination directory if it does not exist."`
	Destination              string           `short:"d" default:"." help:"Output directory."`
	DenySymlinks             bool             `short:"D" help:"Deny symlink extraction."`
	Format                   string           `short:"f" enum:"auto,zip,rar,tar,tar.gz,gz" default:"auto" help:"Archive format (${enum}). Detected from the file name or content by default."`
	InsecureTraverseSymlinks bool             `short:"F" help:"[Dangerous!] Follow symlinks to directories during extraction."`
	Jobs                     int              `short:"j" default:"1" help:"Number of archives that are extracted in parallel."`
	MaxFiles                 int64            `optional:"" default:"100000" help:"Maximum files that are extracted before stop. (disable check: -1)"`
	MaxExtractionSize        int64            `optional:"" default:"1073741824" help:"Maximum extraction size that allowed is (in bytes). (disable check: -1)"`
	MaxInputSize             int64            `optional:"" default:"1073741824" help:"Maximum input size that allowed is (in bytes). (disable check: -1)"`
	Overwrite                bool             `short:"O" default:"true" negatable:"" help:"Overwrite existing files."`
	Password                 string           `optional:"" env:"UNPACK_PASSWORD" help:"Password for encrypted rar archives."`
	Patterns                 []string         `short:"P" name:"pattern" help:"Extract only entries that match the glob pattern. (repeatable)"`
	PreserveModTime          bool             `short:"T" help:"Restore the modification time of extracted entries."`
	StopOnError              bool             `short:"S" help:"Stop on the first failed entry."`
	Summary                  bool             `short:"s" help:"Print a summary for each archive."`
	TelemetrySource          string           `optional:"" help:"Publish results as CloudWatch events with this source."`
	Timeout                  time.Duration    `optional:"" default:"0s" help:"Maximum time that all extractions may take. (disable check: 0)"`
	Verbose                  bool             `short:"v" optional:"" help:"Verbose logging."`
	Version                  kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// stdinArchive is the archive name that reads from STDIN
const stdinArchive = "-"

// extractFunc is the signature shared by all path based extraction functions
type extractFunc func(ctx context.Context, src string, dst string, cfg *unpack.Config) (*unpack.Result, error)

// extractors maps the format names to their extraction functions
var extractors = map[string]extractFunc{
	"zip":    unpack.ExtractZip,
	"rar":    unpack.ExtractRar,
	"tar":    unpack.ExtractTar,
	"tar.gz": unpack.ExtractTarGz,
	"gz":     unpack.ExtractGZip,
}

// unpackFunc is the signature shared by all stream based extraction functions
type unpackFunc func(ctx context.Context, t unpack.Target, dst string, src io.Reader, cfg *unpack.Config) (*unpack.Result, error)

// unpackers maps the format names to their stream extraction functions
var unpackers = map[string]unpackFunc{
	"zip":    unpack.UnpackZip,
	"rar":    unpack.UnpackRar,
	"tar":    unpack.UnpackTar,
	"tar.gz": unpack.UnpackTarGz,
	"gz": func(ctx context.Context, t unpack.Target, dst string, src io.Reader, cfg *unpack.Config) (*unpack.Result, error) {
		return unpack.UnpackGZip(ctx, t, dst, "", src, cfg)
	},
}

// Run the entrypoint into unpack as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	kong.Parse(&cli,
		kong.Description("A secure extraction utility for zip, rar, tar and tar.gz archives"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := cli.Execute(context.Background(), os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("extraction failed", "error", err)
		fmt.Fprintf(os.Stderr, "error during extraction: %s\n", err)
		os.Exit(1)
	}
}

// Execute extracts all archives and writes the summary to out. The archive "-" is
// read from in.
func (c *CLI) Execute(ctx context.Context, in io.Reader, out io.Writer, logger *slog.Logger) error {
	for _, archive := range c.Archives {
		if archive == stdinArchive && len(c.Archives) > 1 {
			return errors.New("STDIN cannot be combined with other archives")
		}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	hook, err := c.resultHook(ctx, logger)
	if err != nil {
		return err
	}
	cfg := c.config(logger, hook)

	jobs := c.Jobs
	if jobs < 1 {
		jobs = 1
	}

	results := make([]*unpack.Result, len(c.Archives))
	errs := make([]error, len(c.Archives))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, archive := range c.Archives {
		i, archive := i, archive
		g.Go(func() error {
			results[i], errs[i] = c.extractArchive(gctx, archive, in, cfg)
			if errs[i] != nil {
				errs[i] = errors.Wrap(errs[i], archive)
				if c.StopOnError {
					return errs[i]
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if c.Summary {
		for i, r := range results {
			if r != nil {
				fmt.Fprintln(out, summary(c.Archives[i], r))
			}
		}
	}

	return multierr.Combine(errs...)
}

// extractArchive extracts archive to its destination.
func (c *CLI) extractArchive(ctx context.Context, archive string, in io.Reader, cfg *unpack.Config) (*unpack.Result, error) {
	if archive == stdinArchive {
		return Unpack(ctx, c.Format, in, c.destination(archive), cfg)
	}
	return Extract(ctx, c.Format, archive, c.destination(archive), cfg)
}

// Extract extracts src to dst with the extraction function for format. If format is
// empty or "auto", it is detected with [DetectFormat].
func Extract(ctx context.Context, format string, src string, dst string, cfg *unpack.Config) (*unpack.Result, error) {
	if format == "" || format == "auto" {
		var err error
		if format, err = DetectFormat(src); err != nil {
			return nil, err
		}
	}
	extract, ok := extractors[format]
	if !ok {
		return nil, errors.Errorf("unsupported format %q", format)
	}
	return extract(ctx, src, dst, cfg)
}

// Unpack extracts the archive provided by src to dst. The format cannot be detected
// from a stream and must be given.
func Unpack(ctx context.Context, format string, src io.Reader, dst string, cfg *unpack.Config) (*unpack.Result, error) {
	fn, ok := unpackers[format]
	if !ok {
		return nil, errors.Errorf("unsupported format %q for streamed input", format)
	}
	return fn(ctx, unpack.NewTargetDisk(), dst, src, cfg)
}

// destination returns the output directory for archive. If more than one archive is
// extracted, every archive gets its own sub directory.
func (c *CLI) destination(archive string) string {
	if len(c.Archives) < 2 {
		return c.Destination
	}
	return filepath.Join(c.Destination, trimArchiveExtension(filepath.Base(archive)))
}

// config translates the cli parameters into an extraction configuration
func (c *CLI) config(logger *slog.Logger, hook unpack.ResultHook) *unpack.Config {
	return unpack.NewConfig(
		unpack.WithBufferSize(c.BufferSize),
		unpack.WithCacheInMemory(c.CacheInMemory),
		unpack.WithContinueOnError(!c.StopOnError),
		unpack.WithContinueOnUnsupportedFiles(c.ContinueOnUnsupported),
		unpack.WithCreateDestination(c.CreateDestination),
		unpack.WithDenySymlinkExtraction(c.DenySymlinks),
		unpack.WithInsecureTraverseSymlinks(c.InsecureTraverseSymlinks),
		unpack.WithLogger(logger),
		unpack.WithMaxExtractionSize(c.MaxExtractionSize),
		unpack.WithMaxFiles(c.MaxFiles),
		unpack.WithMaxInputSize(c.MaxInputSize),
		unpack.WithOverwrite(c.Overwrite),
		unpack.WithPassword(c.Password),
		unpack.WithPatterns(c.Patterns...),
		unpack.WithPreserveModTime(c.PreserveModTime),
		unpack.WithResultHook(hook),
	)
}

// resultHook logs every result and, if configured, publishes it as CloudWatch event
func (c *CLI) resultHook(ctx context.Context, logger *slog.Logger) (unpack.ResultHook, error) {
	logHook := func(ctx context.Context, r *unpack.Result) {
		logger.Debug("extraction finished", "result", r)
	}
	if len(c.TelemetrySource) == 0 {
		return logHook, nil
	}

	client, err := telemetry.NewCloudWatchClient(ctx)
	if err != nil {
		return nil, err
	}
	return metrics.Chain(logHook, telemetry.NewCloudWatchHook(client, c.TelemetrySource, telemetry.WithErrorLogger(logger))), nil
}

// summary returns a human readable, single line description of r
func summary(archive string, r *unpack.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s extracted to %s, %d files, %d dirs, %d symlinks, %s in %s",
		archive, r.ExtractedType, r.Destination,
		r.ExtractedFiles, r.ExtractedDirs, r.ExtractedSymlinks,
		humanize.Bytes(uint64(r.ExtractionSize)), r.ExtractionDuration.Round(time.Millisecond))
	if len(r.Output) > 0 {
		fmt.Fprintf(&sb, ", output %s", r.Output)
	}
	if len(r.Failures) > 0 {
		fmt.Fprintf(&sb, ", %d failed", len(r.Failures))
	}
	return sb.String()
}
