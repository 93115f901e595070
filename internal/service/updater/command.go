package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/udunits2-publisher/internal/artifact"
	"github.com/oshokin/udunits2-publisher/internal/config"
	"github.com/oshokin/udunits2-publisher/internal/credentials"
	"github.com/oshokin/udunits2-publisher/internal/domain/udunits"
	"github.com/oshokin/udunits2-publisher/internal/fetch"
	"github.com/oshokin/udunits2-publisher/internal/logger"
	"github.com/oshokin/udunits2-publisher/internal/merge"
	"github.com/oshokin/udunits2-publisher/internal/repository/nexus"
	"github.com/oshokin/udunits2-publisher/internal/service/checker"
	"github.com/oshokin/udunits2-publisher/internal/service/common"
	"github.com/oshokin/udunits2-publisher/internal/service/publisher"
	"github.com/oshokin/udunits2-publisher/internal/upstream"
	"github.com/oshokin/udunits2-publisher/internal/version"
)

var (
	errUnknownLogLevel = errors.New("unknown log level")
	errEmptyVersion    = errors.New("version must be provided")
)

// Options are inputs accepted by the updater entry points.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured level when set.
	LogLevel string
	// LogOutput receives log entries; defaults to stdout.
	LogOutput io.Writer
	// Out receives command results; defaults to stdout.
	Out io.Writer
	// Force publishes even when Nexus already holds the latest release.
	Force bool
	// DryRun merges and writes files without publishing. No credentials are needed.
	DryRun bool
	// KeepFiles keeps the temporary output directory after the run.
	KeepFiles bool
	// MarkerPath overrides DefaultMarkerPath.
	MarkerPath string
	// Credentials overrides the environment-then-prompt provider.
	Credentials credentials.Provider
	// Now overrides the clock used for the copyright year.
	Now func() time.Time
}

// runner holds the mutable state and helpers for a single execution.
// It is intentionally unexported, call Run(ctx, Options) from callers.
type runner struct {
	opts      *Options
	cfg       *config.Config
	actor     string
	upstream  *upstream.Client
	checker   *checker.Checker
	merger    *merge.Merger
	publisher *publisher.Publisher

	outputDirectory    string // Where the combined document and copyright are written.
	temporaryDirectory bool   // Whether outputDirectory was created for this run.
	markerPath         string // Set once the run marker is held.
}

// Run executes a full update: check, merge and publish.
func Run(ctx context.Context, opts *Options) error {
	ctx, up, err := newRunner(ctx, opts, "udunits2-publisher")
	if err != nil {
		return err
	}

	defer up.cleanup(ctx)

	if err = up.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Publisher run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Publisher completed")

	return nil
}

// Check prints the latest release, the published one and whether an update is needed.
func Check(ctx context.Context, opts *Options) (*checker.Status, error) {
	ctx, up, err := newRunner(ctx, opts, "udunits2-check")
	if err != nil {
		return nil, err
	}

	latest, err := up.upstream.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	status, err := up.checker.Compare(ctx, latest)
	if err != nil {
		return nil, err
	}

	published := status.Published.String()
	if !status.Found {
		published = "none"
	}

	_, _ = fmt.Fprintf(up.out(), "latest: %s\npublished: %s\nupdate needed: %t\n",
		status.Latest, published, status.UpdateNeeded)

	return status, nil
}

// Merge builds the combined document of release into the configured output
// directory, or the working directory, and prints the written paths.
func Merge(ctx context.Context, opts *Options, release string) ([]*artifact.File, error) {
	if release == "" {
		return nil, errEmptyVersion
	}

	ctx, up, err := newRunner(ctx, opts, "udunits2-merge")
	if err != nil {
		return nil, err
	}

	up.outputDirectory = up.cfg.OutputDir
	if up.outputDirectory == "" {
		up.outputDirectory = "."
	}

	files, err := up.mergeAndWrite(ctx, udunits.Version(release))
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		_, _ = fmt.Fprintln(up.out(), file.Path)
	}

	return files, nil
}

// newRunner loads settings, installs the logger into ctx and wires the clients.
func newRunner(ctx context.Context, opts *Options, name string) (context.Context, *runner, error) {
	if opts == nil {
		opts = new(Options)
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return ctx, nil, fmt.Errorf("load configuration: %w", err)
	}

	levelName := settings.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}

	level, ok := logger.ParseLogLevel(levelName)
	if !ok {
		return ctx, nil, fmt.Errorf("%w: %q", errUnknownLogLevel, levelName)
	}

	logOutput := opts.LogOutput
	if logOutput == nil {
		logOutput = os.Stdout
	}

	log := logger.NewWithWriter(logOutput, level)
	ctx = logger.WithName(logger.ToContext(ctx, log), name)

	u := &runner{
		opts: opts,
		cfg:  settings,
	}

	if actor, actorErr := common.DetectActor(); actorErr == nil {
		u.actor = actor.String()
		ctx = logger.WithKV(ctx, "actor", u.actor)
	}

	httpClient := fetch.New(
		fetch.WithTimeout(settings.Timeout),
		fetch.WithRetries(settings.Retries),
		fetch.WithUserAgent(version.UserAgent()),
		fetch.WithLogger(log),
	)

	u.upstream, err = upstream.New(httpClient, settings.ReleaseFeedURL, settings.SourceBaseURL)
	if err != nil {
		return ctx, nil, err
	}

	repo, err := nexus.New(httpClient, settings.NexusURL, settings.Repository)
	if err != nil {
		return ctx, nil, err
	}

	u.checker = checker.New(repo, settings.RawDirectory)
	u.publisher = publisher.New(repo, settings.RawDirectory)
	u.merger = merge.New(u.upstream, settings.DocsBaseURL, merge.WithClock(opts.Now))

	return ctx, u, nil
}

// run executes the full workflow:
// 1) Hold the run marker.
// 2) Fetch the latest release and compare with Nexus.
// 3) Resolve credentials unless this is a dry run.
// 4) Merge and write the outputs.
// 5) Publish.
func (u *runner) run(ctx context.Context) error {
	markerPath := u.opts.MarkerPath
	if markerPath == "" {
		markerPath = DefaultMarkerPath()
	}

	if err := acquireMarker(ctx, markerPath, u.actor); err != nil {
		return err
	}

	u.markerPath = markerPath

	latest, err := u.upstream.LatestRelease(ctx)
	if err != nil {
		return err
	}

	if u.opts.Force {
		logger.InfoKV(ctx, "Forced update, skipping the nexus check", "version", latest)
	} else {
		var needed bool

		needed, err = u.checker.ShouldUpdate(ctx, latest)
		if err != nil {
			return err
		}

		if !needed {
			logger.Info(ctx, "No update required")
			return nil
		}
	}

	var creds credentials.Credentials

	if !u.opts.DryRun {
		if creds, err = u.credentials(ctx); err != nil {
			return err
		}
	}

	if err = u.prepareOutputDirectory(ctx); err != nil {
		return err
	}

	files, err := u.mergeAndWrite(ctx, latest)
	if err != nil {
		return err
	}

	if u.opts.DryRun {
		logger.InfoKV(ctx, "Dry run, skipping publish", "directory", u.outputDirectory)
		return nil
	}

	return u.publish(ctx, latest, files, creds)
}

// credentials asks the configured provider once, only when a publish is due.
func (u *runner) credentials(ctx context.Context) (credentials.Credentials, error) {
	logger.Info(ctx, "Obtain nexus credentials")

	provider := u.opts.Credentials
	if provider == nil {
		provider = credentials.Default(u.cfg.UsernameEnv, u.cfg.PasswordEnv)
	}

	creds, err := provider.Credentials(ctx)
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("obtain credentials: %w", err)
	}

	return creds, nil
}

// prepareOutputDirectory uses the configured directory or creates a temporary one.
func (u *runner) prepareOutputDirectory(ctx context.Context) error {
	if u.cfg.OutputDir != "" {
		u.outputDirectory = u.cfg.OutputDir
		return nil
	}

	temporaryDirectory, err := os.MkdirTemp("", temporaryDirectoryPattern)
	if err != nil {
		return fmt.Errorf("create temporary directory: %w", err)
	}

	u.outputDirectory = temporaryDirectory
	u.temporaryDirectory = true

	logger.DebugKV(ctx, "Created temporary directory", "path", temporaryDirectory)

	return nil
}

// mergeAndWrite merges release and writes the combined document and the copyright file.
func (u *runner) mergeAndWrite(ctx context.Context, release udunits.Version) ([]*artifact.File, error) {
	logger.InfoKV(ctx, "Merging release documents", "version", release)

	result, err := u.merger.Merge(ctx, release)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", release, err)
	}

	combined, err := artifact.Write(ctx, u.outputDirectory, udunits.CombinedFilename, result.Combined)
	if err != nil {
		return nil, err
	}

	copyright, err := artifact.Write(ctx, u.outputDirectory, udunits.CopyrightFilename, result.Copyright)
	if err != nil {
		return nil, err
	}

	return []*artifact.File{combined, copyright}, nil
}

// publish opens the written files and hands them to the publisher.
func (u *runner) publish(ctx context.Context, release udunits.Version, files []*artifact.File, creds credentials.Credentials) error {
	assets := make([]nexus.Asset, 0, len(files))

	for _, file := range files {
		handle, err := file.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", file.Name, err)
		}

		defer func() {
			_ = handle.Close()
		}()

		assets = append(assets, nexus.Asset{
			Filename: file.Name,
			Content:  handle,
		})
	}

	return u.publisher.Publish(ctx, release, assets, creds)
}

func (u *runner) out() io.Writer {
	if u.opts.Out != nil {
		return u.opts.Out
	}

	return os.Stdout
}

// cleanup removes temporary artifacts and the run marker.
func (u *runner) cleanup(ctx context.Context) {
	if u.markerPath != "" {
		releaseMarker(ctx, u.markerPath)
	}

	if u.temporaryDirectory {
		if u.opts.KeepFiles {
			logger.InfoKV(ctx, "Keeping output files", "directory", u.outputDirectory)
		} else if err := os.RemoveAll(u.outputDirectory); err != nil {
			logger.WarnKV(ctx, "Unable to remove temporary directory", "path", u.outputDirectory, "error", err)
		}
	}

	logger.Debug(ctx, "The publisher has been stopped")
}
