package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/udunits2-publisher/internal/config"
	"github.com/oshokin/udunits2-publisher/internal/service/updater"
	"github.com/oshokin/udunits2-publisher/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// force publishes even when Nexus is up to date.
	force bool
	// dryRun merges without publishing.
	dryRun bool
	// keepFiles keeps the temporary output directory.
	keepFiles bool

	// rootCmd represents the base command for a full publishing run.
	rootCmd = &cobra.Command{
		Use:   "udunits2-publisher",
		Short: "Publish the combined UDUNITS-2 XML document to Nexus",
		Long: `Checks the UDUNITS-2 release feed for the latest release and compares it with
the release the combined document in Nexus was built from.

When they differ, downloads the unit documents of the release, merges them into
one document with namespace-prefixed tags and uploads it together with the
UDUNITS-2 COPYRIGHT file to the versioned and to the "current" directory.

Credentials are read from the environment variables named in the configuration
(NEXUS_USERNAME and NEXUS_PASSWORD by default) or asked for interactively.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
				Force:      force,
				DryRun:     dryRun,
				KeepFiles:  keepFiles,
			}

			return updater.Run(ctx, options)
		},
	}

	// checkCmd reports whether Nexus needs an update without changing anything.
	checkCmd = &cobra.Command{
		Use:          "check",
		Short:        "Compare the latest release with the one published in Nexus",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			_, err := updater.Check(ctx, &updater.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
				LogOutput:  cmd.ErrOrStderr(),
				Out:        cmd.OutOrStdout(),
			})

			return err
		},
	}

	// mergeCmd builds the combined document of a release locally.
	mergeCmd = &cobra.Command{
		Use:          "merge <version>",
		Short:        "Build the combined document of a release into the output directory",
		Example:      "udunits2-publisher merge v2.2.28",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			_, err := updater.Merge(ctx, &updater.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
				LogOutput:  cmd.ErrOrStderr(),
				Out:        cmd.OutOrStdout(),
			}, args[0])

			return err
		},
	}
)

// Execute runs the udunits2-publisher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file; "+config.DefaultConfigFilename+" is used when present")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")

	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "publish even when nexus is up to date")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "merge and write files without publishing")
	rootCmd.Flags().BoolVar(&keepFiles, "keep-files", false, "keep the temporary output directory")

	rootCmd.AddCommand(checkCmd, mergeCmd)
}
