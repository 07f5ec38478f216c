package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/msipack/internal/config"
	"github.com/oshokin/msipack/internal/logger"
	"github.com/oshokin/msipack/internal/service/packager"
	"github.com/oshokin/msipack/internal/version"
	"github.com/oshokin/msipack/internal/wixl"
)

var (
	// logLevel sets the minimum logging level for the run.
	logLevel string
	// settingsPath overrides where the resolved-settings build record is written.
	settingsPath string

	// rootCmd represents the base command for building an MSI from a staging root.
	rootCmd = &cobra.Command{
		Use:   "msipack [build-dir] [prefix] [arch] [msi-file] [wxs-file] [wixl-heat-path] [wixl-path]",
		Short: "Package an installed staging tree into an MSI.",
		Long: `Harvests every file installed under the staging root pointed to by $` + config.EnvStagingRoot + `,
generates a component-group fragment with wixl-heat, and links the fragment
together with the authored WXS file into the final MSI using wixl.

Run the project's install step into a virtual root first and set ` + config.EnvStagingRoot + ` to it.
$` + config.EnvManufacturer + ` optionally overrides the package manufacturer.`,
		Args: cobra.ExactArgs(7),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &packager.Options{
				BuildDir:      args[0],
				InstallPrefix: args[1],
				Arch:          args[2],
				OutputPath:    args[3],
				WxsPath:       args[4],
				HeatPath:      args[5],
				WixlPath:      args[6],
				SettingsPath:  settingsPath,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the msipack CLI and exits with non-zero status on error.
// Subprocess failures propagate the child's exit code.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a pipeline error to the process exit status: the failing
// tool's own code when a subprocess failed, 1 otherwise.
func exitCode(err error) int {
	var toolErr *wixl.ToolError
	if errors.As(err, &toolErr) {
		if code := toolErr.ExitCode(); code > 0 {
			return code
		}
	}

	return 1
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "minimum log level (debug, info, warn, error)")
	rootCmd.Flags().
		StringVarP(&settingsPath, "settings", "s", "", "path for the resolved-settings build record (defaults to <build-dir>/data/"+config.DefaultSettingsFilename+")")
}
