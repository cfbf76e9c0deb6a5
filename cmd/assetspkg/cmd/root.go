package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bianoble/assetspkg/internal/logging"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	build     buildFlags
	logLevel  string
	logFormat string
	verbose   bool
	quiet     bool
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "assetspkg",
	Short: "Bundle, minify and fingerprint stylesheets and scripts",
	Long: `assetspkg reads named groups of stylesheets and scripts from assets.yml,
compiles Less sources, concatenates and minifies every group, and writes the
bundles under the configured bundle directories. Bundles can be gzipped,
stamped with a content hash, and emitted with or without inlined assets.`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBuild,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(stdout, "assetspkg %s\n", version)
		fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		fmt.Fprintf(stdout, "  built:   %s\n", date)
	},
}

func init() {
	build.register(rootCmd.PersistentFlags())
	registerOutputFlags(rootCmd.PersistentFlags())
	rootCmd.SetVersionTemplate("assetspkg {{.Version}}\n")

	rootCmd.AddCommand(versionCmd)
}

func registerOutputFlags(fs *pflag.FlagSet) {
	fs.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	fs.BoolVar(&verbose, "verbose", false, "detailed output and a summary table")
	fs.BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	fs.BoolVar(&noColor, "no-color", false, "disable colored output")
}

// newLogger builds the run logger from the output flags. Quiet wins over
// the log level.
func newLogger() (*slog.Logger, error) {
	level := logLevel
	if quiet {
		level = "error"
	}
	var color *bool
	if noColor {
		off := false
		color = &off
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: logFormat,
		Writer: stdout,
		Color:  color,
	})
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		errorf("%v", err)
		return err
	}
	return nil
}
