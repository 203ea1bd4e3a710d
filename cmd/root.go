// =============================================================================
// ykj-wgs - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command
// converts one input file:
//
//   ykj-wgs points.csv          # writes points.csv.gpx
//   ykj-wgs @args.txt           # reads the arguments from args.txt
//
// COBRA CLI STRUCTURE:
//   rootCmd (ykj-wgs <file>)
//   ├── versionCmd (ykj-wgs version)
//   └── configCmd  (ykj-wgs config)
//
// CONFIGURATION:
//   There are no flags besides help. Settings come from ykj-wgs.yaml (or the
//   file named by $YKJWGS_CONFIG), .env and YKJWGS__* environment variables.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/razz0/ykj-wgs/internal/config"
	"github.com/razz0/ykj-wgs/internal/converter"
	"github.com/razz0/ykj-wgs/internal/logging"
	"github.com/razz0/ykj-wgs/internal/telemetry"
	"github.com/razz0/ykj-wgs/internal/transform"
	"github.com/razz0/ykj-wgs/pkg/utils"
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "ykj-wgs <file>",
	Short: "Convert YKJ grid coordinates to ETRS89 latitude/longitude and GPX",
	Long: `ykj-wgs reads named points in the Finnish uniform grid (YKJ) from a CSV or
XLSX file, converts each point to ETRS89 latitude/longitude through the
National Land Survey coordinate service, prints a progress report and writes
the points as GPX tracks and waypoints to <file>.gpx.

Input rows have the columns name, y, x, note. Consecutive rows with the same
name form one track; every row also becomes a waypoint.

Arguments may be read from a file with @argsfile (one argument per line).`,

	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runConvert(ctx, args[0])
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute expands @argsfile arguments and runs the root command. This is
// called by main.main().
func Execute() {
	args, err := expandArgFiles(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// CONVERSION
// =============================================================================

// runConvert loads the configuration, sets up logging and converts input.
func runConvert(ctx context.Context, input string) error {
	if !utils.FileExists(input) {
		return fmt.Errorf("input file %s does not exist", input)
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	closer, err := logging.Configure(logging.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
		JSON:  cfg.Log.JSON,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	var metrics *telemetry.Metrics
	if cfg.Metrics.Textfile != "" {
		metrics = telemetry.New()
	}

	result := converter.New(input, cfg, converter.WithMetrics(metrics)).Run(ctx)
	if result.Error != nil {
		switch {
		case errors.Is(result.Error, context.Canceled):
			return fmt.Errorf("interrupted, no output written: %w", result.Error)
		case transform.IsRemote(result.Error):
			return fmt.Errorf("coordinate service unavailable, no output written: %w", result.Error)
		}
		return result.Error
	}
	return nil
}
