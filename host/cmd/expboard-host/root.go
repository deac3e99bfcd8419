package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"expboard/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "expboard-host",
	Short:         "Host tools for the stepper expansion board supervisor",
	Long:          `Monitors a running board over USB serial, replays simulation scenarios through the supervisor engine and probes TMC drivers on a Linux SPI bus.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Board description (YAML)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// newLogger writes text logs to w. The "error" key is shortened to "err".
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

func loggerFor(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return newLogger(cmd.ErrOrStderr(), verbose)
}

// boardConfig loads --config, or the defaults when it is not set.
func boardConfig(cmd *cobra.Command) (*config.BoardConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		cfg := config.DefaultBoardConfig()
		return cfg, config.Validate(cfg)
	}
	return config.LoadFile(path)
}
