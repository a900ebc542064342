package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel string
	logFile  string
	logger   *slog.Logger
	logOut   io.Closer
)

// quietAnnotation marks commands that own the terminal. Their logs are
// dropped unless --log-file is given.
const quietAnnotation = "quiet-logs"

var rootCmd = &cobra.Command{
	Use:   "spheredist",
	Short: "Distribute points evenly on a sphere",
	Long: `Spheredist spreads points over the unit sphere by minimizing a repulsive
energy, refining each new configuration in the background while the
displayed points glide towards the latest optimum.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var out io.Writer = os.Stdout
		switch {
		case logFile != "":
			f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			out = f
			logOut = f
		case cmd.Annotations[quietAnnotation] != "":
			out = io.Discard
		}

		opts := &slog.HandlerOptions{Level: parseLevel(logLevel)}
		handler := slog.NewJSONHandler(out, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logOut != nil {
			logOut.Close()
		}
	},
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file instead of stdout")
}
