package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/audiolibrelab/wavcapture/internal/config"
	"github.com/audiolibrelab/wavcapture/internal/logging"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	logFile      string
	verboseLevel int

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "wavcapture",
	Short: "Record audio from an input device into WAV files",
	Long: `WavCapture is a CLI tool for recording live audio from a capture device.

Audio is captured with double buffering: two 4096-byte buffers alternate
between the audio driver and a worker that appends them to the take, which
is written as a PCM WAV file when recording stops.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init writes the file Load would read
		if cmd.Name() == "init" {
			cfg = config.Default()
		} else {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
		}

		if logFile != "" {
			cfg.Log.File = logFile
		}
		return setupLogging(verboseLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/wavcapture.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=config log level, 1+=debug")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file, rotated by size (overrides config)")

	// Add subcommands
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures slog from the config and the verbose level
func setupLogging(verbose int) error {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	logCloser = logging.Setup(logging.Options{
		Level:      logging.VerboseLevel(verbose, level),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	return nil
}
