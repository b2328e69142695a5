package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/wavcapture/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record [name]",
	Short: "Record from the capture device into a WAV file",
	Long: `Record audio from the configured capture device until Ctrl+C is pressed
or --duration elapses, then write it as <output>/<name>.wav.

Without a name the take is written to output.file_name from the config,
or tmp.wav when that is empty as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}

		if err := applyRecordFlags(cmd); err != nil {
			return err
		}
		duration, _ := cmd.Flags().GetDuration("duration")

		svc := service.New(cfg)
		defer svc.Close()

		// Handle interruption
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if duration > 0 {
			slog.Info("Recording started", "duration", duration)
		} else {
			slog.Info("Recording started - Press Ctrl+C to stop")
		}

		path, err := svc.Record(ctx, duration, name)
		if err != nil {
			return fmt.Errorf("recording failed: %w", err)
		}

		_, session := svc.GetRecordingStatus()
		size := int64(0)
		if session != nil {
			size = int64(session.BytesCaptured)
		}
		fmt.Printf("Recorded sound is stored in %s (%s of audio data)\n", path, service.FormatBytes(size))
		return nil
	},
}

// applyRecordFlags copies explicitly set flags over the loaded config
func applyRecordFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Audio.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("device") {
		cfg.Audio.Device, _ = flags.GetInt("device")
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate, _ = flags.GetInt("sample-rate")
	}
	if flags.Changed("bit-depth") {
		cfg.Audio.BitDepth, _ = flags.GetInt("bit-depth")
	}
	if flags.Changed("channels") {
		cfg.Audio.Channels, _ = flags.GetInt("channels")
	}
	if flags.Changed("output") {
		cfg.Output.Directory, _ = flags.GetString("output")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid recording options: %w", err)
	}
	return nil
}

func init() {
	recordCmd.Flags().DurationP("duration", "d", 0, "stop after this long (e.g. 10s); 0 records until Ctrl+C")
	recordCmd.Flags().String("backend", "", "audio backend: auto, malgo, portaudio, pipewire, synthetic (overrides config)")
	recordCmd.Flags().Int("device", -1, "capture device index from 'wavcapture devices', -1 for default (overrides config)")
	recordCmd.Flags().IntP("sample-rate", "r", 44100, "sample rate in Hz (overrides config)")
	recordCmd.Flags().IntP("bit-depth", "b", 16, "bits per sample: 8, 16, 24 or 32 (overrides config)")
	recordCmd.Flags().IntP("channels", "c", 1, "channel count (overrides config)")
	recordCmd.Flags().StringP("output", "o", "", "output directory (overrides config)")
}
