package cmd

import (
	"fmt"

	"github.com/audiolibrelab/wavcapture/internal/service"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show the format of a WAV file",
	Long:  `Display the header fields and duration of a WAV file, such as one written by 'wavcapture record'.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.New(cfg)
		defer svc.Close()

		info, err := svc.Inspect(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("=== %s ===\n", args[0])
		fmt.Printf("audio_format: %d\n", info.AudioFormat)
		fmt.Printf("channels: %d\n", info.Channels)
		fmt.Printf("sample_rate: %d\n", info.SampleRate)
		fmt.Printf("bit_depth: %d\n", info.BitDepth)
		fmt.Printf("byte_rate: %d\n", info.AvgBytesPerSec)
		fmt.Printf("data: %s\n", service.FormatBytes(info.DataBytes))
		fmt.Printf("duration: %s\n", info.Duration)
		return nil
	},
}
