package cmd

import (
	"fmt"

	"github.com/audiolibrelab/wavcapture/internal/service"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a recorded WAV file",
	Long: `Play a WAV file with the first audio player found on the system
(aplay, paplay, afplay, ffplay, mpv or vlc).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.New(cfg)
		defer svc.Close()

		if err := svc.Play(args[0]); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		return nil
	},
}
