package cmd

import (
	"fmt"
	"runtime"

	"github.com/audiolibrelab/wavcapture/internal/audio"
	"github.com/audiolibrelab/wavcapture/internal/service"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available capture devices",
	Long:  `List the capture devices of the configured audio backend. Use the index with 'record --device'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("backend") {
			cfg.Audio.Backend, _ = cmd.Flags().GetString("backend")
		}

		svc := service.New(cfg)
		defer svc.Close()

		devices, err := svc.ListDevices()
		if err != nil {
			return fmt.Errorf("failed to list capture devices: %w", err)
		}
		return listDevices(devices)
	},
}

// listDevices prints the capture devices of the selected backend
func listDevices(devices []audio.DeviceInfo) error {
	fmt.Printf("🎵 Capture Devices (%s, backend %s)\n", runtime.GOOS, cfg.Audio.Backend)
	fmt.Printf("═══════════════════════════════════════\n\n")

	fmt.Printf("📋 DEVICES (%d found):\n", len(devices))
	for _, d := range devices {
		marker := ""
		if d.IsDefault {
			marker = " (default)"
		}
		fmt.Printf("  %d. %s%s\n", d.ID, d.Name, marker)
	}

	fmt.Printf("\n💡 Usage:\n")
	fmt.Printf("  • Record from a device: wavcapture record --device <index> take\n")
	fmt.Printf("  • Or set audio.device in the config file\n")
	fmt.Printf("  • Backends compiled in: %v\n\n", audio.AvailableBackends())

	return nil
}

func init() {
	devicesCmd.Flags().String("backend", "", "audio backend to query (overrides config)")
}
