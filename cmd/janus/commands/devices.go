package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/januslink/janus/pkg/audio/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := device.List()
		if err != nil {
			return err
		}
		for _, d := range devices {
			mark := "  "
			switch {
			case d.IsDefaultInput && d.IsDefaultOutput:
				mark = "*↕"
			case d.IsDefaultInput:
				mark = "*→"
			case d.IsDefaultOutput:
				mark = "*←"
			}
			fmt.Printf("%s %s %s\n",
				styles.Label.Render(mark),
				d.Name,
				styles.Meta.Render(fmt.Sprintf("(in %d, out %d, %.0f Hz)",
					d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
