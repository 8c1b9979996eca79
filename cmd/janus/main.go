// Package main is the entry point for the janus CLI.
//
// Usage:
//
//	janus [flags] <command> [args]
//
// Commands:
//
//	send     - Capture from the microphone and transmit packets
//	say      - Type text and transmit packets
//	recv     - Receive packets and play them back
//	devices  - List audio devices
//	history  - Show the transcript log
//	config   - Show or initialize the configuration
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/januslink/janus/cmd/janus/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
