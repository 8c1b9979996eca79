package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/januslink/janus/cmd/janus/internal/config"
	"github.com/januslink/janus/pkg/cli"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Global configuration, loaded at init time.
	globalConfig  *config.Config
	configLoadErr error

	styles = cli.NewStyles(cli.DefaultTheme)
)

var rootCmd = &cobra.Command{
	Use:   "janus",
	Short: "Semantic audio codec over a 300-bit link",
	Long: `janus - speech over links too slow for audio.

A janus node does not transmit waveforms. It transcribes what you say,
sends the text plus a few bytes of vocal-tone metadata over a severely
throttled link, and the receiving node speaks it again locally.

Commands:
  send      Capture from the microphone and transmit packets
  say       Type text on stdin and transmit packets
  recv      Receive packets and play them back
  devices   List audio devices
  history   Show the transcript log
  config    Show or initialize the configuration

Configuration lives in one YAML file:
  macOS:   ~/Library/Application Support/janus/config.yaml
  Linux:   ~/.config/janus/config.yaml
  Windows: %AppData%/janus/config.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
}

func initConfig() {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// getConfig returns the loaded configuration or the load error.
func getConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}
