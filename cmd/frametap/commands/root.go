package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "frametap",
		Short: "FrameTap - stream window and display frames into CPU memory",
		Long: `FrameTap captures a live stream of frames from an X11 window or display
into CPU-readable buffers, at the cadence the server delivers them, with
bounded queueing and graceful handling of resizes and window closure.

Features:
  • Capture any top-level window or a whole display
  • Bounded frame queue with drop-newest backpressure
  • Automatic staging-buffer recreation on resize
  • Persistent configuration`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/frametap/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("interval", 0, "frame interval in milliseconds (default is 16)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("frame_interval_ms", rootCmd.PersistentFlags().Lookup("interval"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path.
func GetConfigFile() string {
	return cfgFile
}
