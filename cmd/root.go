// The cmd package implements the interface for the coldswap CLI. The files
// contained in this package only contain implementations for handling CLI
// arguments and passing them to functions within coldswap's internal API.
//
// For example:
//
//	cmd/serve.go  --> runs the redundancy daemon (engine + HTTP API)
//	cmd/rotate.go --> requests one rotation step from a running daemon
//	cmd/status.go --> queries a running daemon's policy/status/health
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	coldswap "github.com/psufleet/coldswap/internal"
)

// The `root` command doesn't do anything on its own except display
// a help message and then exits.
var rootCmd = &cobra.Command{
	Use:   "coldswap",
	Short: "PSU cold redundancy control daemon",
	Long:  "Maintains cold redundancy across hot-swappable power supplies: rotates rotation ranks, re-ranks on failure, and reports redundancy health.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			err := cmd.Help()
			if err != nil {
				log.Error().Err(err).Msg("failed to print help")
			}
			os.Exit(0)
		}
	},
}

// This Execute() function is called from main to run the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitializeConfig)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Set the config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Set to enable/disable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "Set to enable/disable debug messages")
	rootCmd.PersistentFlags().String("endpoint", "localhost:27300", "Set the daemon API endpoint")

	// bind viper config flags with cobra
	checkBindFlagError(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
	checkBindFlagError(viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")))
	checkBindFlagError(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
	checkBindFlagError(viper.BindPFlag("serve.endpoint", rootCmd.PersistentFlags().Lookup("endpoint")))
}

func checkBindFlagError(err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to bind cobra/viper flag")
	}
}

// InitializeConfig() initializes a new config object by loading it
// from a file given a non-empty string.
func InitializeConfig() {
	coldswap.SetDefaults()
	viper.AutomaticEnv()
	if viper.IsSet("config") && viper.GetString("config") != "" {
		if err := coldswap.LoadConfig(viper.GetString("config")); err != nil {
			log.Error().Err(err).Msg("failed to load config")
		}
	}
}

// endpointURL() builds a daemon API URL from the configured endpoint.
func endpointURL(path string) string {
	return fmt.Sprintf("http://%s%s", viper.GetString("serve.endpoint"), path)
}
