package cmd

import (
	"context"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	coldswap "github.com/psufleet/coldswap/internal"
	"github.com/psufleet/coldswap/internal/api"
	ilog "github.com/psufleet/coldswap/internal/log"
	"github.com/psufleet/coldswap/internal/store/sqlite"
	"github.com/psufleet/coldswap/pkg/discover"
	"github.com/psufleet/coldswap/pkg/redundancy"
	"github.com/psufleet/coldswap/pkg/smbus"
)

var logPath string

// The `serve` command launches the long-running redundancy daemon: it wires
// the SMBus, settings store and discovery collaborators into the engine and
// exposes the control surface over HTTP.
var serveCmd = &cobra.Command{
	Use: "serve",
	Example: `  // basic launch
  coldswap serve
  // launch with a custom configuration
  coldswap serve -c /etc/coldswap/config.yml`,
	Short: "Run the cold redundancy daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := ilog.INFO
		if viper.GetBool("debug") {
			level = ilog.DEBUG
		}
		if err := ilog.InitWithLogLevel(level, logPath); err != nil {
			return err
		}

		hw := coldswap.HardwareFromViper()

		bus, err := smbus.Open(hw.Bus)
		if err != nil {
			return err
		}
		defer bus.Close()

		// make the settings dir if needed
		settingsPath := viper.GetString("serve.settings")
		if err := os.MkdirAll(path.Dir(settingsPath), 0766); err != nil {
			return err
		}
		store, err := sqlite.Open(settingsPath)
		if err != nil {
			return err
		}
		defer store.Close()

		policy, errList := store.LoadPolicy(redundancy.DefaultPolicy())
		for _, err := range errList {
			log.Error().Err(err).Msg("bad value in settings store, keeping default")
		}

		var discovery redundancy.Discovery
		if uri := viper.GetString("discover.uri"); uri != "" {
			discovery = discover.NewRedfish(discover.Config{
				URI:       uri,
				Username:  viper.GetString("discover.user"),
				Password:  viper.GetString("discover.pass"),
				Insecure:  viper.GetBool("discover.insecure"),
				Bus:       hw.Bus,
				AddrTable: hw.AddrTable,
			})
		} else {
			log.Warn().Msg("no discovery URI configured, fleet will stay empty until notified")
		}

		engine := redundancy.New(redundancy.Config{
			Bus:       bus,
			Store:     store,
			Discovery: discovery,
			AddrTable: hw.AddrTable,
			RescanBus: hw.RescanBus,
			Supported: hw.Supported,
			Policy:    policy,
			Logger:    log.Logger,
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go engine.Run(ctx)

		server := api.NewServer(engine, viper.GetString("serve.endpoint"))
		log.Info().Msgf("serving redundancy API on %s", viper.GetString("serve.endpoint"))
		return server.Run()
	},
}

func init() {
	serveCmd.Flags().StringVar(&logPath, "log", "", "Set an additional log file path")
	serveCmd.Flags().String("settings", "/var/lib/coldswap/settings.db", "Set the settings database path")
	checkBindFlagError(viper.BindPFlag("serve.settings", serveCmd.Flags().Lookup("settings")))

	rootCmd.AddCommand(serveCmd)
}
