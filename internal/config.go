// The coldswap internal package carries the daemon-side glue between the
// CLI, the configuration file and the redundancy engine.
package coldswap

import (
	"fmt"

	"github.com/cznic/mathutil"
	"github.com/spf13/viper"

	"github.com/psufleet/coldswap/internal/util"
)

// maxAddressTable bounds the presence-probe address table; the platform
// never carries more PSU slots than this.
const maxAddressTable = 8

// LoadConfig will load a YAML config file at the specified path. There are
// some general considerations about how this is done with spf13/viper:
//
// 1. There are intentionally no search paths set, so config path has to be set explicitly
// 2. No data will be written to the config file from the tool
// 3. Parameters passed as CLI flags and environment variables should always have
// precedence over values set in the config.
func LoadConfig(path string) error {
	dir, filename, ext := util.SplitPathForViper(path)
	viper.AddConfigPath(dir)
	viper.SetConfigName(filename)
	viper.SetConfigType(ext)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return fmt.Errorf("config file not found: %w", err)
		} else {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}
	return nil
}

// HardwareConfig is the static hardware layout read from the config file.
type HardwareConfig struct {
	Bus       int
	RescanBus int
	AddrTable []uint8
	Supported bool
}

// HardwareFromViper assembles the hardware layout from the loaded config.
// The address table is truncated to the platform slot limit.
func HardwareFromViper() HardwareConfig {
	addrs := viper.GetIntSlice("hardware.addresses")
	n := mathutil.Clamp(len(addrs), 0, maxAddressTable)
	table := make([]uint8, 0, n)
	for _, a := range addrs[:n] {
		table = append(table, uint8(a))
	}
	return HardwareConfig{
		Bus:       viper.GetInt("hardware.bus"),
		RescanBus: viper.GetInt("hardware.rescan-bus"),
		AddrTable: table,
		Supported: viper.GetBool("hardware.supported"),
	}
}

// SetDefaults resets all of the viper properties back to their default
// values.
func SetDefaults() {
	viper.SetDefault("config", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("debug", false)
	viper.SetDefault("serve.endpoint", "localhost:27300")
	viper.SetDefault("serve.settings", "/var/lib/coldswap/settings.db")
	viper.SetDefault("hardware.bus", 7)
	viper.SetDefault("hardware.rescan-bus", 7)
	viper.SetDefault("hardware.addresses", []int{0x58, 0x59, 0x5a, 0x5b})
	viper.SetDefault("hardware.supported", true)
	viper.SetDefault("discover.uri", "")
	viper.SetDefault("discover.user", "")
	viper.SetDefault("discover.pass", "")
	viper.SetDefault("discover.insecure", true)
}
