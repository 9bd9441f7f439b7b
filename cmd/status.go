package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/psufleet/coldswap/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running daemon's redundancy policy, status and fleet",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/redundancy"
		if cmd.Flag("health").Value.String() == "true" {
			path = "/redundancy/health"
		}
		res, body, err := util.MakeRequest(nil, endpointURL(path), http.MethodGet, nil, nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("daemon returned %s: %s", res.Status, string(body))
		}
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("health", false, "show only the latest redundancy health event")
	rootCmd.AddCommand(statusCmd)
}
