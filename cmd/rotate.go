package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/psufleet/coldswap/internal/util"
)

var force bool

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Request one rotation step from a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postOperation("/redundancy/rotate")
	},
}

var reconfigureCmd = &cobra.Command{
	Use:   "reconfigure",
	Short: "Request a full reconfiguration pass from a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/redundancy/reconfigure"
		if force {
			path += "?force=true"
		}
		return postOperation(path)
	},
}

func postOperation(path string) error {
	res, body, err := util.MakeRequest(nil, endpointURL(path), http.MethodPost, nil, nil)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusAccepted {
		return fmt.Errorf("daemon returned %s: %s", res.Status, string(body))
	}
	fmt.Println("accepted")
	return nil
}

func init() {
	reconfigureCmd.Flags().BoolVar(&force, "force-rerank", false, "re-rank the fleet before writing final ranks")
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(reconfigureCmd)
}
