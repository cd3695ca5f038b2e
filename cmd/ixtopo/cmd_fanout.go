package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ixtopo/pkg/input"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/topology"
)

var fanoutCmd = &cobra.Command{
	Use:   "fanout",
	Short: "Link peering interfaces with fanout ports",
	Long: `Link a peering physical interface with the interface of a fanout switch
port, or remove the link.

The fanout interface is created on demand and owned by a virtual interface
of the customer's reseller (or the customer itself when not resold).

Examples:
  ixtopo fanout link --interface 12 --switch-port 40
  ixtopo fanout link --interface 12 --switch-port 40 --monitor-index 7 -x
  ixtopo fanout unlink --interface 12 -x`,
}

var (
	fanoutInterface    int64
	fanoutSwitchPort   int64
	fanoutMonitorIndex string
)

var fanoutLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link a peering interface with a fanout switch port",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fanoutSwitchPort == 0 {
			return fmt.Errorf("switch port required: use --switch-port <id>")
		}
		req := input.Map{}.
			SetBool(input.Fanout, true).
			Set(input.FanoutSwitchPort, strconv.FormatInt(fanoutSwitchPort, 10))
		if fanoutMonitorIndex != "" {
			req.Set(input.FanoutMonitorIndex, fanoutMonitorIndex)
		}
		return processFanout(cmd.Context(), "fanout-link", req)
	},
}

var fanoutUnlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Remove the fanout link of a physical interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return processFanout(cmd.Context(), "fanout-unlink", input.Map{})
	},
}

func processFanout(ctx context.Context, operation string, req input.Map) error {
	if fanoutInterface == 0 {
		return fmt.Errorf("interface required: use --interface <id>")
	}
	return withWrite(ctx, operation, func(ctx context.Context, s *store.Session, mgr *topology.Manager) (string, error) {
		resource := fmt.Sprintf("physical interface %d", fanoutInterface)
		pi, err := store.Get[*model.PhysicalInterface](ctx, s, store.TablePhysicalInterface, fanoutInterface)
		if err != nil {
			return resource, err
		}
		ok, err := mgr.ProcessFanoutPhysicalInterface(ctx, req, pi, pi.VirtualInterface)
		if err != nil {
			return resource, err
		}
		if !ok {
			return resource, fmt.Errorf("%s: fanout not changed", resource)
		}
		return resource, nil
	})
}

func init() {
	for _, c := range []*cobra.Command{fanoutLinkCmd, fanoutUnlinkCmd} {
		c.Flags().Int64Var(&fanoutInterface, "interface", 0, "Peering physical interface ID")
		fanoutCmd.AddCommand(c)
	}
	fanoutLinkCmd.Flags().Int64Var(&fanoutSwitchPort, "switch-port", 0, "Fanout switch port ID")
	fanoutLinkCmd.Flags().StringVar(&fanoutMonitorIndex, "monitor-index", "", "Monitor index for a new fanout interface (default: next free)")
}
