package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ixtopo/pkg/inventory"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/topology"
)

var importCmd = &cobra.Command{
	Use:   "import <inventory.yaml>",
	Short: "Import vendors, switches, customers, VLANs and interfaces",
	Long: `Import an inventory file.

Vendors, switches, switch ports, customers and VLANs are created or updated
by name. Virtual interfaces are created with their members, fanout links,
bundle details, VLAN interfaces and addresses; one whose first member port
already has an interface is skipped, so importing twice is harmless.

Examples:
  ixtopo import exchange.yaml
  ixtopo --backend sqlite --db ix.db import exchange.yaml -x`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := inventory.Load(args[0])
		if err != nil {
			return err
		}
		return withWrite(cmd.Context(), "import", func(ctx context.Context, s *store.Session, mgr *topology.Manager) (string, error) {
			sum, err := inventory.NewImporter(s, mgr.Alerts()).Import(ctx, inv)
			if err != nil {
				return args[0], err
			}
			if !jsonOutput {
				fmt.Printf("Inventory %s: %s\n", args[0], sum)
			}
			return args[0], nil
		})
	},
}
