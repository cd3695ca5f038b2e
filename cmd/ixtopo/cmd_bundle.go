package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/topology"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Manage LAG bundle attributes",
}

var bundleVirtualInterface int64

var bundleNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Fill in a missing channel group and bundle name",
	Long: `Normalize the bundle attributes of a virtual interface.

A LAG gets the lowest free channel group of its switch and the bundle name
of its switch vendor when either is missing. A virtual interface without
members has its bundle attributes cleared.

Examples:
  ixtopo bundle normalize --virtual-interface 7 -x`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bundleVirtualInterface == 0 {
			return fmt.Errorf("virtual interface required: use --virtual-interface <id>")
		}
		return withWrite(cmd.Context(), "bundle-normalize", func(ctx context.Context, s *store.Session, mgr *topology.Manager) (string, error) {
			resource := fmt.Sprintf("virtual interface %d", bundleVirtualInterface)
			vi, err := store.Get[*model.VirtualInterface](ctx, s, store.TableVirtualInterface, bundleVirtualInterface)
			if err != nil {
				return resource, err
			}
			return resource, mgr.SetBundleDetails(ctx, vi)
		})
	},
}

func init() {
	bundleNormalizeCmd.Flags().Int64Var(&bundleVirtualInterface, "virtual-interface", 0, "Virtual interface ID")
	bundleCmd.AddCommand(bundleNormalizeCmd)
}
