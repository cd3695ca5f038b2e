package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ixtopo/pkg/cli"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
)

var virtualInterfaceCmd = &cobra.Command{
	Use:     "virtual-interface",
	Aliases: []string{"vi"},
	Short:   "Show virtual interfaces",
}

var virtualInterfaceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a virtual interface and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid virtual interface ID %q", args[0])
		}
		return withRead(cmd.Context(), func(ctx context.Context, s *store.Session) error {
			vi, err := store.Get[*model.VirtualInterface](ctx, s, store.TableVirtualInterface, id)
			if err != nil {
				return err
			}
			rows := memberRows(vi)
			if jsonOutput {
				return printJSON(struct {
					*model.VirtualInterface
					Customer string      `json:"customer"`
					Members  []memberRow `json:"members"`
				}{vi, customerName(vi.Customer), rows})
			}
			printVirtualInterface(vi, rows)
			return nil
		})
	},
}

// memberRow is one line of the member table
type memberRow struct {
	Interface    int64  `json:"interface"`
	Switch       string `json:"switch"`
	Port         string `json:"port"`
	Type         string `json:"type"`
	MonitorIndex int    `json:"monitor_index"`
	Related      string `json:"related,omitempty"`
}

func memberRows(vi *model.VirtualInterface) []memberRow {
	rows := make([]memberRow, 0, vi.MemberCount())
	for _, pi := range vi.PhysicalInterfaces {
		r := memberRow{
			Interface:    pi.ID,
			Port:         pi.SwitchPortName(),
			MonitorIndex: pi.MonitorIndex,
		}
		if sw := pi.Switch(); sw != nil {
			r.Switch = sw.Name
		}
		if pi.SwitchPort != nil {
			r.Type = string(pi.SwitchPort.Type)
		}
		if rel := pi.RelatedInterface(); rel != nil {
			dir := "fanout"
			if pi.PeeringInterface() != nil {
				dir = "peering"
			}
			r.Related = fmt.Sprintf("%s %d (%s)", dir, rel.ID, rel.SwitchPortName())
		}
		rows = append(rows, r)
	}
	return rows
}

func customerName(c *model.Customer) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func printVirtualInterface(vi *model.VirtualInterface, rows []memberRow) {
	fmt.Println(bold(fmt.Sprintf("Virtual interface %d", vi.ID)))
	d := cli.NewDetail(os.Stdout, 20)
	d.Field("Customer", cli.OrDash(customerName(vi.Customer)))
	d.Field("Bundle Name", cli.OrDash(vi.Name))
	cg := "-"
	if vi.HasChannelGroup() {
		cg = strconv.Itoa(*vi.ChannelGroup)
	}
	d.Field("Channel Group", cg)
	d.Field("LAG Framing", cli.YesNo(vi.LAGFraming))
	d.Field("Fast LACP", cli.YesNo(vi.FastLACP))
	d.Field("Trunk", cli.YesNo(vi.Trunk))
	fmt.Println()

	if len(rows) == 0 {
		fmt.Println("No member interfaces")
		return
	}
	t := cli.NewTable("INTERFACE", "SWITCH", "PORT", "TYPE", "MONITOR", "RELATED")
	for _, r := range rows {
		t.Row(strconv.FormatInt(r.Interface, 10), cli.OrDash(r.Switch), cli.OrDash(r.Port),
			cli.OrDash(r.Type), strconv.Itoa(r.MonitorIndex), cli.OrDash(r.Related))
	}
	t.Flush()
}

func init() {
	virtualInterfaceCmd.AddCommand(virtualInterfaceShowCmd)
}
