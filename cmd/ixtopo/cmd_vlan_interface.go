package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ixtopo/pkg/cli"
	"github.com/newtron-network/ixtopo/pkg/input"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/topology"
)

var vlanInterfaceCmd = &cobra.Command{
	Use:     "vlan-interface",
	Aliases: []string{"vli"},
	Short:   "Manage VLAN interfaces",
}

var (
	setIPVlanInterface int64
	setIPv6            bool
	setIPAddress       string
	setIPHostname      string
	setIPMD5           string
	setIPCanPing       bool
	setIPMonitorRCBGP  bool
)

var vlanInterfaceSetIPCmd = &cobra.Command{
	Use:   "set-ip",
	Short: "Assign an address to a VLAN interface",
	Long: `Assign an IPv4 (or with --ipv6 an IPv6) address to a VLAN interface.

The address record is created in the interface's VLAN on first use. An
address already used by another VLAN interface is refused.

Examples:
  ixtopo vlan-interface set-ip --vlan-interface 3 --address 192.0.2.10 --hostname as65500.ix.example.net --can-ping -x
  ixtopo vlan-interface set-ip --vlan-interface 3 --ipv6 --address 2001:db8::10 --md5 s3cret -x`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if setIPVlanInterface == 0 {
			return fmt.Errorf("VLAN interface required: use --vlan-interface <id>")
		}
		family := topology.IPv4
		if setIPv6 {
			family = topology.IPv6
		}
		req := setIPInput(family)

		return withWrite(cmd.Context(), "set-ip", func(ctx context.Context, s *store.Session, mgr *topology.Manager) (string, error) {
			resource := fmt.Sprintf("vlan interface %d", setIPVlanInterface)
			vli, err := store.Get[*model.VlanInterface](ctx, s, store.TableVlanInterface, setIPVlanInterface)
			if err != nil {
				return resource, err
			}
			ok, err := mgr.SetIP(ctx, req, vli.Vlan, vli, family)
			if err != nil {
				return resource, err
			}
			if !ok {
				return resource, fmt.Errorf("%s: %s address not changed", resource, family.Label)
			}
			return resource, nil
		})
	},
}

// setIPInput renders the set-ip flags as request fields
func setIPInput(family topology.AddressFamily) input.Map {
	return input.Map{}.
		Set(family.Field(input.AddressSuffix), setIPAddress).
		Set(family.Field(input.HostnameSuffix), setIPHostname).
		Set(family.Field(input.BGPMD5SecretSuffix), setIPMD5).
		SetBool(family.Field(input.CanPingSuffix), setIPCanPing).
		SetBool(family.Field(input.MonitorRCBGPSuffix), setIPMonitorRCBGP)
}

var vlanInterfaceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show VLAN interface details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid VLAN interface ID %q", args[0])
		}
		return withRead(cmd.Context(), func(ctx context.Context, s *store.Session) error {
			vli, err := store.Get[*model.VlanInterface](ctx, s, store.TableVlanInterface, id)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(vlanInterfaceView(vli))
			}
			printVlanInterface(vli)
			return nil
		})
	},
}

// vlanInterfaceDetail is the JSON form of "vlan-interface show"
type vlanInterfaceDetail struct {
	*model.VlanInterface
	Customer    string `json:"customer"`
	Vlan        string `json:"vlan"`
	IPv4Address string `json:"ipv4_address,omitempty"`
	IPv6Address string `json:"ipv6_address,omitempty"`
}

func vlanInterfaceView(vli *model.VlanInterface) vlanInterfaceDetail {
	d := vlanInterfaceDetail{
		VlanInterface: vli,
		IPv4Address:   vli.IPv4.AddressString(),
		IPv6Address:   vli.IPv6.AddressString(),
	}
	if c := vli.Customer(); c != nil {
		d.Customer = c.Name
	}
	if vli.Vlan != nil {
		d.Vlan = fmt.Sprintf("%s (%d)", vli.Vlan.Name, vli.Vlan.Number)
	}
	return d
}

func printVlanInterface(vli *model.VlanInterface) {
	v := vlanInterfaceView(vli)
	d := cli.NewDetail(os.Stdout, 26)

	fmt.Println(bold(fmt.Sprintf("VLAN interface %d", vli.ID)))
	d.Field("Customer", cli.OrDash(v.Customer))
	d.Field("VLAN", cli.OrDash(v.Vlan))

	for _, f := range []topology.AddressFamily{topology.IPv4, topology.IPv6} {
		cfg := f.Config(vli)
		d.Section(f.Label)
		status := red("disabled")
		if cfg.Enabled {
			status = green("enabled")
		}
		d.Field("Status", status)
		d.Field("Address", cli.OrDash(cfg.AddressString()))
		d.Field("Hostname", cli.OrDash(cfg.Hostname))
		d.Field("Can Ping", cli.YesNo(cfg.CanPing))
		d.Field("Monitor RC BGP", cli.YesNo(cfg.MonitorRCBGP))
		md5 := "-"
		if cfg.BGPMD5Secret != "" {
			md5 = "(set)"
		}
		d.Field("BGP MD5 Secret", md5)
	}

	d.Section("Peering")
	d.Field("Route Server Client", cli.YesNo(vli.RSClient))
	d.Field("IRRDB Filtering", cli.YesNo(vli.IRRDBFilter))
	d.Field("More Specifics", cli.YesNo(vli.RSMoreSpecifics))
	d.Field("Multicast", cli.YesNo(vli.McastEnabled))
	d.Field("Max Prefixes", vli.MaxBGPPrefix)
	d.Field("Busy Host", cli.YesNo(vli.BusyHost))
	d.Field("AS112 Client", cli.YesNo(vli.AS112Client))
	d.Field("Notes", cli.OrDash(vli.Notes))
}

func init() {
	f := vlanInterfaceSetIPCmd.Flags()
	f.Int64Var(&setIPVlanInterface, "vlan-interface", 0, "VLAN interface ID")
	f.BoolVar(&setIPv6, "ipv6", false, "Set the IPv6 address instead of IPv4")
	f.StringVar(&setIPAddress, "address", "", "Address to assign")
	f.StringVar(&setIPHostname, "hostname", "", "Hostname for the address")
	f.StringVar(&setIPMD5, "md5", "", "BGP MD5 secret")
	f.BoolVar(&setIPCanPing, "can-ping", false, "Address answers ping")
	f.BoolVar(&setIPMonitorRCBGP, "monitor-rcbgp", false, "Monitor the route collector BGP session")

	vlanInterfaceCmd.AddCommand(vlanInterfaceSetIPCmd)
	vlanInterfaceCmd.AddCommand(vlanInterfaceShowCmd)
}
