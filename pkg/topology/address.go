package topology

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/input"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// AddressFamily bundles what SetIP needs to know about one IP family: the
// input field prefix, the label used in alerts, the address table and the
// VLAN interface configuration block.
type AddressFamily struct {
	Family model.Family
	Prefix string // input field prefix, e.g. "ipv4"
	Label  string // e.g. "IPv4"
	Table  store.Table
}

var (
	IPv4 = AddressFamily{Family: model.IPv4, Prefix: "ipv4", Label: "IPv4", Table: store.TableIPv4Address}
	IPv6 = AddressFamily{Family: model.IPv6, Prefix: "ipv6", Label: "IPv6", Table: store.TableIPv6Address}
)

// FamilyFor returns the descriptor for f
func FamilyFor(f model.Family) AddressFamily {
	if f == model.IPv6 {
		return IPv6
	}
	return IPv4
}

// Field returns the input field name for suffix, e.g. "ipv6-hostname"
func (f AddressFamily) Field(suffix string) string {
	return f.Prefix + suffix
}

// Config returns the family's configuration block of vli
func (f AddressFamily) Config(vli *model.VlanInterface) *model.AddressConfig {
	return vli.Config(f.Family)
}

// canonical returns s in canonical text form if it parses as an address of
// this family
func (f AddressFamily) canonical(s string) (string, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return "", false
	}
	if f.Family == model.IPv6 {
		return addr.String(), addr.Is6() && !addr.Is4In6()
	}
	return addr.String(), addr.Is4()
}

// SetIP assigns the address named by the input to vli for one family and
// copies the family's hostname, BGP MD5 secret, can-ping and route
// collector monitoring settings. The address record of vlan is created on
// first use. A missing or malformed address, or one already used by another
// VLAN interface, is pushed as an alert and nothing is changed.
func (m *Manager) SetIP(ctx context.Context, in input.Source, vlan *model.Vlan, vli *model.VlanInterface, family AddressFamily) (bool, error) {
	if err := precondition("set-ip", family.Label+" address").
		Check(in != nil, "input required", "").
		Check(vli != nil, "vlan interface required", "").
		Check(vlan != nil && vlan.ID != 0, "persisted vlan required", "stage the vlan first").
		Result(); err != nil {
		return false, err
	}

	raw, ok := input.NonEmpty(in, family.Field(input.AddressSuffix))
	if !ok {
		m.push(alert.Danger, "Please select or enter an %s address.", family.Label)
		return false, nil
	}
	address, ok := family.canonical(raw)
	if !ok {
		m.push(alert.Danger, "%s is not a valid %s address.", raw, family.Label)
		return false, nil
	}

	var ip *model.IPAddress
	e, err := m.uow.FindOneBy(ctx, family.Table, store.Filter{
		"vlan_id": strconv.FormatInt(vlan.ID, 10),
		"address": address,
	})
	switch {
	case err == nil:
		var isAddr bool
		if ip, isAddr = e.(*model.IPAddress); !isAddr {
			return false, fmt.Errorf("%s lookup returned %T", family.Table, e)
		}
		if holder := ip.VlanInterface(); holder != nil && holder != vli {
			m.push(alert.Danger, "%saddress %s is already in use.", family.Label, address)
			return false, nil
		}
	case util.IsNotFound(err):
		ip = model.NewIPAddress(family.Family, vlan, address)
		m.uow.Stage(ip)
		util.WithField("vlan", vlan.Number).Infof("Created %s address %s", family.Label, address)
	default:
		return false, fmt.Errorf("looking up %s address %s: %w", family.Label, address, err)
	}

	vli.SetAddress(ip)
	cfg := family.Config(vli)
	cfg.Hostname, _ = in.String(family.Field(input.HostnameSuffix))
	cfg.Enabled = true
	cfg.BGPMD5Secret, _ = in.String(family.Field(input.BGPMD5SecretSuffix))
	cfg.CanPing = in.Bool(family.Field(input.CanPingSuffix))
	cfg.MonitorRCBGP = in.Bool(family.Field(input.MonitorRCBGPSuffix))

	util.WithField("vlan_interface", vli.ID).Infof("Set %s address %s", family.Label, address)
	return true, nil
}
