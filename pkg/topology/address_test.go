package topology

import (
	"errors"
	"testing"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/input"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/util"
)

func ipInput(family AddressFamily, address string) input.Map {
	return input.Map{}.Set(family.Field(input.AddressSuffix), address)
}

func (f *fixture) setIP(in input.Source, vli *model.VlanInterface, family AddressFamily) bool {
	f.t.Helper()
	ok, err := f.mgr.SetIP(f.ctx, in, f.vlan, vli, family)
	if err != nil {
		f.t.Fatalf("SetIP: %v", err)
	}
	return ok
}

func TestSetIP_CreatesAddress(t *testing.T) {
	f := newFixture(t)
	_, vi := f.peering("Ethernet1", 1)
	vli := f.vlanInterface(vi)
	f.commit()

	in := ipInput(IPv4, "192.0.2.1").
		Set("ipv4-hostname", "member.ixp.example").
		Set("ipv4-bgp-md5-secret", "s3cret").
		SetBool("ipv4-can-ping", true).
		SetBool("ipv4-monitor-rcbgp", false)

	if !f.setIP(in, vli, IPv4) {
		t.Fatalf("SetIP failed: %v", f.alerts.Alerts())
	}
	f.expectAlerts()

	cfg := vli.IPv4
	if cfg.Address == nil || cfg.Address.ID == 0 {
		t.Fatal("no staged address bound")
	}
	if cfg.Address.Address != "192.0.2.1" || cfg.Address.Vlan != f.vlan || cfg.Address.Family != model.IPv4 {
		t.Errorf("address = %+v", cfg.Address)
	}
	if cfg.Address.VlanInterface() != vli {
		t.Error("address back reference not set")
	}
	if !cfg.Enabled {
		t.Error("Enabled = false")
	}
	if cfg.Hostname != "member.ixp.example" || cfg.BGPMD5Secret != "s3cret" || !cfg.CanPing || cfg.MonitorRCBGP {
		t.Errorf("config = %+v", cfg)
	}
	if vli.IPv6.Address != nil || vli.IPv6.Enabled {
		t.Error("IPv6 config touched")
	}

	cs := f.commit()
	adds := cs.For(store.TableIPv4Address)
	if len(adds) != 1 || adds[0].NewValue["address"] != "192.0.2.1" {
		t.Errorf("IPV4_ADDRESS changes = %+v", adds)
	}
}

func TestSetIP_MissingAddress(t *testing.T) {
	tests := []struct {
		name   string
		family AddressFamily
		in     input.Map
		want   string
	}{
		{"absent v4", IPv4, input.Map{}, "Please select or enter an IPv4 address."},
		{"blank v4", IPv4, ipInput(IPv4, "  "), "Please select or enter an IPv4 address."},
		{"absent v6", IPv6, ipInput(IPv4, "192.0.2.1"), "Please select or enter an IPv6 address."},
		{"v6 in v4 field", IPv4, ipInput(IPv4, "2001:db8::1"), "2001:db8::1 is not a valid IPv4 address."},
		{"v4 in v6 field", IPv6, ipInput(IPv6, "192.0.2.1"), "192.0.2.1 is not a valid IPv6 address."},
		{"garbage", IPv4, ipInput(IPv4, "192.0.2"), "192.0.2 is not a valid IPv4 address."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, vi := f.peering("Ethernet1", 1)
			vli := f.vlanInterface(vi)
			f.commit()

			if f.setIP(tt.in, vli, tt.family) {
				t.Fatal("SetIP succeeded")
			}
			f.expectAlerts(alert.Alert{Message: tt.want, Severity: alert.Danger})
			if cs := f.diff(); !cs.IsEmpty() {
				t.Errorf("failed SetIP staged changes:\n%s", cs)
			}
		})
	}
}

func TestSetIP_AddressInUse(t *testing.T) {
	f := newFixture(t)
	_, vi1 := f.peering("Ethernet1", 1)
	_, vi2 := f.peering("Ethernet2", 2)
	first := f.vlanInterface(vi1)
	second := f.vlanInterface(vi2)
	f.commit()

	if !f.setIP(ipInput(IPv4, "192.0.2.1"), first, IPv4) {
		t.Fatal("first SetIP failed")
	}
	f.commit()
	addr := first.IPv4.Address

	if f.setIP(ipInput(IPv4, "192.0.2.1"), second, IPv4) {
		t.Fatal("address bound to a second vlan interface")
	}
	f.expectAlerts(alert.Alert{Message: "IPv4address 192.0.2.1 is already in use.", Severity: alert.Danger})

	if first.IPv4.Address != addr || addr.VlanInterface() != first {
		t.Error("first binding disturbed")
	}
	if second.IPv4.Address != nil || second.IPv4.Enabled {
		t.Error("second vlan interface changed")
	}
	if cs := f.diff(); !cs.IsEmpty() {
		t.Errorf("rejected SetIP staged changes:\n%s", cs)
	}
}

func TestSetIP_ReusesFreeRecord(t *testing.T) {
	f := newFixture(t)
	_, vi := f.peering("Ethernet1", 1)
	vli := f.vlanInterface(vi)
	free := model.NewIPAddress(model.IPv6, f.vlan, "2001:db8::1")
	f.session.Stage(free)
	f.commit()

	if !f.setIP(ipInput(IPv6, "2001:DB8:0::1"), vli, IPv6) {
		t.Fatalf("SetIP failed: %v", f.alerts.Alerts())
	}
	if vli.IPv6.Address != free {
		t.Error("existing free record not reused")
	}
	if !vli.IPv6.Enabled {
		t.Error("IPv6 not enabled")
	}
	if vli.IPv4.Enabled {
		t.Error("IPv4 touched")
	}
	if n := f.diff().Count(store.ChangeAdd); n != 0 {
		t.Errorf("%d rows added, want none", n)
	}
}

func TestSetIP_SameInterfaceAgain(t *testing.T) {
	f := newFixture(t)
	_, vi := f.peering("Ethernet1", 1)
	vli := f.vlanInterface(vi)
	f.commit()

	if !f.setIP(ipInput(IPv4, "192.0.2.1"), vli, IPv4) {
		t.Fatal("first SetIP failed")
	}
	f.commit()

	in := ipInput(IPv4, "192.0.2.1").Set("ipv4-hostname", "renamed.ixp.example")
	if !f.setIP(in, vli, IPv4) {
		t.Fatal("SetIP on the holder failed")
	}
	if vli.IPv4.Hostname != "renamed.ixp.example" {
		t.Errorf("Hostname = %q", vli.IPv4.Hostname)
	}
	cs := f.diff()
	if cs.Count(store.ChangeAdd) != 0 || cs.Count(store.ChangeModify) != 1 {
		t.Errorf("changes:\n%s", cs)
	}
}

func TestSetIP_ReplacesPreviousAddress(t *testing.T) {
	f := newFixture(t)
	_, vi := f.peering("Ethernet1", 1)
	vli := f.vlanInterface(vi)
	f.commit()

	if !f.setIP(ipInput(IPv4, "192.0.2.1"), vli, IPv4) {
		t.Fatal("first SetIP failed")
	}
	old := vli.IPv4.Address
	if !f.setIP(ipInput(IPv4, "192.0.2.2"), vli, IPv4) {
		t.Fatal("second SetIP failed")
	}
	if old.VlanInterface() != nil {
		t.Error("previous address still bound")
	}
	if vli.IPv4.AddressString() != "192.0.2.2" {
		t.Errorf("address = %q", vli.IPv4.AddressString())
	}

	// The released address is free for another interface
	_, vi2 := f.peering("Ethernet2", 2)
	other := f.vlanInterface(vi2)
	if !f.setIP(ipInput(IPv4, "192.0.2.1"), other, IPv4) {
		t.Fatal("released address could not be reused")
	}
	if other.IPv4.Address != old {
		t.Error("released record not reused")
	}
}

func TestSetIP_Preconditions(t *testing.T) {
	f := newFixture(t)
	_, vi := f.peering("Ethernet1", 1)
	vli := f.vlanInterface(vi)

	unsaved := &model.Vlan{Name: "Unsaved"}
	if _, err := f.mgr.SetIP(f.ctx, ipInput(IPv4, "192.0.2.1"), unsaved, vli, IPv4); !errors.Is(err, util.ErrPrecondition) {
		t.Errorf("unpersisted vlan: err = %v", err)
	}
	if _, err := f.mgr.SetIP(f.ctx, ipInput(IPv4, "192.0.2.1"), f.vlan, nil, IPv4); !errors.Is(err, util.ErrPrecondition) {
		t.Errorf("nil vlan interface: err = %v", err)
	}
}

func TestAddressFamily(t *testing.T) {
	if got := IPv6.Field(input.BGPMD5SecretSuffix); got != "ipv6-bgp-md5-secret" {
		t.Errorf("Field = %q", got)
	}
	if FamilyFor(model.IPv6) != IPv6 || FamilyFor(model.IPv4) != IPv4 {
		t.Error("FamilyFor mismatch")
	}
	vli := &model.VlanInterface{}
	if IPv6.Config(vli) != &vli.IPv6 {
		t.Error("Config returned the wrong block")
	}
}
