package topology

import (
	"testing"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/model"
)

func intPtr(n int) *int { return &n }

func TestSetBundleDetails_NoMembersClears(t *testing.T) {
	tests := []struct {
		name string
		vi   model.VirtualInterface
	}{
		{"all set", model.VirtualInterface{Name: "Port-Channel", ChannelGroup: intPtr(5), LAGFraming: true, FastLACP: true}},
		{"stale name only", model.VirtualInterface{Name: "ae"}},
		{"zero channel group", model.VirtualInterface{ChannelGroup: intPtr(0)}},
		{"already clear", model.VirtualInterface{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			vi := tt.vi

			if err := f.mgr.SetBundleDetails(f.ctx, &vi); err != nil {
				t.Fatalf("SetBundleDetails: %v", err)
			}
			if vi.Name != "" || vi.ChannelGroup != nil || vi.LAGFraming || vi.FastLACP {
				t.Errorf("bundle attributes not cleared: name=%q cg=%v lag=%v lacp=%v",
					vi.Name, vi.ChannelGroup, vi.LAGFraming, vi.FastLACP)
			}
			f.expectAlerts()
		})
	}
}

func TestSetBundleDetails_AssignsMissing(t *testing.T) {
	f := newFixture(t)
	vi := f.virtual(f.cust)
	vi.LAGFraming = true
	f.physical("Ethernet1", model.SwitchPortPeering, 1, vi)
	f.physical("Ethernet2", model.SwitchPortPeering, 2, vi)
	f.commit()

	if err := f.mgr.SetBundleDetails(f.ctx, vi); err != nil {
		t.Fatalf("SetBundleDetails: %v", err)
	}
	if !vi.HasChannelGroup() || *vi.ChannelGroup != 1 {
		t.Errorf("ChannelGroup = %v, want 1", vi.ChannelGroup)
	}
	if vi.Name != "Port-Channel" {
		t.Errorf("Name = %q, want vendor bundle name", vi.Name)
	}
	f.expectAlerts(
		alert.Alert{Message: msgChannelGroupAssigned, Severity: alert.Info},
		alert.Alert{Message: msgBundleNameAssigned, Severity: alert.Info},
	)

	// Normalizing again changes nothing
	f.alerts.Drain()
	if err := f.mgr.SetBundleDetails(f.ctx, vi); err != nil {
		t.Fatalf("second SetBundleDetails: %v", err)
	}
	f.expectAlerts()
}

func TestSetBundleDetails_ChannelGroupPerSwitch(t *testing.T) {
	f := newFixture(t)

	taken := f.virtual(f.cust)
	taken.LAGFraming = true
	taken.Name = "Port-Channel"
	taken.SetChannelGroup(intPtr(1))
	f.physical("Ethernet1", model.SwitchPortPeering, 1, taken)

	// Channel groups on another switch do not count
	other := &model.Switch{Name: "swi1-fac2-1", Vendor: f.vendor}
	f.session.Stage(other)
	remote := f.virtual(f.cust)
	remote.SetChannelGroup(intPtr(2))
	sp := &model.SwitchPort{Name: "Ethernet1", Type: model.SwitchPortPeering, Switch: other}
	f.session.Stage(sp)
	rpi := &model.PhysicalInterface{}
	sp.SetPhysicalInterface(rpi)
	remote.AddPhysicalInterface(rpi)
	f.session.Stage(rpi)

	vi := f.virtual(f.cust)
	vi.LAGFraming = true
	vi.Name = "Port-Channel"
	f.physical("Ethernet2", model.SwitchPortPeering, 2, vi)
	f.commit()

	if err := f.mgr.SetBundleDetails(f.ctx, vi); err != nil {
		t.Fatalf("SetBundleDetails: %v", err)
	}
	if got := *vi.ChannelGroup; got != 2 {
		t.Errorf("ChannelGroup = %d, want 2", got)
	}
	f.expectAlerts(alert.Alert{Message: msgChannelGroupAssigned, Severity: alert.Info})
}

func TestSetBundleDetails_VendorWithoutBundleName(t *testing.T) {
	f := newFixture(t)
	f.vendor.BundleName = ""
	vi := f.virtual(f.cust)
	vi.LAGFraming = true
	vi.SetChannelGroup(intPtr(3))
	f.physical("Ethernet1", model.SwitchPortPeering, 1, vi)
	f.commit()

	if err := f.mgr.SetBundleDetails(f.ctx, vi); err != nil {
		t.Fatalf("SetBundleDetails: %v", err)
	}
	if vi.Name != "" {
		t.Errorf("Name = %q, want empty", vi.Name)
	}
	if *vi.ChannelGroup != 3 {
		t.Errorf("existing channel group changed to %d", *vi.ChannelGroup)
	}
	f.expectAlerts(alert.Alert{Message: msgBundleNameMissing, Severity: alert.Warning})
}

func TestSetBundleDetails_NotLAG(t *testing.T) {
	f := newFixture(t)
	vi := f.virtual(f.cust)
	vi.FastLACP = true
	f.physical("Ethernet1", model.SwitchPortPeering, 1, vi)
	f.commit()

	if err := f.mgr.SetBundleDetails(f.ctx, vi); err != nil {
		t.Fatalf("SetBundleDetails: %v", err)
	}
	if vi.Name != "" || vi.ChannelGroup != nil || !vi.FastLACP {
		t.Error("non-LAG virtual interface with members was modified")
	}
	f.expectAlerts()
}

func TestSetBundleDetails_FirstMemberVendor(t *testing.T) {
	f := newFixture(t)
	juniper := &model.Vendor{Name: "Juniper", BundleName: "ae"}
	f.session.Stage(juniper)
	jsw := &model.Switch{Name: "swi1-fac2-1", Vendor: juniper}
	f.session.Stage(jsw)

	vi := f.virtual(f.cust)
	vi.LAGFraming = true
	vi.SetChannelGroup(intPtr(1))
	jsp := &model.SwitchPort{Name: "xe-0/0/0", Type: model.SwitchPortPeering, Switch: jsw}
	f.session.Stage(jsp)
	jpi := &model.PhysicalInterface{}
	jsp.SetPhysicalInterface(jpi)
	vi.AddPhysicalInterface(jpi)
	f.session.Stage(jpi)
	f.physical("Ethernet1", model.SwitchPortPeering, 1, vi)
	f.commit()

	if err := f.mgr.SetBundleDetails(f.ctx, vi); err != nil {
		t.Fatalf("SetBundleDetails: %v", err)
	}
	if vi.Name != "ae" {
		t.Errorf("Name = %q, want the first member's vendor bundle name", vi.Name)
	}
}
