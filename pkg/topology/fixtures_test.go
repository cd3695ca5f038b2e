package topology

import (
	"context"
	"strconv"
	"testing"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/input"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/store/memory"
)

// fixture is a committed base topology plus a manager over a fresh session:
// one switch of a vendor with a bundle name, a reseller, a member resold by
// it, and one VLAN.
type fixture struct {
	t       *testing.T
	ctx     context.Context
	backend *memory.Backend
	session *store.Session
	alerts  *alert.Container
	mgr     *Manager

	vendor   *model.Vendor
	sw       *model.Switch
	reseller *model.Customer
	cust     *model.Customer
	vlan     *model.Vlan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), backend: memory.New()}
	f.open()

	f.vendor = &model.Vendor{Name: "Arista", ShortName: "arista", BundleName: "Port-Channel"}
	f.sw = &model.Switch{Name: "swi1-fac1-1", Vendor: f.vendor}
	f.reseller = &model.Customer{Name: "Reseller Ltd", ShortName: "reseller", IsReseller: true}
	f.cust = &model.Customer{Name: "Member Networks", ShortName: "member", Reseller: f.reseller}
	f.vlan = &model.Vlan{Name: "Peering LAN 1", Number: 10}
	for _, e := range []model.Entity{f.vendor, f.sw, f.reseller, f.cust, f.vlan} {
		f.session.Stage(e)
	}
	f.commit()
	return f
}

// open starts a new session and manager on the fixture backend
func (f *fixture) open() {
	f.t.Helper()
	s, err := store.Open(f.ctx, f.backend)
	if err != nil {
		f.t.Fatalf("store.Open: %v", err)
	}
	f.session = s
	f.alerts = alert.NewContainer()
	f.mgr = NewManager(s, f.alerts)
}

func (f *fixture) commit() *store.ChangeSet {
	f.t.Helper()
	cs, err := f.session.Commit(f.ctx, f.t.Name())
	if err != nil {
		f.t.Fatalf("Commit: %v", err)
	}
	return cs
}

// diff returns the pending changes without committing
func (f *fixture) diff() *store.ChangeSet {
	f.t.Helper()
	cs, err := f.session.Diff(f.t.Name())
	if err != nil {
		f.t.Fatalf("Diff: %v", err)
	}
	return cs
}

// port stages a switch port on the fixture switch
func (f *fixture) port(name string, typ model.SwitchPortType) *model.SwitchPort {
	sp := &model.SwitchPort{Name: name, Type: typ, Switch: f.sw}
	f.session.Stage(sp)
	return sp
}

// physical stages a physical interface on a new port of the given type,
// as a member of vi
func (f *fixture) physical(port string, typ model.SwitchPortType, monitorIndex int, vi *model.VirtualInterface) *model.PhysicalInterface {
	sp := f.port(port, typ)
	pi := &model.PhysicalInterface{MonitorIndex: monitorIndex}
	sp.SetPhysicalInterface(pi)
	if vi != nil {
		vi.AddPhysicalInterface(pi)
	}
	f.session.Stage(pi)
	return pi
}

// virtual stages an empty virtual interface owned by cust
func (f *fixture) virtual(cust *model.Customer) *model.VirtualInterface {
	vi := model.NewVirtualInterface(cust)
	f.session.Stage(vi)
	return vi
}

// peering stages a member's single-port virtual interface
func (f *fixture) peering(port string, monitorIndex int) (*model.PhysicalInterface, *model.VirtualInterface) {
	vi := f.virtual(f.cust)
	pi := f.physical(port, model.SwitchPortPeering, monitorIndex, vi)
	return pi, vi
}

// vlanInterface stages a VLAN interface of vi on the fixture VLAN
func (f *fixture) vlanInterface(vi *model.VirtualInterface) *model.VlanInterface {
	vli := &model.VlanInterface{Vlan: f.vlan}
	vi.AddVlanInterface(vli)
	f.session.Stage(vli)
	return vli
}

// linkInput asks for a fanout link to sp
func linkInput(sp *model.SwitchPort) input.Map {
	return input.Map{}.
		SetBool(input.Fanout, true).
		Set(input.FanoutSwitchPort, strconv.FormatInt(sp.ID, 10))
}

// link runs the fanout linker and fails the test on error
func (f *fixture) link(pi *model.PhysicalInterface, vi *model.VirtualInterface, in input.Source) bool {
	f.t.Helper()
	ok, err := f.mgr.ProcessFanoutPhysicalInterface(f.ctx, in, pi, vi)
	if err != nil {
		f.t.Fatalf("ProcessFanoutPhysicalInterface: %v", err)
	}
	return ok
}

// find looks an entity up in the current session
func find[T model.Entity](f *fixture, table store.Table, id int64) T {
	f.t.Helper()
	e, err := store.Get[T](f.ctx, f.session, table, id)
	if err != nil {
		f.t.Fatalf("Get %s %d: %v", table, id, err)
	}
	return e
}

// gone returns true if the entity is not visible in the session
func (f *fixture) gone(table store.Table, id int64) bool {
	_, err := f.session.Find(f.ctx, table, id)
	return err != nil
}

// expectAlerts checks the pushed alerts in order
func (f *fixture) expectAlerts(want ...alert.Alert) {
	f.t.Helper()
	got := f.alerts.Alerts()
	if len(got) != len(want) {
		f.t.Fatalf("alerts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			f.t.Errorf("alert[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
