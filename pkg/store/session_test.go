package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/store/memory"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// fabric is a small committed topology: one switch with three ports, a
// reseller with a fanout LAG and a resold customer peering on a VLAN.
type fabric struct {
	vendor   *model.Vendor
	sw       *model.Switch
	reseller *model.Customer
	cust     *model.Customer
	ports    []*model.SwitchPort
	peering  *model.PhysicalInterface
	fanout   *model.PhysicalInterface
	custVI   *model.VirtualInterface
	fanoutVI *model.VirtualInterface
	vlan     *model.Vlan
	vli      *model.VlanInterface
	addr     *model.IPAddress
}

func buildFabric(t *testing.T, s *store.Session) *fabric {
	t.Helper()
	f := &fabric{}
	f.vendor = &model.Vendor{Name: "Arista", ShortName: "arista", BundleName: "Port-Channel"}
	f.sw = &model.Switch{Name: "sw01", Vendor: f.vendor}
	f.reseller = &model.Customer{Name: "Reseller", ShortName: "res", IsReseller: true}
	f.cust = &model.Customer{Name: "Member", ShortName: "mem", Reseller: f.reseller}
	s.Stage(f.vendor)
	s.Stage(f.sw)
	s.Stage(f.reseller)
	s.Stage(f.cust)

	for _, name := range []string{"Ethernet1", "Ethernet2", "Ethernet3"} {
		sp := &model.SwitchPort{Name: name, Type: model.SwitchPortPeering, Switch: f.sw}
		s.Stage(sp)
		f.ports = append(f.ports, sp)
	}
	f.ports[1].Type = model.SwitchPortFanout

	f.custVI = model.NewVirtualInterface(f.cust)
	f.fanoutVI = model.NewVirtualInterface(f.reseller)
	s.Stage(f.custVI)
	s.Stage(f.fanoutVI)

	f.peering = &model.PhysicalInterface{MonitorIndex: 1}
	f.ports[0].SetPhysicalInterface(f.peering)
	f.custVI.AddPhysicalInterface(f.peering)
	f.fanout = &model.PhysicalInterface{MonitorIndex: 4}
	f.ports[1].SetPhysicalInterface(f.fanout)
	f.fanoutVI.AddPhysicalInterface(f.fanout)
	model.LinkFanout(f.peering, f.fanout)
	s.Stage(f.peering)
	s.Stage(f.fanout)

	f.vlan = &model.Vlan{Name: "Peering LAN", Number: 10}
	s.Stage(f.vlan)
	f.addr = model.NewIPAddress(model.IPv4, f.vlan, "192.0.2.10")
	s.Stage(f.addr)
	f.vli = &model.VlanInterface{Vlan: f.vlan}
	f.custVI.AddVlanInterface(f.vli)
	f.vli.SetAddress(f.addr)
	f.vli.IPv4.Enabled = true
	f.vli.IPv4.Hostname = "member.example.net"
	s.Stage(f.vli)

	_, err := s.Commit(context.Background(), "fixture")
	require.NoError(t, err)
	return f
}

func openSession(t *testing.T, b store.Backend) *store.Session {
	t.Helper()
	s, err := store.Open(context.Background(), b)
	require.NoError(t, err)
	return s
}

// ============================================================================
// Identity map and staging
// ============================================================================

func TestSession_StageAssignsIDs(t *testing.T) {
	s := openSession(t, memory.New())

	v1 := &model.Vendor{Name: "a"}
	v2 := &model.Vendor{Name: "b"}
	s.Stage(v1)
	s.Stage(v2)
	s.Stage(v1)

	assert.Equal(t, int64(1), v1.ID)
	assert.Equal(t, int64(2), v2.ID)

	got, err := s.Find(context.Background(), store.TableVendor, 2)
	require.NoError(t, err)
	assert.Same(t, v2, got)
}

func TestSession_FindNotFound(t *testing.T) {
	s := openSession(t, memory.New())

	_, err := s.Find(context.Background(), store.TableSwitchPort, 42)
	require.Error(t, err)
	assert.True(t, util.IsNotFound(err))

	var nf *util.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "switch port", nf.Kind)
	assert.Equal(t, "42", nf.Key)
}

func TestSession_FindOneBy(t *testing.T) {
	b := memory.New()
	f := buildFabric(t, openSession(t, b))
	s := openSession(t, b)
	ctx := context.Background()

	e, err := s.FindOneBy(ctx, store.TableIPv4Address, store.Filter{
		"vlan_id": "1",
		"address": "192.0.2.10",
	})
	require.NoError(t, err)
	assert.Equal(t, f.addr.ID, e.GetID())

	_, err = s.FindOneBy(ctx, store.TableIPv4Address, store.Filter{"vlan_id": "1", "address": "192.0.2.99"})
	assert.True(t, util.IsNotFound(err))

	// IPv6 table is separate
	_, err = s.FindOneBy(ctx, store.TableIPv6Address, store.Filter{"address": "192.0.2.10"})
	assert.True(t, util.IsNotFound(err))
}

func TestGet_TypeAssertion(t *testing.T) {
	b := memory.New()
	buildFabric(t, openSession(t, b))
	s := openSession(t, b)

	sp, err := store.Get[*model.SwitchPort](context.Background(), s, store.TableSwitchPort, 2)
	require.NoError(t, err)
	assert.Equal(t, "Ethernet2", sp.Name)

	_, err = store.Get[*model.Vlan](context.Background(), s, store.TableSwitchPort, 2)
	assert.Error(t, err)
}

// ============================================================================
// Commit and reload
// ============================================================================

func TestSession_CommitReloadsGraph(t *testing.T) {
	b := memory.New()
	buildFabric(t, openSession(t, b))

	s := openSession(t, b)
	ctx := context.Background()

	peering, err := store.Get[*model.PhysicalInterface](ctx, s, store.TablePhysicalInterface, 1)
	require.NoError(t, err)
	fanout, err := store.Get[*model.PhysicalInterface](ctx, s, store.TablePhysicalInterface, 2)
	require.NoError(t, err)

	assert.Same(t, fanout, peering.FanoutInterface())
	assert.Same(t, peering, fanout.PeeringInterface())
	assert.Equal(t, "Ethernet1", peering.SwitchPortName())
	assert.Same(t, peering, peering.SwitchPort.PhysicalInterface)
	assert.Equal(t, "Port-Channel", peering.SwitchPort.Vendor().BundleName)

	require.NotNil(t, peering.VirtualInterface)
	assert.Equal(t, "Member", peering.Customer().Name)
	assert.Equal(t, "Reseller", peering.Customer().ResellerOrSelf().Name)
	assert.Equal(t, "Reseller", fanout.Customer().Name)

	require.Len(t, peering.VirtualInterface.VlanInterfaces, 1)
	vli := peering.VirtualInterface.VlanInterfaces[0]
	assert.Equal(t, "192.0.2.10", vli.IPv4.AddressString())
	assert.Same(t, vli, vli.IPv4.Address.VlanInterface())
	assert.True(t, vli.IPv4.Enabled)
	assert.Equal(t, "member.example.net", vli.IPv4.Hostname)
	assert.Nil(t, vli.IPv6.Address)
}

func TestSession_CommitEmpty(t *testing.T) {
	b := memory.New()
	buildFabric(t, openSession(t, b))
	s := openSession(t, b)

	cs, err := s.Commit(context.Background(), "noop")
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())
	assert.Equal(t, 0, cs.AppliedCount)
}

func TestSession_CommitModifyAndDelete(t *testing.T) {
	b := memory.New()
	buildFabric(t, openSession(t, b))
	s := openSession(t, b)
	ctx := context.Background()

	peering, err := store.Get[*model.PhysicalInterface](ctx, s, store.TablePhysicalInterface, 1)
	require.NoError(t, err)
	fanout := peering.FanoutInterface()
	fanoutVI := fanout.VirtualInterface

	model.UnlinkFanout(peering)
	fanout.SwitchPort.ClearPhysicalInterface()
	fanoutVI.RemovePhysicalInterface(fanout)
	s.StageRemoval(fanout)
	s.StageRemoval(fanoutVI)

	cs, err := s.Commit(ctx, "unlink")
	require.NoError(t, err)
	assert.Equal(t, 2, cs.Count(store.ChangeDelete))
	assert.Equal(t, 1, cs.Count(store.ChangeModify))
	assert.Equal(t, len(cs.Changes), cs.AppliedCount)

	// Dependents are deleted before owners
	require.Equal(t, store.TablePhysicalInterface, cs.Changes[0].Table)
	require.Equal(t, store.TableVirtualInterface, cs.Changes[1].Table)

	mod := cs.For(store.TablePhysicalInterface)
	require.Len(t, mod, 2)
	assert.Equal(t, store.ChangeModify, mod[1].Type)
	assert.Equal(t, "2", mod[1].OldValue["fanout_physical_interface_id"])
	assert.Equal(t, "", mod[1].NewValue["fanout_physical_interface_id"])

	assert.Nil(t, b.Row(store.TablePhysicalInterface, 2))
	assert.Equal(t, 1, b.Count(store.TablePhysicalInterface))

	_, err = s.Find(ctx, store.TablePhysicalInterface, 2)
	assert.True(t, util.IsNotFound(err))
}

func TestSession_CommitFailureKeepsBackend(t *testing.T) {
	b := memory.New()
	buildFabric(t, openSession(t, b))
	s := openSession(t, b)

	s.Stage(&model.Vlan{Name: "Second LAN", Number: 20})
	b.FailApply = errors.New("connection reset")

	_, err := s.Commit(context.Background(), "add-vlan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, b.Count(store.TableVlan))

	// The staged state survives and can be retried
	cs, err := s.Commit(context.Background(), "add-vlan")
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Count(store.ChangeAdd))
	assert.Equal(t, 2, b.Count(store.TableVlan))
}

func TestSession_Rollback(t *testing.T) {
	b := memory.New()
	buildFabric(t, openSession(t, b))
	s := openSession(t, b)
	ctx := context.Background()

	vlan := &model.Vlan{Name: "Scratch", Number: 99}
	s.Stage(vlan)
	port, err := store.Get[*model.SwitchPort](ctx, s, store.TableSwitchPort, 3)
	require.NoError(t, err)
	s.StageRemoval(port)

	require.NoError(t, s.Rollback())

	_, err = s.Find(ctx, store.TableVlan, vlan.ID)
	assert.True(t, util.IsNotFound(err))
	_, err = s.Find(ctx, store.TableSwitchPort, 3)
	assert.NoError(t, err)

	cs, err := s.Diff("after-rollback")
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())
}

func TestSession_StageRemovalOfUncommitted(t *testing.T) {
	s := openSession(t, memory.New())

	vlan := &model.Vlan{Name: "Scratch"}
	s.Stage(vlan)
	s.StageRemoval(vlan)

	cs, err := s.Diff("scratch")
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())
}

func TestSession_UnstagedReference(t *testing.T) {
	s := openSession(t, memory.New())

	s.Stage(&model.Switch{Name: "sw01", Vendor: &model.Vendor{Name: "never staged"}})

	_, err := s.Commit(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unstaged")
}

// ============================================================================
// Allocator queries
// ============================================================================

func TestNextMonitorIndex(t *testing.T) {
	b := memory.New()
	f := buildFabric(t, openSession(t, b))
	s := openSession(t, b)
	ctx := context.Background()

	reseller, err := store.Get[*model.Customer](ctx, s, store.TableCustomer, f.reseller.ID)
	require.NoError(t, err)
	cust, err := store.Get[*model.Customer](ctx, s, store.TableCustomer, f.cust.ID)
	require.NoError(t, err)

	// Highest index over the reseller and its resold member is 4
	next, err := s.NextMonitorIndex(ctx, reseller)
	require.NoError(t, err)
	assert.Equal(t, 5, next)

	// The member alone only owns index 1
	next, err = s.NextMonitorIndex(ctx, cust)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	other := &model.Customer{Name: "Other"}
	s.Stage(other)
	next, err = s.NextMonitorIndex(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	_, err = s.NextMonitorIndex(ctx, nil)
	assert.Error(t, err)
}

func TestAssignChannelGroup(t *testing.T) {
	b := memory.New()
	buildFabric(t, openSession(t, b))
	s := openSession(t, b)
	ctx := context.Background()

	peering, err := store.Get[*model.PhysicalInterface](ctx, s, store.TablePhysicalInterface, 1)
	require.NoError(t, err)
	fanout := peering.FanoutInterface()

	cg := 1
	fanout.VirtualInterface.SetChannelGroup(&cg)

	got, err := s.AssignChannelGroup(ctx, peering.VirtualInterface)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	// A virtual interface never conflicts with its own channel group
	got, err = s.AssignChannelGroup(ctx, fanout.VirtualInterface)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = s.AssignChannelGroup(ctx, model.NewVirtualInterface(nil))
	assert.Error(t, err)
}

// ============================================================================
// ChangeSet rendering
// ============================================================================

func TestChangeSet_String(t *testing.T) {
	cs := store.NewChangeSet("test")
	assert.Equal(t, "No changes", cs.String())

	cs.Add(store.TableVlan, 3, store.ChangeAdd, nil, store.Row{"name": "LAN", "number": "10"})
	cs.Add(store.TableVlan, 1, store.ChangeModify, store.Row{"name": "A", "number": "5"}, store.Row{"name": "B", "number": "5"})
	cs.Add(store.TableVlan, 2, store.ChangeDelete, store.Row{"name": "C"}, nil)

	out := cs.String()
	assert.Contains(t, out, `[ADD] VLAN|3 → {name="LAN" number="10"}`)
	assert.Contains(t, out, `[MOD] VLAN|1 → {name="B"}`)
	assert.Contains(t, out, "[DEL] VLAN|2\n")
	assert.True(t, strings.HasPrefix(cs.Preview(), "Operation: test\n"))
}
