package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/input"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/topology"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// Summary counts what an import touched.
type Summary struct {
	Created           int
	Updated           int
	VirtualInterfaces int
	Skipped           int
	FanoutLinks       int
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d created, %d updated, %d virtual interfaces, %d skipped, %d fanout links",
		s.Created, s.Updated, s.VirtualInterfaces, s.Skipped, s.FanoutLinks)
}

// Importer stages an inventory into a unit of work. Vendors, switches,
// ports, customers and VLANs are upserted by natural key. A virtual
// interface is only created when its first member port has no physical
// interface yet, so importing the same file twice is harmless.
type Importer struct {
	uow store.UnitOfWork
	mgr *topology.Manager

	vendors   map[string]*model.Vendor
	switches  map[string]*model.Switch
	customers map[string]*model.Customer
	vlans     map[int]*model.Vlan
	summary   Summary
}

// NewImporter creates an importer. Alerts raised by the topology operations
// go to alerts; nil discards them.
func NewImporter(uow store.UnitOfWork, alerts alert.Sink) *Importer {
	return &Importer{
		uow:       uow,
		mgr:       topology.NewManager(uow, alerts),
		vendors:   make(map[string]*model.Vendor),
		switches:  make(map[string]*model.Switch),
		customers: make(map[string]*model.Customer),
		vlans:     make(map[int]*model.Vlan),
	}
}

// Import stages inv. Nothing is written until the caller commits.
func (im *Importer) Import(ctx context.Context, inv *Inventory) (*Summary, error) {
	log := util.WithOperation("import")

	for _, v := range inv.Vendors {
		if err := im.vendor(ctx, v); err != nil {
			return nil, err
		}
	}
	for _, sw := range inv.Switches {
		if err := im.switchAndPorts(ctx, sw); err != nil {
			return nil, err
		}
	}
	// Resellers first so resold customers can point at them.
	for _, pass := range []bool{true, false} {
		for _, c := range inv.Customers {
			if c.IsReseller != pass {
				continue
			}
			if err := im.customer(ctx, c); err != nil {
				return nil, err
			}
		}
	}
	for _, vl := range inv.Vlans {
		if err := im.vlan(ctx, vl); err != nil {
			return nil, err
		}
	}
	for i, vi := range inv.VirtualInterfaces {
		if err := im.virtualInterface(ctx, vi); err != nil {
			return nil, fmt.Errorf("virtual_interfaces[%d]: %w", i, err)
		}
	}

	log.Infof("Staged inventory: %s", &im.summary)
	return &im.summary, nil
}

// findOne looks up an entity by filter. Not found is (nil, nil).
func findOne[T model.Entity](ctx context.Context, uow store.UnitOfWork, table store.Table, filter store.Filter) (T, error) {
	var zero T
	e, err := uow.FindOneBy(ctx, table, filter)
	if util.IsNotFound(err) {
		return zero, nil
	}
	if err != nil {
		return zero, err
	}
	typed, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%s lookup returned %T", table, e)
	}
	return typed, nil
}

func (im *Importer) stage(e model.Entity) {
	if e.GetID() == 0 {
		im.summary.Created++
	} else {
		im.summary.Updated++
	}
	im.uow.Stage(e)
}

func (im *Importer) vendor(ctx context.Context, in Vendor) error {
	v, err := findOne[*model.Vendor](ctx, im.uow, store.TableVendor, store.Filter{"name": in.Name})
	if err != nil {
		return err
	}
	if v == nil {
		v = &model.Vendor{}
	}
	v.Name = in.Name
	v.ShortName = in.ShortName
	v.BundleName = in.BundleName
	im.stage(v)
	im.vendors[in.Name] = v
	return nil
}

func (im *Importer) switchAndPorts(ctx context.Context, in Switch) error {
	sw, err := findOne[*model.Switch](ctx, im.uow, store.TableSwitch, store.Filter{"name": in.Name})
	if err != nil {
		return err
	}
	if sw == nil {
		sw = &model.Switch{Name: in.Name}
	}
	vendor, ok := im.vendors[in.Vendor]
	if !ok {
		return util.NewNotFoundError("vendor", in.Vendor)
	}
	sw.Vendor = vendor
	im.stage(sw)
	im.switches[in.Name] = sw

	ports, err := in.ExpandPorts()
	if err != nil {
		return err
	}
	switchID := strconv.FormatInt(sw.ID, 10)
	for _, p := range ports {
		sp, err := findOne[*model.SwitchPort](ctx, im.uow, store.TableSwitchPort,
			store.Filter{"switch_id": switchID, "name": p.Name})
		if err != nil {
			return err
		}
		if sp == nil {
			sp = &model.SwitchPort{Name: p.Name, Switch: sw}
		}
		sp.Type = p.Type
		im.stage(sp)
	}
	return nil
}

func (im *Importer) customer(ctx context.Context, in Customer) error {
	c, err := findOne[*model.Customer](ctx, im.uow, store.TableCustomer, store.Filter{"shortname": in.ShortName})
	if err != nil {
		return err
	}
	if c == nil {
		c = &model.Customer{}
	}
	c.Name = in.Name
	c.ShortName = in.ShortName
	c.IsReseller = in.IsReseller
	c.Reseller = nil
	if in.ResoldBy != "" {
		r, ok := im.customers[in.ResoldBy]
		if !ok {
			return util.NewNotFoundError("customer", in.ResoldBy)
		}
		c.Reseller = r
	}
	im.stage(c)
	im.customers[in.ShortName] = c
	return nil
}

func (im *Importer) vlan(ctx context.Context, in Vlan) error {
	vl, err := findOne[*model.Vlan](ctx, im.uow, store.TableVlan, store.Filter{"number": strconv.Itoa(in.Number)})
	if err != nil {
		return err
	}
	if vl == nil {
		vl = &model.Vlan{Number: in.Number}
	}
	vl.Name = in.Name
	vl.Private = in.Private
	vl.Notes = in.Notes
	im.stage(vl)
	im.vlans[in.Number] = vl
	return nil
}

// port resolves a switch port by switch and port name
func (im *Importer) port(ctx context.Context, switchName, portName string) (*model.SwitchPort, error) {
	sw, ok := im.switches[switchName]
	if !ok {
		return nil, util.NewNotFoundError("switch", switchName)
	}
	sp, err := findOne[*model.SwitchPort](ctx, im.uow, store.TableSwitchPort,
		store.Filter{"switch_id": strconv.FormatInt(sw.ID, 10), "name": portName})
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, util.NewNotFoundError("switch port", switchName+":"+portName)
	}
	return sp, nil
}

func (im *Importer) virtualInterface(ctx context.Context, in VirtualInterface) error {
	cust, ok := im.customers[in.Customer]
	if !ok {
		return util.NewNotFoundError("customer", in.Customer)
	}
	if len(in.Members) == 0 {
		return util.NewValidationError("at least one member is required")
	}
	log := util.WithOperation("import").WithField("customer", cust.ShortName)

	first, err := im.port(ctx, in.Members[0].Switch, in.Members[0].Port)
	if err != nil {
		return err
	}
	if first.PhysicalInterface != nil {
		log.Infof("Port %s already has interface %d; skipping", first.Name, first.PhysicalInterface.ID)
		im.summary.Skipped++
		return nil
	}

	vi := model.NewVirtualInterface(cust)
	vi.Name = in.Name
	vi.Description = in.Description
	vi.SetChannelGroup(in.ChannelGroup)
	vi.LAGFraming = in.LAGFraming
	vi.FastLACP = in.FastLACP
	vi.Trunk = in.Trunk
	vi.MTU = in.MTU
	im.stage(vi)
	im.summary.VirtualInterfaces++

	for _, m := range in.Members {
		sp, err := im.port(ctx, m.Switch, m.Port)
		if err != nil {
			return err
		}
		if sp.PhysicalInterface != nil {
			return util.NewInUseError(fmt.Sprintf("switch port %s:%s", m.Switch, m.Port),
				fmt.Sprintf("physical interface %d", sp.PhysicalInterface.ID))
		}
		if sp.Type == model.SwitchPortUnset {
			sp.Type = model.SwitchPortPeering
		}
		pi := &model.PhysicalInterface{
			MonitorIndex: m.MonitorIndex,
			Speed:        m.Speed,
			Duplex:       m.Duplex,
			Status:       m.Status,
		}
		sp.SetPhysicalInterface(pi)
		vi.AddPhysicalInterface(pi)
		im.stage(pi)

		if m.Fanout == nil {
			continue
		}
		if err := im.fanout(ctx, pi, vi, m.Fanout); err != nil {
			return err
		}
	}

	if err := im.mgr.SetBundleDetails(ctx, vi); err != nil {
		return err
	}

	for _, vs := range in.VlanIfaces {
		if err := im.vlanInterface(ctx, vi, vs); err != nil {
			return err
		}
	}

	for _, s := range in.MACs {
		mac := &model.MACAddress{MAC: s}
		vi.AddMACAddress(mac)
		im.stage(mac)
	}
	return nil
}

func (im *Importer) fanout(ctx context.Context, pi *model.PhysicalInterface, vi *model.VirtualInterface, in *Fanout) error {
	fnsp, err := im.port(ctx, in.Switch, in.Port)
	if err != nil {
		return err
	}
	req := input.Map{}.
		SetBool(input.Fanout, true).
		Set(input.FanoutSwitchPort, strconv.FormatInt(fnsp.ID, 10))
	if in.MonitorIndex != nil {
		req.Set(input.FanoutMonitorIndex, strconv.Itoa(*in.MonitorIndex))
	}
	linked, err := im.mgr.ProcessFanoutPhysicalInterface(ctx, req, pi, vi)
	if err != nil {
		return err
	}
	if linked {
		im.summary.FanoutLinks++
	}
	return nil
}

func (im *Importer) vlanInterface(ctx context.Context, vi *model.VirtualInterface, in VlanInterface) error {
	vlan, ok := im.vlans[in.Vlan]
	if !ok {
		return util.NewNotFoundError("vlan", in.Vlan)
	}
	vli := &model.VlanInterface{
		Vlan:            vlan,
		RSClient:        in.RSClient,
		IRRDBFilter:     in.IRRDBFilter,
		RSMoreSpecifics: in.RSMoreSpecifics,
		McastEnabled:    in.McastEnabled,
		MaxBGPPrefix:    in.MaxBGPPrefix,
		BusyHost:        in.BusyHost,
		AS112Client:     in.AS112Client,
		Notes:           in.Notes,
	}
	vi.AddVlanInterface(vli)
	im.stage(vli)

	for _, fam := range []struct {
		section *AddressSection
		family  topology.AddressFamily
	}{
		{in.IPv4, topology.IPv4},
		{in.IPv6, topology.IPv6},
	} {
		if fam.section == nil {
			continue
		}
		if _, err := im.mgr.SetIP(ctx, AddressInput(fam.family, fam.section), vlan, vli, fam.family); err != nil {
			return err
		}
	}
	return nil
}

// AddressInput renders an address section as the request fields SetIP reads.
func AddressInput(f topology.AddressFamily, s *AddressSection) input.Map {
	return input.Map{}.
		Set(f.Field(input.AddressSuffix), s.Address).
		Set(f.Field(input.HostnameSuffix), s.Hostname).
		Set(f.Field(input.BGPMD5SecretSuffix), s.BGPMD5Secret).
		SetBool(f.Field(input.CanPingSuffix), s.CanPing).
		SetBool(f.Field(input.MonitorRCBGPSuffix), s.MonitorRCBGP)
}
