package store

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// Row field names shared by several tables.
const (
	fieldName             = "name"
	fieldVlanID           = "vlan_id"
	fieldVirtualInterface = "virtual_interface_id"
	fieldAddress          = "address"
	fieldNotes            = "notes"
)

// encoder turns entities into rows. References to entities that were
// never staged are reported through err.
type encoder struct {
	err error
}

func ref[E any, P interface {
	*E
	model.Entity
}](enc *encoder, p P) string {
	if p == nil {
		return ""
	}
	if p.GetID() == 0 {
		if enc.err == nil {
			enc.err = fmt.Errorf("reference to unstaged %T", p)
		}
		return ""
	}
	return strconv.FormatInt(p.GetID(), 10)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// Encode returns the table and row for e.
func Encode(e model.Entity) (Table, Row, error) {
	enc := &encoder{}
	table, row, err := enc.encode(e)
	if err != nil {
		return "", nil, err
	}
	if enc.err != nil {
		return "", nil, fmt.Errorf("encoding %s %d: %w", table, e.GetID(), enc.err)
	}
	return table, row, nil
}

func (enc *encoder) encode(e model.Entity) (Table, Row, error) {
	switch v := e.(type) {
	case *model.Vendor:
		return TableVendor, Row{
			fieldName:     v.Name,
			"shortname":   v.ShortName,
			"bundle_name": v.BundleName,
		}, nil

	case *model.Switch:
		return TableSwitch, Row{
			fieldName:   v.Name,
			"vendor_id": ref(enc, v.Vendor),
		}, nil

	case *model.Customer:
		return TableCustomer, Row{
			fieldName:     v.Name,
			"shortname":   v.ShortName,
			"is_reseller": util.FormatFlag(v.IsReseller),
			"reseller_id": ref(enc, v.Reseller),
		}, nil

	case *model.SwitchPort:
		return TableSwitchPort, Row{
			fieldName:   v.Name,
			"type":      string(v.Type),
			"switch_id": ref(enc, v.Switch),
		}, nil

	case *model.PhysicalInterface:
		return TablePhysicalInterface, Row{
			"switchport_id":                ref(enc, v.SwitchPort),
			fieldVirtualInterface:          ref(enc, v.VirtualInterface),
			"fanout_physical_interface_id": ref(enc, v.FanoutInterface()),
			"monitor_index":                itoa(v.MonitorIndex),
			"speed":                        itoa(v.Speed),
			"duplex":                       v.Duplex,
			"status":                       v.Status,
			fieldNotes:                     v.Notes,
		}, nil

	case *model.VirtualInterface:
		cg := ""
		if v.ChannelGroup != nil {
			cg = itoa(*v.ChannelGroup)
		}
		return TableVirtualInterface, Row{
			"customer_id":   ref(enc, v.Customer),
			fieldName:       v.Name,
			"description":   v.Description,
			"channel_group": cg,
			"lag_framing":   util.FormatFlag(v.LAGFraming),
			"fast_lacp":     util.FormatFlag(v.FastLACP),
			"trunk":         util.FormatFlag(v.Trunk),
			"mtu":           itoa(v.MTU),
		}, nil

	case *model.Vlan:
		return TableVlan, Row{
			fieldName:  v.Name,
			"number":   itoa(v.Number),
			"private":  util.FormatFlag(v.Private),
			fieldNotes: v.Notes,
		}, nil

	case *model.IPAddress:
		return AddressTable(v.Family), Row{
			fieldVlanID:  ref(enc, v.Vlan),
			fieldAddress: v.Address,
		}, nil

	case *model.VlanInterface:
		row := Row{
			fieldVirtualInterface: ref(enc, v.VirtualInterface),
			fieldVlanID:           ref(enc, v.Vlan),
			"rs_client":           util.FormatFlag(v.RSClient),
			"irrdb_filter":        util.FormatFlag(v.IRRDBFilter),
			"rs_more_specifics":   util.FormatFlag(v.RSMoreSpecifics),
			"mcast_enabled":       util.FormatFlag(v.McastEnabled),
			"max_bgp_prefix":      itoa(v.MaxBGPPrefix),
			"busy_host":           util.FormatFlag(v.BusyHost),
			"as112_client":        util.FormatFlag(v.AS112Client),
			fieldNotes:            v.Notes,
		}
		enc.encodeAddressConfig(row, "ipv4", &v.IPv4)
		enc.encodeAddressConfig(row, "ipv6", &v.IPv6)
		return TableVlanInterface, row, nil

	case *model.MACAddress:
		return TableMACAddress, Row{
			fieldVirtualInterface: ref(enc, v.VirtualInterface),
			"mac":                 v.MAC,
		}, nil
	}
	return "", nil, fmt.Errorf("unsupported entity type %T", e)
}

func (enc *encoder) encodeAddressConfig(row Row, prefix string, c *model.AddressConfig) {
	row[prefix+"_address_id"] = ref(enc, c.Address)
	row[prefix+"_enabled"] = util.FormatFlag(c.Enabled)
	row[prefix+"_hostname"] = c.Hostname
	row[prefix+"_bgp_md5_secret"] = c.BGPMD5Secret
	row[prefix+"_can_ping"] = util.FormatFlag(c.CanPing)
	row[prefix+"_monitor_rcbgp"] = util.FormatFlag(c.MonitorRCBGP)
}

// ============================================================================
// Decoding
// ============================================================================

// graph is the decoded entity graph of a snapshot, keyed by table and ID.
type graph map[Table]map[int64]model.Entity

func newGraph() graph {
	g := make(graph, len(Tables))
	for _, t := range Tables {
		g[t] = make(map[int64]model.Entity)
	}
	return g
}

// decoder collects the first parse error so decode functions stay linear.
type decoder struct {
	table Table
	id    int64
	err   error
}

func (d *decoder) number(row Row, field string) int {
	s := row[field]
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("%s %d: field %s: %w", d.table, d.id, field, err)
	}
	return n
}

func (d *decoder) optInt(row Row, field string) *int {
	if row[field] == "" {
		return nil
	}
	n := d.number(row, field)
	return &n
}

func (d *decoder) refID(row Row, field string) int64 {
	s := row[field]
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("%s %d: field %s: %w", d.table, d.id, field, err)
	}
	return n
}

func flag(row Row, field string) bool {
	return util.ParseFlag(row[field])
}

// decode builds the entity graph of snap in two passes: first every entity
// with its own fields, then every relation through the model helpers so
// both sides are set. Dangling references are logged and skipped.
func decode(snap Snapshot) (graph, error) {
	g := newGraph()

	for _, table := range Tables {
		rows := snap[table]
		for _, id := range sortedIDs(rows) {
			d := &decoder{table: table, id: id}
			e := d.scalars(table, rows[id])
			if d.err != nil {
				return nil, d.err
			}
			e.AssignID(id)
			g[table][id] = e
		}
	}

	for _, table := range Tables {
		rows := snap[table]
		for _, id := range sortedIDs(rows) {
			d := &decoder{table: table, id: id}
			g.link(d, g[table][id], rows[id])
			if d.err != nil {
				return nil, d.err
			}
		}
	}
	return g, nil
}

func (d *decoder) scalars(table Table, row Row) model.Entity {
	switch table {
	case TableVendor:
		return &model.Vendor{Name: row[fieldName], ShortName: row["shortname"], BundleName: row["bundle_name"]}
	case TableSwitch:
		return &model.Switch{Name: row[fieldName]}
	case TableCustomer:
		return &model.Customer{Name: row[fieldName], ShortName: row["shortname"], IsReseller: flag(row, "is_reseller")}
	case TableSwitchPort:
		return &model.SwitchPort{Name: row[fieldName], Type: model.SwitchPortType(row["type"])}
	case TablePhysicalInterface:
		return &model.PhysicalInterface{
			MonitorIndex: d.number(row, "monitor_index"),
			Speed:        d.number(row, "speed"),
			Duplex:       row["duplex"],
			Status:       row["status"],
			Notes:        row[fieldNotes],
		}
	case TableVirtualInterface:
		return &model.VirtualInterface{
			Name:         row[fieldName],
			Description:  row["description"],
			ChannelGroup: d.optInt(row, "channel_group"),
			LAGFraming:   flag(row, "lag_framing"),
			FastLACP:     flag(row, "fast_lacp"),
			Trunk:        flag(row, "trunk"),
			MTU:          d.number(row, "mtu"),
		}
	case TableVlan:
		return &model.Vlan{
			Name:    row[fieldName],
			Number:  d.number(row, "number"),
			Private: flag(row, "private"),
			Notes:   row[fieldNotes],
		}
	case TableIPv4Address:
		return &model.IPAddress{Family: model.IPv4, Address: row[fieldAddress]}
	case TableIPv6Address:
		return &model.IPAddress{Family: model.IPv6, Address: row[fieldAddress]}
	case TableVlanInterface:
		vli := &model.VlanInterface{
			RSClient:        flag(row, "rs_client"),
			IRRDBFilter:     flag(row, "irrdb_filter"),
			RSMoreSpecifics: flag(row, "rs_more_specifics"),
			McastEnabled:    flag(row, "mcast_enabled"),
			MaxBGPPrefix:    d.number(row, "max_bgp_prefix"),
			BusyHost:        flag(row, "busy_host"),
			AS112Client:     flag(row, "as112_client"),
			Notes:           row[fieldNotes],
		}
		decodeAddressConfig(row, "ipv4", &vli.IPv4)
		decodeAddressConfig(row, "ipv6", &vli.IPv6)
		return vli
	case TableMACAddress:
		return &model.MACAddress{MAC: row["mac"]}
	}
	d.err = fmt.Errorf("unknown table %s", table)
	return nil
}

func decodeAddressConfig(row Row, prefix string, c *model.AddressConfig) {
	c.Enabled = flag(row, prefix+"_enabled")
	c.Hostname = row[prefix+"_hostname"]
	c.BGPMD5Secret = row[prefix+"_bgp_md5_secret"]
	c.CanPing = flag(row, prefix+"_can_ping")
	c.MonitorRCBGP = flag(row, prefix+"_monitor_rcbgp")
}

// lookup resolves a reference field. Returns nil when the field is empty or
// the target does not exist.
func (g graph) lookup(d *decoder, row Row, field string, target Table) model.Entity {
	id := d.refID(row, field)
	if id == 0 {
		return nil
	}
	e, ok := g[target][id]
	if !ok {
		util.WithFields(map[string]interface{}{
			"table": d.table,
			"id":    d.id,
			"field": field,
		}).Warnf("Dangling reference to %s %d, ignoring", target, id)
		return nil
	}
	return e
}

func (g graph) link(d *decoder, e model.Entity, row Row) {
	switch v := e.(type) {
	case *model.Switch:
		if vendor, ok := g.lookup(d, row, "vendor_id", TableVendor).(*model.Vendor); ok {
			v.Vendor = vendor
		}
	case *model.Customer:
		if reseller, ok := g.lookup(d, row, "reseller_id", TableCustomer).(*model.Customer); ok {
			v.Reseller = reseller
		}
	case *model.SwitchPort:
		if sw, ok := g.lookup(d, row, "switch_id", TableSwitch).(*model.Switch); ok {
			v.Switch = sw
		}
	case *model.VirtualInterface:
		if cust, ok := g.lookup(d, row, "customer_id", TableCustomer).(*model.Customer); ok {
			v.Customer = cust
		}
	case *model.PhysicalInterface:
		if sp, ok := g.lookup(d, row, "switchport_id", TableSwitchPort).(*model.SwitchPort); ok {
			sp.SetPhysicalInterface(v)
		}
		if vi, ok := g.lookup(d, row, fieldVirtualInterface, TableVirtualInterface).(*model.VirtualInterface); ok {
			vi.AddPhysicalInterface(v)
		}
		if fanout, ok := g.lookup(d, row, "fanout_physical_interface_id", TablePhysicalInterface).(*model.PhysicalInterface); ok {
			model.LinkFanout(v, fanout)
		}
	case *model.IPAddress:
		if vlan, ok := g.lookup(d, row, fieldVlanID, TableVlan).(*model.Vlan); ok {
			v.Vlan = vlan
		}
	case *model.VlanInterface:
		if vi, ok := g.lookup(d, row, fieldVirtualInterface, TableVirtualInterface).(*model.VirtualInterface); ok {
			vi.AddVlanInterface(v)
		}
		if vlan, ok := g.lookup(d, row, fieldVlanID, TableVlan).(*model.Vlan); ok {
			v.Vlan = vlan
		}
		if addr, ok := g.lookup(d, row, "ipv4_address_id", TableIPv4Address).(*model.IPAddress); ok {
			v.SetAddress(addr)
		}
		if addr, ok := g.lookup(d, row, "ipv6_address_id", TableIPv6Address).(*model.IPAddress); ok {
			v.SetAddress(addr)
		}
	case *model.MACAddress:
		if vi, ok := g.lookup(d, row, fieldVirtualInterface, TableVirtualInterface).(*model.VirtualInterface); ok {
			vi.AddMACAddress(v)
		}
	}
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
