// Package store is the persistence layer of the exchange topology.
//
// A Session loads every table of a Backend into an identity map, lets the
// caller look entities up, stage new ones and stage removals, and on
// Commit diffs the entity graph against the loaded rows into a ChangeSet
// that the Backend applies in one transaction. Tables are small at exchange
// scale, so the whole graph is loaded per session.
package store

import (
	"context"
	"fmt"

	"github.com/newtron-network/ixtopo/pkg/model"
)

// Table names a persisted entity type
type Table string

const (
	TableVendor            Table = "VENDOR"
	TableSwitch            Table = "SWITCH"
	TableCustomer          Table = "CUSTOMER"
	TableSwitchPort        Table = "SWITCH_PORT"
	TableVirtualInterface  Table = "VIRTUAL_INTERFACE"
	TablePhysicalInterface Table = "PHYSICAL_INTERFACE"
	TableVlan              Table = "VLAN"
	TableIPv4Address       Table = "IPV4_ADDRESS"
	TableIPv6Address       Table = "IPV6_ADDRESS"
	TableVlanInterface     Table = "VLAN_INTERFACE"
	TableMACAddress        Table = "MAC_ADDRESS"
)

// Tables lists every table, owners before dependents. Additions are applied
// in this order and deletions in reverse.
var Tables = []Table{
	TableVendor,
	TableSwitch,
	TableCustomer,
	TableSwitchPort,
	TableVirtualInterface,
	TablePhysicalInterface,
	TableVlan,
	TableIPv4Address,
	TableIPv6Address,
	TableVlanInterface,
	TableMACAddress,
}

// AddressTable returns the address table for family
func AddressTable(family model.Family) Table {
	if family == model.IPv6 {
		return TableIPv6Address
	}
	return TableIPv4Address
}

// Row is the encoded form of one entity: field name to string value.
type Row map[string]string

// Snapshot holds every row of every table keyed by ID.
type Snapshot map[Table]map[int64]Row

// NewSnapshot creates an empty snapshot with all tables present
func NewSnapshot() Snapshot {
	s := make(Snapshot, len(Tables))
	for _, t := range Tables {
		s[t] = make(map[int64]Row)
	}
	return s
}

// Clone returns a deep copy of the snapshot
func (s Snapshot) Clone() Snapshot {
	out := NewSnapshot()
	for t, rows := range s {
		if out[t] == nil {
			out[t] = make(map[int64]Row, len(rows))
		}
		for id, row := range rows {
			out[t][id] = row.Clone()
		}
	}
	return out
}

// Clone returns a copy of the row
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Equal returns true if both rows carry the same fields and values
func (r Row) Equal(o Row) bool {
	if len(r) != len(o) {
		return false
	}
	for k, v := range r {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Filter selects rows whose encoded fields equal every given value,
// e.g. Filter{"vlan_id": "10", "address": "192.0.2.1"}.
type Filter map[string]string

// Matches returns true if row satisfies every field of f
func (f Filter) Matches(row Row) bool {
	for k, v := range f {
		if row[k] != v {
			return false
		}
	}
	return true
}

// Backend loads and stores rows.
type Backend interface {
	// Name identifies the backend in logs
	Name() string
	// Load reads every table
	Load(ctx context.Context) (Snapshot, error)
	// Apply writes the changes atomically: all or nothing
	Apply(ctx context.Context, changes []Change) error
	// Close releases the backend's resources
	Close() error
}

// UnitOfWork is what the topology core needs from persistence. Lookups
// return errors wrapping util.ErrNotFound when nothing matches. Staging never
// writes; the caller commits.
type UnitOfWork interface {
	Find(ctx context.Context, table Table, id int64) (model.Entity, error)
	FindOneBy(ctx context.Context, table Table, filter Filter) (model.Entity, error)
	Stage(e model.Entity)
	StageRemoval(e model.Entity)

	// NextMonitorIndex returns the next free monitor index for interfaces
	// owned by cust
	NextMonitorIndex(ctx context.Context, cust *model.Customer) (int, error)
	// AssignChannelGroup returns the lowest channel group not used on the
	// switch of vi's first member
	AssignChannelGroup(ctx context.Context, vi *model.VirtualInterface) (int, error)
}

// Get looks up an entity and asserts its concrete type.
func Get[T model.Entity](ctx context.Context, uow UnitOfWork, table Table, id int64) (T, error) {
	var zero T
	e, err := uow.Find(ctx, table, id)
	if err != nil {
		return zero, err
	}
	typed, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%s %d: unexpected entity type %T", table, id, e)
	}
	return typed, nil
}

// TableOf returns the table an entity is stored in
func TableOf(e model.Entity) (Table, error) {
	switch v := e.(type) {
	case *model.Vendor:
		return TableVendor, nil
	case *model.Switch:
		return TableSwitch, nil
	case *model.Customer:
		return TableCustomer, nil
	case *model.SwitchPort:
		return TableSwitchPort, nil
	case *model.VirtualInterface:
		return TableVirtualInterface, nil
	case *model.PhysicalInterface:
		return TablePhysicalInterface, nil
	case *model.Vlan:
		return TableVlan, nil
	case *model.IPAddress:
		return AddressTable(v.Family), nil
	case *model.VlanInterface:
		return TableVlanInterface, nil
	case *model.MACAddress:
		return TableMACAddress, nil
	}
	return "", fmt.Errorf("unsupported entity type %T", e)
}
