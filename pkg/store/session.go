package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// maxChannelGroup bounds the channel group search per switch
const maxChannelGroup = 1000

// ErrNoChannelGroup is returned when every channel group on a switch is taken.
var ErrNoChannelGroup = errors.New("no available channel group number")

// Session is a unit of work over one Backend. It is not safe for concurrent
// use; open one session per request.
type Session struct {
	backend Backend
	loaded  Snapshot
	graph   graph
	removed map[Table]map[int64]bool
	nextID  map[Table]int64
}

// Open loads every table of backend into a new session.
func Open(ctx context.Context, backend Backend) (*Session, error) {
	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading from %s: %w", backend.Name(), err)
	}
	s := &Session{backend: backend}
	if err := s.reset(snap); err != nil {
		return nil, err
	}
	util.WithBackend(backend.Name()).Debugf("Session opened")
	return s, nil
}

func (s *Session) reset(snap Snapshot) error {
	if snap == nil {
		snap = NewSnapshot()
	}
	for _, t := range Tables {
		if snap[t] == nil {
			snap[t] = make(map[int64]Row)
		}
	}
	g, err := decode(snap)
	if err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	s.loaded = snap
	s.graph = g
	s.removed = make(map[Table]map[int64]bool)
	s.nextID = make(map[Table]int64)
	for _, t := range Tables {
		var highest int64
		for id := range snap[t] {
			if id > highest {
				highest = id
			}
		}
		s.nextID[t] = highest + 1
	}
	return nil
}

// Backend returns the backend the session writes to
func (s *Session) Backend() Backend {
	return s.backend
}

func (s *Session) isRemoved(table Table, id int64) bool {
	return s.removed[table][id]
}

// Find returns the entity with the given ID. Entities staged for removal
// are not found.
func (s *Session) Find(ctx context.Context, table Table, id int64) (model.Entity, error) {
	if e, ok := s.graph[table][id]; ok && !s.isRemoved(table, id) {
		return e, nil
	}
	return nil, util.NewNotFoundError(kindOf(table), id)
}

// FindOneBy returns the lowest-ID entity of table whose encoded fields match
// filter. Staged but uncommitted entities are matched too.
func (s *Session) FindOneBy(ctx context.Context, table Table, filter Filter) (model.Entity, error) {
	for _, e := range s.All(table) {
		_, row, err := Encode(e)
		if err != nil {
			return nil, err
		}
		if filter.Matches(row) {
			return e, nil
		}
	}
	return nil, util.NewNotFoundError(kindOf(table), fmt.Sprintf("%v", map[string]string(filter)))
}

// All returns the live entities of table in ID order
func (s *Session) All(table Table) []model.Entity {
	entities := s.graph[table]
	out := make([]model.Entity, 0, len(entities))
	for _, id := range sortedIDs(entities) {
		if s.isRemoved(table, id) {
			continue
		}
		out = append(out, entities[id])
	}
	return out
}

// Stage registers e for persistence, assigning the next free ID of its
// table when e is new. Staging an entity that was staged for removal
// revives it.
func (s *Session) Stage(e model.Entity) {
	table, err := TableOf(e)
	if err != nil {
		panic(err)
	}
	id := e.GetID()
	if id == 0 {
		id = s.nextID[table]
		s.nextID[table] = id + 1
		e.AssignID(id)
		util.WithField("table", table).Debugf("Staged new entity %d", id)
	} else if id >= s.nextID[table] {
		s.nextID[table] = id + 1
	}
	s.graph[table][id] = e
	delete(s.removed[table], id)
}

// StageRemoval marks e for deletion on commit. A new entity that was never
// committed is simply forgotten.
func (s *Session) StageRemoval(e model.Entity) {
	table, err := TableOf(e)
	if err != nil {
		panic(err)
	}
	id := e.GetID()
	if id == 0 {
		return
	}
	if _, persisted := s.loaded[table][id]; !persisted {
		delete(s.graph[table], id)
		return
	}
	if s.removed[table] == nil {
		s.removed[table] = make(map[int64]bool)
	}
	s.removed[table][id] = true
	util.WithField("table", table).Debugf("Staged removal of %d", id)
}

// IsStagedForRemoval returns true if e will be deleted on commit
func (s *Session) IsStagedForRemoval(e model.Entity) bool {
	table, err := TableOf(e)
	if err != nil {
		return false
	}
	return s.isRemoved(table, e.GetID())
}

// Diff computes the ChangeSet the session would commit, without applying it.
func (s *Session) Diff(operation string) (*ChangeSet, error) {
	cs, _, err := s.diff(operation)
	return cs, err
}

func (s *Session) diff(operation string) (*ChangeSet, Snapshot, error) {
	current := NewSnapshot()
	for _, table := range Tables {
		for _, e := range s.All(table) {
			t, row, err := Encode(e)
			if err != nil {
				return nil, nil, err
			}
			current[t][e.GetID()] = row
		}
	}

	cs := NewChangeSet(operation)

	// Deletions first, dependents before owners
	for i := len(Tables) - 1; i >= 0; i-- {
		table := Tables[i]
		for _, id := range sortedIDs(s.loaded[table]) {
			if _, ok := current[table][id]; !ok {
				cs.Add(table, id, ChangeDelete, s.loaded[table][id].Clone(), nil)
			}
		}
	}

	// Additions and modifications, owners before dependents
	for _, table := range Tables {
		for _, id := range sortedIDs(current[table]) {
			row := current[table][id]
			old, ok := s.loaded[table][id]
			switch {
			case !ok:
				cs.Add(table, id, ChangeAdd, nil, row)
			case !old.Equal(row):
				cs.Add(table, id, ChangeModify, old.Clone(), row)
			}
		}
	}

	return cs, current, nil
}

// Commit applies every staged change to the backend in one transaction.
// On failure nothing is written and the session keeps its staged state.
func (s *Session) Commit(ctx context.Context, operation string) (*ChangeSet, error) {
	cs, current, err := s.diff(operation)
	if err != nil {
		return nil, err
	}
	if cs.IsEmpty() {
		util.WithOperation(operation).Debugf("Nothing to commit")
		return cs, nil
	}
	if err := s.backend.Apply(ctx, cs.Changes); err != nil {
		return cs, fmt.Errorf("committing %s to %s: %w", operation, s.backend.Name(), err)
	}
	cs.AppliedCount = len(cs.Changes)

	for table, ids := range s.removed {
		for id := range ids {
			delete(s.graph[table], id)
		}
	}
	s.removed = make(map[Table]map[int64]bool)
	s.loaded = current

	util.WithOperation(operation).WithField("backend", s.backend.Name()).
		Infof("Committed %d changes (%d added, %d modified, %d deleted)",
			len(cs.Changes), cs.Count(ChangeAdd), cs.Count(ChangeModify), cs.Count(ChangeDelete))
	return cs, nil
}

// Rollback discards staged work and rebuilds the graph from the last
// loaded or committed rows. Entities obtained before the rollback are
// detached and must be looked up again.
func (s *Session) Rollback() error {
	return s.reset(s.loaded)
}

// ============================================================================
// Allocator queries
// ============================================================================

// NextMonitorIndex returns one more than the highest monitor index of any
// physical interface whose virtual interface belongs to cust or to a
// customer cust resells; 1 when there is none.
func (s *Session) NextMonitorIndex(ctx context.Context, cust *model.Customer) (int, error) {
	if cust == nil {
		return 0, fmt.Errorf("next monitor index: %w", util.NewValidationError("customer is required"))
	}
	highest := 0
	for _, e := range s.All(TablePhysicalInterface) {
		pi := e.(*model.PhysicalInterface)
		if !pi.Customer().IsResoldBy(cust) {
			continue
		}
		if pi.MonitorIndex > highest {
			highest = pi.MonitorIndex
		}
	}
	return highest + 1, nil
}

// AssignChannelGroup returns the lowest positive channel group not used by
// any other virtual interface with members on the switch of vi's first
// member.
func (s *Session) AssignChannelGroup(ctx context.Context, vi *model.VirtualInterface) (int, error) {
	first := vi.FirstMember()
	if first == nil || first.Switch() == nil {
		return 0, fmt.Errorf("assign channel group: virtual interface %d has no member on a switch", vi.ID)
	}
	sw := first.Switch()

	used := make(map[int]bool)
	for _, e := range s.All(TableVirtualInterface) {
		other := e.(*model.VirtualInterface)
		if other == vi || !other.HasChannelGroup() {
			continue
		}
		for _, pi := range other.PhysicalInterfaces {
			if pi.Switch() == sw {
				used[*other.ChannelGroup] = true
				break
			}
		}
	}

	for cg := 1; cg < maxChannelGroup; cg++ {
		if !used[cg] {
			return cg, nil
		}
	}
	return 0, fmt.Errorf("switch %s: %w", sw.Name, ErrNoChannelGroup)
}

// kindOf names a table's entity for error messages
func kindOf(table Table) string {
	switch table {
	case TableVendor:
		return "vendor"
	case TableSwitch:
		return "switch"
	case TableCustomer:
		return "customer"
	case TableSwitchPort:
		return "switch port"
	case TablePhysicalInterface:
		return "physical interface"
	case TableVirtualInterface:
		return "virtual interface"
	case TableVlan:
		return "vlan"
	case TableIPv4Address:
		return "IPv4 address"
	case TableIPv6Address:
		return "IPv6 address"
	case TableVlanInterface:
		return "vlan interface"
	case TableMACAddress:
		return "MAC address"
	}
	return string(table)
}

var _ UnitOfWork = (*Session)(nil)
