// Package model defines the exchange topology entities: switches, ports,
// physical and virtual interfaces, VLAN interfaces and their addresses.
//
// Relations are plain pointers. Every relation with two sides is changed
// through a helper that updates both sides together, so the in-memory graph
// never carries a one-sided link.
package model

// Entity is implemented by every persisted record.
type Entity interface {
	GetID() int64
	AssignID(id int64)
}

// Base carries the identity assigned by the persistence layer.
// Zero means the record has not been persisted yet.
type Base struct {
	ID int64 `json:"id"`
}

// GetID returns the record identity
func (b *Base) GetID() int64 { return b.ID }

// AssignID sets the record identity. Only the persistence layer calls this.
func (b *Base) AssignID(id int64) { b.ID = id }

// IsNew returns true if the record has not been persisted yet
func (b *Base) IsNew() bool { return b.ID == 0 }
