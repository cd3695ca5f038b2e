package store

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ChangeType is the kind of row change
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeModify ChangeType = "modify"
	ChangeDelete ChangeType = "delete"
)

// Change represents a single row change.
type Change struct {
	Table    Table      `json:"table"`
	Key      int64      `json:"key"`
	Type     ChangeType `json:"type"`
	OldValue Row        `json:"old_value,omitempty"`
	NewValue Row        `json:"new_value,omitempty"`
}

// ChangeSet represents the changes one operation commits.
type ChangeSet struct {
	Operation    string    `json:"operation"`
	Timestamp    time.Time `json:"timestamp"`
	Changes      []Change  `json:"changes"`
	AppliedCount int       `json:"applied_count"` // 0 until a backend applied the set
}

// NewChangeSet creates a new ChangeSet.
func NewChangeSet(operation string) *ChangeSet {
	return &ChangeSet{
		Operation: operation,
		Timestamp: time.Now(),
		Changes:   make([]Change, 0),
	}
}

// Add adds a change to the set.
func (cs *ChangeSet) Add(table Table, key int64, changeType ChangeType, oldValue, newValue Row) {
	cs.Changes = append(cs.Changes, Change{
		Table:    table,
		Key:      key,
		Type:     changeType,
		OldValue: oldValue,
		NewValue: newValue,
	})
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Changes) == 0
}

// Count returns the number of changes of the given type
func (cs *ChangeSet) Count(t ChangeType) int {
	n := 0
	for _, c := range cs.Changes {
		if c.Type == t {
			n++
		}
	}
	return n
}

// For returns the changes touching table, in commit order
func (cs *ChangeSet) For(table Table) []Change {
	var out []Change
	for _, c := range cs.Changes {
		if c.Table == table {
			out = append(out, c)
		}
	}
	return out
}

// RedisKey returns the "TABLE|id" key of the change
func (c Change) RedisKey() string {
	return fmt.Sprintf("%s|%d", c.Table, c.Key)
}

// String returns a human-readable representation of the changes.
func (cs *ChangeSet) String() string {
	if cs.IsEmpty() {
		return "No changes"
	}

	var sb strings.Builder
	for _, c := range cs.Changes {
		typeStr := ""
		switch c.Type {
		case ChangeAdd:
			typeStr = "[ADD]"
		case ChangeModify:
			typeStr = "[MOD]"
		case ChangeDelete:
			typeStr = "[DEL]"
		}

		sb.WriteString(fmt.Sprintf("  %s %s", typeStr, c.RedisKey()))
		switch c.Type {
		case ChangeAdd:
			sb.WriteString(" → " + formatRow(c.NewValue, nil))
		case ChangeModify:
			sb.WriteString(" → " + formatRow(c.NewValue, c.OldValue))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Preview returns a formatted preview of the changes.
func (cs *ChangeSet) Preview() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Operation: %s\n", cs.Operation))
	sb.WriteString(fmt.Sprintf("Changes:\n%s", cs.String()))
	return sb.String()
}

// formatRow renders fields in key order. With old set, only fields that
// differ from old are shown.
func formatRow(row, old Row) string {
	keys := make([]string, 0, len(row))
	for k, v := range row {
		if old != nil && old[k] == v {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, row[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
