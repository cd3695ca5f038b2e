// Package audit records executed topology changes as JSON lines.
package audit

import (
	"fmt"
	"os/user"
	"time"

	"github.com/newtron-network/ixtopo/pkg/store"
)

// Event is one executed or previewed command
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	User        string         `json:"user"`
	Backend     string         `json:"backend"`
	Operation   string         `json:"operation"`
	Interface   string         `json:"interface,omitempty"` // e.g. "physical interface 12"
	Changes     []store.Change `json:"changes"`
	Alerts      []string       `json:"alerts,omitempty"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	ExecuteMode bool           `json:"execute_mode"` // true if -x was used
	Duration    time.Duration  `json:"duration"`
}

// Filter selects events in Query
type Filter struct {
	Backend     string
	User        string
	Operation   string
	Interface   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool

	// Newest returns the most recent events first
	Newest bool
	Limit  int
	Offset int
}

// NewEvent creates an event for the current OS user
func NewEvent(backend, operation string) *Event {
	return &Event{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		User:      currentUser(),
		Backend:   backend,
		Operation: operation,
	}
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// WithInterface names the entity the operation worked on
func (e *Event) WithInterface(iface string) *Event {
	e.Interface = iface
	return e
}

// WithChangeSet copies the changes of cs; nil records none
func (e *Event) WithChangeSet(cs *store.ChangeSet) *Event {
	if cs != nil {
		e.Changes = cs.Changes
	}
	return e
}

// WithAlerts records the alert messages raised during the operation
func (e *Event) WithAlerts(msgs []string) *Event {
	e.Alerts = msgs
	return e
}

// WithResult marks the event successful when err is nil, failed otherwise
func (e *Event) WithResult(err error) *Event {
	e.Success = err == nil
	e.Error = ""
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	return e
}

// Summary is a one-line description for listings
func (e *Event) Summary() string {
	mode := "preview"
	if e.ExecuteMode {
		mode = "execute"
	}
	status := "ok"
	if !e.Success {
		status = "failed: " + e.Error
	}
	return fmt.Sprintf("%s %s (%d changes, %s) %s", e.Operation, mode, len(e.Changes), e.Duration.Round(time.Millisecond), status)
}
