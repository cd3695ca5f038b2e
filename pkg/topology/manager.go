// Package topology links, bundles and addresses exchange interfaces.
//
// A Manager works against one store.UnitOfWork for the duration of one
// request. Its operations only mutate the entity graph and stage records;
// committing is the caller's decision. Recoverable problems such as a
// missing address or a fanout port claimed by another interface are pushed
// to the alert sink and reported as a false result. Errors are reserved for
// lookups that fail and storage problems, which abort the request.
package topology

import (
	"fmt"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// Manager runs topology operations against one unit of work.
type Manager struct {
	uow    store.UnitOfWork
	alerts alert.Sink
}

// NewManager creates a manager. A nil sink discards alerts.
func NewManager(uow store.UnitOfWork, alerts alert.Sink) *Manager {
	if alerts == nil {
		alerts = alert.NewContainer()
	}
	return &Manager{uow: uow, alerts: alerts}
}

// Alerts returns the sink the manager pushes to
func (m *Manager) Alerts() alert.Sink {
	return m.alerts
}

// push forwards an alert to the sink
func (m *Manager) push(severity alert.Severity, format string, args ...interface{}) {
	m.alerts.Push(fmt.Sprintf(format, args...), severity)
}

// ============================================================================
// Preconditions
// ============================================================================

// preconditionChecker collects argument checks for one operation.
type preconditionChecker struct {
	operation string
	resource  string
	errors    []error
}

func precondition(operation, resource string) *preconditionChecker {
	return &preconditionChecker{operation: operation, resource: resource}
}

// Check records a failed precondition when condition is false
func (p *preconditionChecker) Check(condition bool, precondition, details string) *preconditionChecker {
	if !condition {
		p.errors = append(p.errors, util.NewPreconditionError(
			p.operation, p.resource, precondition, details))
	}
	return p
}

// Result returns the first error or nil if all checks passed
func (p *preconditionChecker) Result() error {
	if len(p.errors) == 0 {
		return nil
	}
	if len(p.errors) == 1 {
		return p.errors[0]
	}
	msgs := make([]string, len(p.errors))
	for i, e := range p.errors {
		msgs[i] = e.Error()
	}
	return util.NewValidationError(msgs...)
}

func interfaceResource(id int64) string {
	return fmt.Sprintf("physical interface %d", id)
}
