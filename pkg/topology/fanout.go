package topology

import (
	"context"
	"fmt"
	"strconv"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/input"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// A claimed fanout port reuses the missing bundle name text.
const (
	msgFanoutClaimed       = msgBundleNameMissing
	msgInvalidMonitorIndex = "Invalid fanout monitor index %q."
	msgSelfFanout          = "A physical interface cannot be its own fanout port."
)

// ProcessFanoutPhysicalInterface links the peering interface pi with the
// physical interface of the fanout switch port named by the input, or tears
// the existing link down when the input does not ask for a fanout.
//
// vi is pi's virtual interface; its customer's reseller owns a fanout
// virtual interface created here. The fanout port's interface is created on
// demand. A fanout interface already paired with another peering interface
// is rejected with a warning and nothing is changed. An unknown switch port
// is returned as a not-found error.
func (m *Manager) ProcessFanoutPhysicalInterface(ctx context.Context, in input.Source, pi *model.PhysicalInterface, vi *model.VirtualInterface) (bool, error) {
	if err := precondition("fanout-link", "physical interface").
		Check(pi != nil, "peering interface required", "").
		Check(in != nil, "input required", "").
		Result(); err != nil {
		return false, err
	}
	log := util.WithOperation("fanout-link").WithField("physical_interface", pi.ID)

	if !in.Bool(input.Fanout) {
		return true, m.RemoveRelatedInterface(ctx, pi)
	}

	// Everything that can fail is resolved before the graph is touched.
	monitorIndex, ok, err := m.fanoutMonitorIndex(ctx, in, vi)
	if err != nil || !ok {
		return false, err
	}

	fnsp, err := m.fanoutSwitchPort(ctx, in)
	if err != nil {
		return false, err
	}

	fnpi := fnsp.PhysicalInterface
	if fnpi != nil {
		if fnpi == pi {
			m.push(alert.Danger, msgSelfFanout)
			return false, nil
		}
		if related := fnpi.RelatedInterface(); related != nil && related != pi {
			util.WithSwitchPort(fnsp.Name).WithField("claimed_by", related.ID).
				Warnf("Fanout port already linked to interface %d", related.ID)
			m.push(alert.Warning, msgFanoutClaimed)
			return false, nil
		}
	}
	if needsFanoutOwner(pi, fnpi) && fanoutOwner(vi) == nil {
		return false, precondition("fanout-link", interfaceResource(pi.ID)).
			Check(false, "virtual interface with a customer required", "a fanout virtual interface needs an owner").
			Result()
	}

	fnsp.Type = model.SwitchPortFanout

	if fnpi == nil {
		fnpi = &model.PhysicalInterface{MonitorIndex: monitorIndex}
		fnsp.SetPhysicalInterface(fnpi)
		m.uow.Stage(fnpi)
		log.Infof("Created fanout interface %d on %s (monitor index %d)", fnpi.ID, fnsp.Name, monitorIndex)
	}

	if old := pi.RelatedInterface(); old != nil && old != fnpi {
		// Re-pointing: the new fanout interface takes over the old one's
		// virtual interface so cleanup does not cascade it away.
		if fnpi.VirtualInterface == nil && old.VirtualInterface != nil {
			old.VirtualInterface.AddPhysicalInterface(fnpi)
			log.Debugf("Fanout interface %d adopted virtual interface %d", fnpi.ID, old.VirtualInterface.ID)
		}
		if err := m.RemoveRelatedInterface(ctx, pi); err != nil {
			return false, err
		}
	}

	if fnpi.VirtualInterface == nil {
		fnvi := model.NewVirtualInterface(fanoutOwner(vi))
		fnvi.AddPhysicalInterface(fnpi)
		m.uow.Stage(fnvi)
		log.Infof("Created fanout virtual interface %d for customer %s", fnvi.ID, fnvi.Customer.Name)
	}

	model.LinkFanout(pi, fnpi)
	log.Infof("Linked peering interface %d with fanout interface %d", pi.ID, fnpi.ID)
	return true, nil
}

// needsFanoutOwner reports whether linking pi to fnpi creates a new
// virtual interface for the fanout side
func needsFanoutOwner(pi, fnpi *model.PhysicalInterface) bool {
	if fnpi != nil && fnpi.VirtualInterface != nil {
		return false
	}
	old := pi.RelatedInterface()
	return old == nil || old == fnpi || old.VirtualInterface == nil
}

// fanoutOwner is the customer owning fanout interfaces created for vi: the
// reseller of vi's customer, or the customer itself when not resold.
func fanoutOwner(vi *model.VirtualInterface) *model.Customer {
	if vi == nil {
		return nil
	}
	return vi.Customer.ResellerOrSelf()
}

// fanoutMonitorIndex returns the monitor index for a new fanout interface:
// the explicit override when given, else the next free index of the owner.
// An override that is not a number is reported as an alert.
func (m *Manager) fanoutMonitorIndex(ctx context.Context, in input.Source, vi *model.VirtualInterface) (int, bool, error) {
	if s, ok := input.NonEmpty(in, input.FanoutMonitorIndex); ok {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			m.push(alert.Danger, msgInvalidMonitorIndex, s)
			return 0, false, nil
		}
		return n, true, nil
	}

	owner := fanoutOwner(vi)
	if owner == nil {
		return 0, false, precondition("fanout-link", "monitor index").
			Check(false, "virtual interface with a customer required", "no monitor index given").
			Result()
	}
	n, err := m.uow.NextMonitorIndex(ctx, owner)
	if err != nil {
		return 0, false, fmt.Errorf("next monitor index for %s: %w", owner.Name, err)
	}
	return n, true, nil
}

// fanoutSwitchPort resolves the switch port named by the input. A missing
// or unknown identifier is a not-found error.
func (m *Manager) fanoutSwitchPort(ctx context.Context, in input.Source) (*model.SwitchPort, error) {
	s, ok := input.NonEmpty(in, input.FanoutSwitchPort)
	if !ok {
		return nil, util.NewNotFoundError("switch port", "(none)")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, util.NewNotFoundError("switch port", s)
	}
	return store.Get[*model.SwitchPort](ctx, m.uow, store.TableSwitchPort, id)
}
