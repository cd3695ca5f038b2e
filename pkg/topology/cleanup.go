package topology

import (
	"context"

	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// cleanupPlan is the complete effect of removing a relation, computed
// before anything is touched.
type cleanupPlan struct {
	related *model.PhysicalInterface
	vi      *model.VirtualInterface

	// cascade is set when related is the last member of vi, in which case
	// vi goes away with its VLAN interfaces and MAC addresses
	cascade bool
}

func planCleanup(pi *model.PhysicalInterface) *cleanupPlan {
	related := pi.RelatedInterface()
	if related == nil {
		return nil
	}
	plan := &cleanupPlan{related: related, vi: related.VirtualInterface}
	if plan.vi != nil && plan.vi.MemberCount() == 1 && plan.vi.HasMember(related) {
		plan.cascade = true
	}
	return plan
}

// RemoveRelatedInterface tears down the fanout relation of pi. The related
// interface is detached from its switch port and staged for removal. When
// it was the only member of its virtual interface, the virtual interface is
// removed too, together with its VLAN interfaces and MAC addresses.
// Addresses used by removed VLAN interfaces are released, not deleted.
// Calling it on an unpaired interface does nothing.
func (m *Manager) RemoveRelatedInterface(ctx context.Context, pi *model.PhysicalInterface) error {
	if err := precondition("remove-related-interface", "physical interface").
		Check(pi != nil, "interface required", "").
		Result(); err != nil {
		return err
	}

	plan := planCleanup(pi)
	if plan == nil {
		util.WithInterface(pi.ID).Debug("No related interface to remove")
		return nil
	}
	related := plan.related

	// Mutations first so nothing staged for removal is still referenced
	if related.SwitchPort != nil {
		related.SwitchPort.ClearPhysicalInterface()
	}
	model.UnlinkFanout(pi)

	var vlanInterfaces []*model.VlanInterface
	var macs []*model.MACAddress
	if plan.cascade {
		vlanInterfaces = append(vlanInterfaces, plan.vi.VlanInterfaces...)
		macs = append(macs, plan.vi.MACAddresses...)
		for _, vli := range vlanInterfaces {
			vli.ClearAddress(model.IPv4)
			vli.ClearAddress(model.IPv6)
		}
	} else if plan.vi != nil {
		plan.vi.RemovePhysicalInterface(related)
	}

	// Then removals, dependents before owners
	for _, vli := range vlanInterfaces {
		m.uow.StageRemoval(vli)
	}
	for _, mac := range macs {
		m.uow.StageRemoval(mac)
	}
	if plan.cascade {
		m.uow.StageRemoval(plan.vi)
	}
	m.uow.StageRemoval(related)

	entry := util.WithInterface(pi.ID).WithField("related", related.ID)
	if plan.cascade {
		entry.Infof("Removed related interface %d with virtual interface %d (%d vlan interfaces, %d MAC addresses)",
			related.ID, plan.vi.ID, len(vlanInterfaces), len(macs))
	} else {
		entry.Infof("Removed related interface %d", related.ID)
	}
	return nil
}
