package topology

import (
	"context"
	"fmt"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/util"
)

const (
	msgChannelGroupAssigned = "Missing channel group assigned as this is a LAG port"
	msgBundleNameAssigned   = "Missing bundle name assigned as this is a LAG port"
	msgBundleNameMissing    = "Missing bundle name not assigned as no bundle name set for this switch vendor (see Vendors)"
)

// SetBundleDetails normalizes the LAG attributes of vi against its members.
//
// A LAG with members gets a channel group and a bundle name when missing.
// The bundle name comes from the vendor of the first member's switch, which
// is not correct for LAGs spanning switches of different vendors. When that
// vendor has no bundle name configured the name stays empty and a warning
// is pushed. A virtual interface without members has its bundle name,
// channel group, LAG framing and fast LACP cleared.
func (m *Manager) SetBundleDetails(ctx context.Context, vi *model.VirtualInterface) error {
	if err := precondition("bundle-normalize", "virtual interface").
		Check(vi != nil, "virtual interface required", "").
		Result(); err != nil {
		return err
	}
	log := util.WithOperation("bundle-normalize").WithField("virtual_interface", vi.ID)

	if vi.MemberCount() == 0 {
		vi.Name = ""
		vi.SetChannelGroup(nil)
		vi.LAGFraming = false
		vi.FastLACP = false
		log.Debug("Cleared bundle attributes of memberless virtual interface")
		return nil
	}

	if !vi.LAGFraming {
		return nil
	}

	if !vi.HasChannelGroup() {
		cg, err := m.uow.AssignChannelGroup(ctx, vi)
		if err != nil {
			return fmt.Errorf("virtual interface %d: %w", vi.ID, err)
		}
		vi.SetChannelGroup(&cg)
		log.Infof("Assigned channel group %d", cg)
		m.push(alert.Info, msgChannelGroupAssigned)
	}

	if vi.Name == "" {
		vi.Name = bundleName(vi.FirstMember())
		if vi.Name != "" {
			log.Infof("Assigned bundle name %s", vi.Name)
			m.push(alert.Info, msgBundleNameAssigned)
		} else {
			log.Warn("No bundle name configured for switch vendor")
			m.push(alert.Warning, msgBundleNameMissing)
		}
	}
	return nil
}

// bundleName returns the bundle name of the vendor of pi's switch, or ""
func bundleName(pi *model.PhysicalInterface) string {
	if pi == nil || pi.SwitchPort == nil {
		return ""
	}
	if v := pi.SwitchPort.Vendor(); v != nil {
		return v.BundleName
	}
	return ""
}
