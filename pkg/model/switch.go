package model

// Vendor is a switch manufacturer.
type Vendor struct {
	Base
	Name      string `json:"name"`
	ShortName string `json:"shortname"`

	// BundleName is the LAG interface name prefix the vendor's OS expects
	// (e.g. "Port-Channel", "ae"). Empty when not configured.
	BundleName string `json:"bundle_name"`
}

// Switch is a physical exchange switch.
type Switch struct {
	Base
	Name   string  `json:"name"`
	Vendor *Vendor `json:"-"`
}

// SwitchPortType classifies what a switch port is used for
type SwitchPortType string

const (
	SwitchPortUnset    SwitchPortType = "UNSET"
	SwitchPortPeering  SwitchPortType = "PEERING"
	SwitchPortFanout   SwitchPortType = "FANOUT"
	SwitchPortReseller SwitchPortType = "RESELLER"
	SwitchPortCore     SwitchPortType = "CORE"
)

// Valid returns true for a known port type
func (t SwitchPortType) Valid() bool {
	switch t {
	case SwitchPortUnset, SwitchPortPeering, SwitchPortFanout, SwitchPortReseller, SwitchPortCore:
		return true
	}
	return false
}

// SwitchPort is one port on a switch. It owns at most one PhysicalInterface.
type SwitchPort struct {
	Base
	Name   string         `json:"name"`
	Type   SwitchPortType `json:"type"`
	Switch *Switch        `json:"-"`

	PhysicalInterface *PhysicalInterface `json:"-"`
}

// SetPhysicalInterface binds pi to this port on both sides.
func (sp *SwitchPort) SetPhysicalInterface(pi *PhysicalInterface) {
	if sp.PhysicalInterface != nil && sp.PhysicalInterface != pi && sp.PhysicalInterface.SwitchPort == sp {
		sp.PhysicalInterface.SwitchPort = nil
	}
	sp.PhysicalInterface = pi
	if pi != nil {
		pi.SwitchPort = sp
	}
}

// ClearPhysicalInterface drops the port's reference to its physical
// interface. The interface keeps pointing at the port; the caller decides
// whether the interface record itself goes away.
func (sp *SwitchPort) ClearPhysicalInterface() {
	sp.PhysicalInterface = nil
}

// IsFanout returns true if the port is used as a fanout port
func (sp *SwitchPort) IsFanout() bool {
	return sp.Type == SwitchPortFanout
}

// Vendor returns the vendor of the port's switch, or nil
func (sp *SwitchPort) Vendor() *Vendor {
	if sp == nil || sp.Switch == nil {
		return nil
	}
	return sp.Switch.Vendor
}
