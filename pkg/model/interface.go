package model

// PhysicalInterface is one physical port as configured on the exchange.
//
// A peering interface may be paired with a fanout interface (the
// patch/cross-connect side). The pairing is a single relation with two
// lookup directions and only changes through LinkFanout and UnlinkFanout.
type PhysicalInterface struct {
	Base
	MonitorIndex int    `json:"monitor_index"`
	Speed        int    `json:"speed"`
	Duplex       string `json:"duplex"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`

	SwitchPort       *SwitchPort       `json:"-"`
	VirtualInterface *VirtualInterface `json:"-"`

	fanout  *PhysicalInterface
	peering *PhysicalInterface
}

// FanoutInterface returns the fanout side when pi is a peering interface
func (pi *PhysicalInterface) FanoutInterface() *PhysicalInterface {
	return pi.fanout
}

// PeeringInterface returns the peering side when pi is a fanout interface
func (pi *PhysicalInterface) PeeringInterface() *PhysicalInterface {
	return pi.peering
}

// RelatedInterface returns the interface pi is paired with, whichever
// direction the pairing runs.
func (pi *PhysicalInterface) RelatedInterface() *PhysicalInterface {
	if pi.fanout != nil {
		return pi.fanout
	}
	return pi.peering
}

// HasRelatedInterface returns true if pi is paired
func (pi *PhysicalInterface) HasRelatedInterface() bool {
	return pi.RelatedInterface() != nil
}

// LinkFanout pairs a peering interface with a fanout interface. Any previous
// partner of either side is released first so the relation stays symmetric.
func LinkFanout(peering, fanout *PhysicalInterface) {
	if peering.RelatedInterface() != fanout {
		UnlinkFanout(peering)
	}
	if fanout.RelatedInterface() != peering {
		UnlinkFanout(fanout)
	}
	peering.fanout = fanout
	peering.peering = nil
	fanout.peering = peering
	fanout.fanout = nil
}

// UnlinkFanout clears the pairing of pi on both sides. No-op when unpaired.
func UnlinkFanout(pi *PhysicalInterface) {
	other := pi.RelatedInterface()
	pi.fanout = nil
	pi.peering = nil
	if other == nil {
		return
	}
	if other.fanout == pi {
		other.fanout = nil
	}
	if other.peering == pi {
		other.peering = nil
	}
}

// SwitchPortName returns the owning port name, or "" when unbound
func (pi *PhysicalInterface) SwitchPortName() string {
	if pi.SwitchPort == nil {
		return ""
	}
	return pi.SwitchPort.Name
}

// Switch returns the switch the interface sits on, or nil
func (pi *PhysicalInterface) Switch() *Switch {
	if pi.SwitchPort == nil {
		return nil
	}
	return pi.SwitchPort.Switch
}

// Customer returns the owner of the interface's virtual interface, or nil
func (pi *PhysicalInterface) Customer() *Customer {
	if pi.VirtualInterface == nil {
		return nil
	}
	return pi.VirtualInterface.Customer
}
