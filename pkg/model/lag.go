package model

// VirtualInterface is a logical interface bundling one or more physical
// interfaces of one customer. With LAGFraming set it is a LAG and needs a
// channel group and bundle name on the switch.
type VirtualInterface struct {
	Base
	Customer     *Customer `json:"-"`
	Name         string    `json:"name"` // bundle name, e.g. "Port-Channel"
	Description  string    `json:"description,omitempty"`
	ChannelGroup *int      `json:"channel_group,omitempty"`
	LAGFraming   bool      `json:"lag_framing"`
	FastLACP     bool      `json:"fast_lacp"`
	Trunk        bool      `json:"trunk"`
	MTU          int       `json:"mtu,omitempty"`

	PhysicalInterfaces []*PhysicalInterface `json:"-"`
	VlanInterfaces     []*VlanInterface     `json:"-"`
	MACAddresses       []*MACAddress        `json:"-"`
}

// NewVirtualInterface creates an empty virtual interface owned by cust
func NewVirtualInterface(cust *Customer) *VirtualInterface {
	return &VirtualInterface{Customer: cust}
}

// AddPhysicalInterface makes pi a member and points pi back at vi.
// A pi that belonged to another virtual interface is moved.
func (vi *VirtualInterface) AddPhysicalInterface(pi *PhysicalInterface) {
	if pi.VirtualInterface != nil && pi.VirtualInterface != vi {
		pi.VirtualInterface.RemovePhysicalInterface(pi)
	}
	pi.VirtualInterface = vi
	if vi.HasMember(pi) {
		return
	}
	vi.PhysicalInterfaces = append(vi.PhysicalInterfaces, pi)
}

// RemovePhysicalInterface drops pi from the members. pi keeps its pointer
// only if it pointed elsewhere.
func (vi *VirtualInterface) RemovePhysicalInterface(pi *PhysicalInterface) bool {
	for i, m := range vi.PhysicalInterfaces {
		if m == pi {
			vi.PhysicalInterfaces = append(vi.PhysicalInterfaces[:i], vi.PhysicalInterfaces[i+1:]...)
			if pi.VirtualInterface == vi {
				pi.VirtualInterface = nil
			}
			return true
		}
	}
	return false
}

// HasMember returns true if pi is a member
func (vi *VirtualInterface) HasMember(pi *PhysicalInterface) bool {
	for _, m := range vi.PhysicalInterfaces {
		if m == pi {
			return true
		}
	}
	return false
}

// MemberCount returns the number of member physical interfaces
func (vi *VirtualInterface) MemberCount() int {
	return len(vi.PhysicalInterfaces)
}

// FirstMember returns the first member in insertion order, or nil
func (vi *VirtualInterface) FirstMember() *PhysicalInterface {
	if len(vi.PhysicalInterfaces) == 0 {
		return nil
	}
	return vi.PhysicalInterfaces[0]
}

// HasChannelGroup returns true if a channel group is assigned
func (vi *VirtualInterface) HasChannelGroup() bool {
	return vi.ChannelGroup != nil && *vi.ChannelGroup != 0
}

// SetChannelGroup assigns a channel group; nil clears it
func (vi *VirtualInterface) SetChannelGroup(cg *int) {
	if cg == nil {
		vi.ChannelGroup = nil
		return
	}
	v := *cg
	vi.ChannelGroup = &v
}

// AddVlanInterface attaches vli on both sides
func (vi *VirtualInterface) AddVlanInterface(vli *VlanInterface) {
	vli.VirtualInterface = vi
	for _, v := range vi.VlanInterfaces {
		if v == vli {
			return
		}
	}
	vi.VlanInterfaces = append(vi.VlanInterfaces, vli)
}

// AddMACAddress attaches mac on both sides
func (vi *VirtualInterface) AddMACAddress(mac *MACAddress) {
	mac.VirtualInterface = vi
	for _, m := range vi.MACAddresses {
		if m == mac {
			return
		}
	}
	vi.MACAddresses = append(vi.MACAddresses, mac)
}

// MACAddress is a learned or configured MAC address of a virtual interface.
type MACAddress struct {
	Base
	MAC              string            `json:"mac"`
	VirtualInterface *VirtualInterface `json:"-"`
}
