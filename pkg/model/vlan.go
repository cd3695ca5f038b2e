package model

import "fmt"

// Vlan is an exchange peering LAN.
type Vlan struct {
	Base
	Name    string `json:"name"`
	Number  int    `json:"number"` // 802.1Q tag
	Private bool   `json:"private"`
	Notes   string `json:"notes,omitempty"`
}

// Family is an IP address family
type Family int

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// IPAddress is an address record scoped to a VLAN. At most one
// VlanInterface uses it at a time; the back reference is maintained by
// (*VlanInterface).SetAddress and ClearAddress.
type IPAddress struct {
	Base
	Family  Family `json:"family"`
	Address string `json:"address"`
	Vlan    *Vlan  `json:"-"`

	vlanInterface *VlanInterface
}

// NewIPAddress creates an unbound address record on vlan
func NewIPAddress(family Family, vlan *Vlan, address string) *IPAddress {
	return &IPAddress{Family: family, Vlan: vlan, Address: address}
}

// VlanInterface returns the VLAN interface currently using the address, or nil
func (a *IPAddress) VlanInterface() *VlanInterface {
	return a.vlanInterface
}

// AddressConfig is the per-family configuration of a VLAN interface.
type AddressConfig struct {
	Address      *IPAddress `json:"-"`
	Hostname     string     `json:"hostname"`
	Enabled      bool       `json:"enabled"`
	BGPMD5Secret string     `json:"bgp_md5_secret"`
	CanPing      bool       `json:"can_ping"`
	MonitorRCBGP bool       `json:"monitor_rc_bgp"`
}

// AddressString returns the configured address, or "" when none
func (c *AddressConfig) AddressString() string {
	if c.Address == nil {
		return ""
	}
	return c.Address.Address
}

// VlanInterface is the VLAN-scoped facet of a virtual interface.
type VlanInterface struct {
	Base
	VirtualInterface *VirtualInterface `json:"-"`
	Vlan             *Vlan             `json:"-"`

	IPv4 AddressConfig `json:"ipv4"`
	IPv6 AddressConfig `json:"ipv6"`

	RSClient        bool   `json:"rs_client"`
	IRRDBFilter     bool   `json:"irrdb_filter"`
	RSMoreSpecifics bool   `json:"rs_more_specifics"`
	McastEnabled    bool   `json:"mcast_enabled"`
	MaxBGPPrefix    int    `json:"max_bgp_prefix"`
	BusyHost        bool   `json:"busy_host"`
	AS112Client     bool   `json:"as112_client"`
	Notes           string `json:"notes,omitempty"`
}

// Config returns the configuration block for family
func (vli *VlanInterface) Config(family Family) *AddressConfig {
	if family == IPv6 {
		return &vli.IPv6
	}
	return &vli.IPv4
}

// SetAddress binds addr to vli for addr's family, releasing whatever
// address vli used before. If another VLAN interface held addr it loses it.
func (vli *VlanInterface) SetAddress(addr *IPAddress) {
	cfg := vli.Config(addr.Family)
	if cfg.Address == addr {
		addr.vlanInterface = vli
		return
	}
	vli.ClearAddress(addr.Family)
	if prev := addr.vlanInterface; prev != nil && prev != vli {
		prev.Config(addr.Family).Address = nil
	}
	cfg.Address = addr
	addr.vlanInterface = vli
}

// ClearAddress releases the address vli uses for family, if any
func (vli *VlanInterface) ClearAddress(family Family) {
	cfg := vli.Config(family)
	if cfg.Address == nil {
		return
	}
	if cfg.Address.vlanInterface == vli {
		cfg.Address.vlanInterface = nil
	}
	cfg.Address = nil
}

// Customer returns the owner of the VLAN interface, or nil
func (vli *VlanInterface) Customer() *Customer {
	if vli.VirtualInterface == nil {
		return nil
	}
	return vli.VirtualInterface.Customer
}
