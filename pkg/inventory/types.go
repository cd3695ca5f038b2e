// Package inventory loads an exchange topology from a YAML file and imports
// it into a store session.
//
// The file names everything by natural keys (vendor and switch names,
// customer short names, VLAN numbers). Port lists accept range notation
// such as "Ethernet1-48" or "xe-0/0/0-3".
package inventory

// Inventory is the root of an inventory file.
type Inventory struct {
	Vendors           []Vendor           `yaml:"vendors"`
	Switches          []Switch           `yaml:"switches"`
	Customers         []Customer         `yaml:"customers"`
	Vlans             []Vlan             `yaml:"vlans"`
	VirtualInterfaces []VirtualInterface `yaml:"virtual_interfaces"`
}

// Vendor describes a switch vendor.
type Vendor struct {
	Name       string `yaml:"name"`
	ShortName  string `yaml:"shortname"`
	BundleName string `yaml:"bundle_name"`
}

// Switch describes a switch and its ports.
type Switch struct {
	Name   string      `yaml:"name"`
	Vendor string      `yaml:"vendor"`
	Ports  []PortGroup `yaml:"ports"`
}

// PortGroup is a range of ports of one type.
type PortGroup struct {
	Range string `yaml:"range"`          // e.g. "Ethernet1-48"
	Type  string `yaml:"type,omitempty"` // peering, fanout, reseller, core; default unset
}

// Customer describes an exchange member.
type Customer struct {
	Name       string `yaml:"name"`
	ShortName  string `yaml:"shortname"`
	IsReseller bool   `yaml:"reseller"`
	ResoldBy   string `yaml:"resold_by,omitempty"` // reseller short name
}

// Vlan describes a peering LAN.
type Vlan struct {
	Name    string `yaml:"name"`
	Number  int    `yaml:"number"`
	Private bool   `yaml:"private"`
	Notes   string `yaml:"notes,omitempty"`
}

// VirtualInterface describes a customer connection.
type VirtualInterface struct {
	Customer     string          `yaml:"customer"` // short name
	Name         string          `yaml:"name,omitempty"`
	Description  string          `yaml:"description,omitempty"`
	ChannelGroup *int            `yaml:"channel_group,omitempty"`
	LAGFraming   bool            `yaml:"lag_framing"`
	FastLACP     bool            `yaml:"fast_lacp"`
	Trunk        bool            `yaml:"trunk"`
	MTU          int             `yaml:"mtu,omitempty"`
	Members      []Member        `yaml:"members"`
	VlanIfaces   []VlanInterface `yaml:"vlan_interfaces"`
	MACs         []string        `yaml:"macs,omitempty"`
}

// Member is one physical port of a virtual interface.
type Member struct {
	Switch       string  `yaml:"switch"`
	Port         string  `yaml:"port"`
	MonitorIndex int     `yaml:"monitor_index,omitempty"`
	Speed        int     `yaml:"speed,omitempty"`
	Duplex       string  `yaml:"duplex,omitempty"`
	Status       string  `yaml:"status,omitempty"`
	Fanout       *Fanout `yaml:"fanout,omitempty"`
}

// Fanout names the fanout port a member is patched through.
type Fanout struct {
	Switch       string `yaml:"switch"`
	Port         string `yaml:"port"`
	MonitorIndex *int   `yaml:"monitor_index,omitempty"`
}

// VlanInterface describes the VLAN facet of a virtual interface.
type VlanInterface struct {
	Vlan            int             `yaml:"vlan"` // VLAN number
	IPv4            *AddressSection `yaml:"ipv4,omitempty"`
	IPv6            *AddressSection `yaml:"ipv6,omitempty"`
	RSClient        bool            `yaml:"rs_client"`
	IRRDBFilter     bool            `yaml:"irrdb_filter"`
	RSMoreSpecifics bool            `yaml:"rs_more_specifics"`
	McastEnabled    bool            `yaml:"mcast_enabled"`
	MaxBGPPrefix    int             `yaml:"max_bgp_prefix,omitempty"`
	BusyHost        bool            `yaml:"busy_host"`
	AS112Client     bool            `yaml:"as112_client"`
	Notes           string          `yaml:"notes,omitempty"`
}

// AddressSection is the per-family address configuration.
type AddressSection struct {
	Address      string `yaml:"address"`
	Hostname     string `yaml:"hostname,omitempty"`
	BGPMD5Secret string `yaml:"bgp_md5_secret,omitempty"`
	CanPing      bool   `yaml:"can_ping"`
	MonitorRCBGP bool   `yaml:"monitor_rcbgp"`
}
