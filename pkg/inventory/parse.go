package inventory

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/ixtopo/pkg/model"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates inventory YAML.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parsing inventory YAML: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("validating inventory: %w", err)
	}
	return &inv, nil
}

// PortType maps the YAML spelling of a port type to the model value.
// An empty string is UNSET.
func PortType(s string) (model.SwitchPortType, bool) {
	if s == "" {
		return model.SwitchPortUnset, true
	}
	t := model.SwitchPortType(strings.ToUpper(s))
	return t, t.Valid()
}

// ExpandPorts expands the port groups of sw in declaration order.
func (sw *Switch) ExpandPorts() ([]PortSpec, error) {
	var out []PortSpec
	for _, g := range sw.Ports {
		names, err := util.ExpandInterfaceRange(g.Range)
		if err != nil {
			return nil, fmt.Errorf("switch %s: %w", sw.Name, err)
		}
		t, _ := PortType(g.Type)
		for _, n := range names {
			out = append(out, PortSpec{Name: n, Type: t})
		}
	}
	return out, nil
}

// PortSpec is one expanded switch port.
type PortSpec struct {
	Name string
	Type model.SwitchPortType
}

// Validate checks names are present and unique and that every reference
// resolves within the file. All problems are reported together.
func (inv *Inventory) Validate() error {
	v := &util.ValidationBuilder{}

	vendors := make(map[string]bool)
	for i, vd := range inv.Vendors {
		v.Add(vd.Name != "", fmt.Sprintf("vendors[%d]: name is required", i))
		if vendors[vd.Name] {
			v.AddErrorf("vendor %s: defined twice", vd.Name)
		}
		vendors[vd.Name] = true
	}

	ports := make(map[string]map[string]bool)
	for i, sw := range inv.Switches {
		if sw.Name == "" {
			v.AddErrorf("switches[%d]: name is required", i)
			continue
		}
		if _, dup := ports[sw.Name]; dup {
			v.AddErrorf("switch %s: defined twice", sw.Name)
		}
		v.Add(vendors[sw.Vendor], fmt.Sprintf("switch %s: unknown vendor %q", sw.Name, sw.Vendor))
		names := make(map[string]bool)
		for _, g := range sw.Ports {
			if _, ok := PortType(g.Type); !ok {
				v.AddErrorf("switch %s: invalid port type %q", sw.Name, g.Type)
			}
		}
		expanded, err := sw.ExpandPorts()
		if err != nil {
			v.AddErrorf("%v", err)
		}
		for _, p := range expanded {
			if names[p.Name] {
				v.AddErrorf("switch %s: port %s defined twice", sw.Name, p.Name)
			}
			names[p.Name] = true
		}
		ports[sw.Name] = names
	}

	customers := make(map[string]Customer)
	for i, c := range inv.Customers {
		if c.ShortName == "" {
			v.AddErrorf("customers[%d]: shortname is required", i)
			continue
		}
		if _, dup := customers[c.ShortName]; dup {
			v.AddErrorf("customer %s: defined twice", c.ShortName)
		}
		customers[c.ShortName] = c
	}
	for _, c := range inv.Customers {
		if c.ResoldBy == "" {
			continue
		}
		r, ok := customers[c.ResoldBy]
		switch {
		case !ok:
			v.AddErrorf("customer %s: unknown reseller %q", c.ShortName, c.ResoldBy)
		case !r.IsReseller:
			v.AddErrorf("customer %s: %s is not a reseller", c.ShortName, c.ResoldBy)
		}
	}

	vlans := make(map[int]bool)
	for _, vl := range inv.Vlans {
		if err := util.ValidateVLANID(vl.Number); err != nil {
			v.AddErrorf("vlan %q: %v", vl.Name, err)
		}
		if vlans[vl.Number] {
			v.AddErrorf("vlan %d: defined twice", vl.Number)
		}
		vlans[vl.Number] = true
	}

	used := make(map[string]string)
	claim := func(owner, sw, port string) {
		if !ports[sw][port] {
			v.AddErrorf("%s: unknown port %s:%s", owner, sw, port)
			return
		}
		key := sw + ":" + port
		if prev, taken := used[key]; taken {
			v.AddErrorf("%s: port %s already used by %s", owner, key, prev)
			return
		}
		used[key] = owner
	}

	for i, vi := range inv.VirtualInterfaces {
		owner := fmt.Sprintf("virtual_interfaces[%d]", i)
		if _, ok := customers[vi.Customer]; !ok {
			v.AddErrorf("%s: unknown customer %q", owner, vi.Customer)
		}
		v.Add(len(vi.Members) > 0, owner+": at least one member is required")
		v.Add(vi.LAGFraming || len(vi.Members) <= 1, owner+": multiple members require lag_framing")
		for _, m := range vi.Members {
			claim(owner, m.Switch, m.Port)
			if m.Fanout != nil {
				claim(owner+" fanout", m.Fanout.Switch, m.Fanout.Port)
			}
		}
		seen := make(map[int]bool)
		for _, vli := range vi.VlanIfaces {
			v.Add(vlans[vli.Vlan], fmt.Sprintf("%s: unknown vlan %d", owner, vli.Vlan))
			if seen[vli.Vlan] {
				v.AddErrorf("%s: vlan %d configured twice", owner, vli.Vlan)
			}
			seen[vli.Vlan] = true
			validateAddress(v, owner, vli.IPv4, model.IPv4)
			validateAddress(v, owner, vli.IPv6, model.IPv6)
		}
		for _, mac := range vi.MACs {
			if _, err := net.ParseMAC(mac); err != nil {
				v.AddErrorf("%s: invalid MAC address %q", owner, mac)
			}
		}
	}

	return v.Build()
}

func validateAddress(v *util.ValidationBuilder, owner string, s *AddressSection, family model.Family) {
	if s == nil {
		return
	}
	ip := net.ParseIP(s.Address)
	if ip == nil {
		v.AddErrorf("%s: invalid %s address %q", owner, family, s.Address)
		return
	}
	if (ip.To4() != nil) != (family == model.IPv4) {
		v.AddErrorf("%s: %s is not an %s address", owner, s.Address, family)
	}
}
