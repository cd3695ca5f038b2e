// Package input provides named request fields to the topology core.
//
// Values arrive already decoded from an HTML form or CLI flags; the core
// only checks presence and reads strings and booleans.
package input

import (
	"net/url"
	"strings"

	"github.com/newtron-network/ixtopo/pkg/util"
)

// Field names shared by the form and the CLI
const (
	Fanout             = "fanout"
	FanoutMonitorIndex = "monitorindex-fanout"
	FanoutSwitchPort   = "switch-port-fanout"
	AddressSuffix      = "-address"
	HostnameSuffix     = "-hostname"
	BGPMD5SecretSuffix = "-bgp-md5-secret"
	CanPingSuffix      = "-can-ping"
	MonitorRCBGPSuffix = "-monitor-rcbgp"
)

// Source is a read-only view of request fields.
type Source interface {
	// String returns the field value and whether it was present
	String(name string) (string, bool)
	// Bool returns true if the field is present and truthy
	Bool(name string) bool
}

// Form adapts decoded form values
type Form struct {
	values url.Values
}

// NewForm wraps decoded form values
func NewForm(values url.Values) *Form {
	return &Form{values: values}
}

// String returns the first value of name
func (f *Form) String(name string) (string, bool) {
	vs, ok := f.values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Bool interprets checkbox-style values
func (f *Form) Bool(name string) bool {
	v, ok := f.String(name)
	return ok && util.ParseFlag(v)
}

// Map is a Source backed by a plain map; absent keys are absent fields.
type Map map[string]string

// String returns the value of name
func (m Map) String(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Bool interprets the value of name as a flag
func (m Map) Bool(name string) bool {
	v, ok := m[name]
	return ok && util.ParseFlag(v)
}

// Set stores a string field and returns m for chaining
func (m Map) Set(name, value string) Map {
	m[name] = value
	return m
}

// SetBool stores a flag field and returns m for chaining
func (m Map) SetBool(name string, value bool) Map {
	m[name] = util.FormatFlag(value)
	return m
}

// NonEmpty returns the trimmed value of name and whether it is non-empty
func NonEmpty(src Source, name string) (string, bool) {
	v, ok := src.String(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
