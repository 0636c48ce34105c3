package core

import (
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrNetworkNotFound     = errors.New("Network not found")
	ErrVendorNotFound      = errors.New("Vendor not found")
	ErrNetworkExists       = errors.New("Network already exists")
	ErrNetworkNameRequired = errors.New("Please enter a network name")
	ErrVendorRequired      = errors.New("Please add at least one vendor")
)

// NetworkSettings holds the vendors and quarter definitions of one network.
type NetworkSettings struct {
	Vendors  []string       `json:"vendors"`
	Quarters []QuarterEntry `json:"quarters"`
}

// Configuration is the reference data served by /api/bills/config.
type Configuration struct {
	Networks      []string                   `json:"networks"`
	Vendors       []string                   `json:"vendors"`
	Quarters      []string                   `json:"quarters"`
	NetworkConfig map[string]NetworkSettings `json:"networkConfig"`
}

// Clone returns a deep copy that can be edited without touching the original.
func (c Configuration) Clone() Configuration {
	out := Configuration{
		Networks:      slices.Clone(c.Networks),
		Vendors:       slices.Clone(c.Vendors),
		Quarters:      slices.Clone(c.Quarters),
		NetworkConfig: make(map[string]NetworkSettings, len(c.NetworkConfig)),
	}
	for name, ns := range c.NetworkConfig {
		out.NetworkConfig[name] = NetworkSettings{
			Vendors:  slices.Clone(ns.Vendors),
			Quarters: slices.Clone(ns.Quarters),
		}
	}
	return out
}

// Normalize returns a copy whose quarters are all structured.
func (c Configuration) Normalize() Configuration {
	out := c.Clone()
	for name, ns := range out.NetworkConfig {
		ns.Quarters = NormalizeQuarters(ns.Quarters)
		out.NetworkConfig[name] = ns
	}
	return out
}

// NetworkNames lists configured networks: the order of Networks first, then
// any extra networkConfig keys sorted by name.
func (c Configuration) NetworkNames() []string {
	names := make([]string, 0, len(c.NetworkConfig))
	seen := make(map[string]bool, len(c.NetworkConfig))
	for _, n := range c.Networks {
		if _, ok := c.NetworkConfig[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var extra []string
	for n := range c.NetworkConfig {
		if !seen[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// Network returns the settings of one network.
func (c Configuration) Network(name string) (NetworkSettings, bool) {
	ns, ok := c.NetworkConfig[name]
	return ns, ok
}

// AddNetwork registers a new network with its vendors and quarters.
func (c *Configuration) AddNetwork(name string, vendors []string, quarters []QuarterEntry) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNetworkNameRequired
	}
	if _, exists := c.NetworkConfig[name]; exists {
		return ErrNetworkExists
	}
	vendors = cleanList(vendors)
	if len(vendors) == 0 {
		return ErrVendorRequired
	}
	if c.NetworkConfig == nil {
		c.NetworkConfig = make(map[string]NetworkSettings)
	}
	c.NetworkConfig[name] = NetworkSettings{Vendors: vendors, Quarters: NormalizeQuarters(quarters)}
	c.Networks = appendUnique(c.Networks, name)
	c.Vendors = appendUnique(c.Vendors, vendors...)
	return nil
}

// RenameNetwork moves a network's settings under a new name.
func (c *Configuration) RenameNetwork(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	ns, ok := c.NetworkConfig[oldName]
	if !ok {
		return ErrNetworkNotFound
	}
	if newName == "" {
		return ErrNetworkNameRequired
	}
	if newName == oldName {
		return nil
	}
	if _, exists := c.NetworkConfig[newName]; exists {
		return ErrNetworkExists
	}
	delete(c.NetworkConfig, oldName)
	c.NetworkConfig[newName] = ns
	for i, n := range c.Networks {
		if n == oldName {
			c.Networks[i] = newName
		}
	}
	return nil
}

// DeleteNetwork removes a network and its settings.
func (c *Configuration) DeleteNetwork(name string) error {
	if _, ok := c.NetworkConfig[name]; !ok {
		return ErrNetworkNotFound
	}
	delete(c.NetworkConfig, name)
	c.Networks = lo.Without(c.Networks, name)
	return nil
}

// AddVendor appends a vendor to a network.
func (c *Configuration) AddVendor(network, vendor string) error {
	ns, ok := c.NetworkConfig[network]
	if !ok {
		return ErrNetworkNotFound
	}
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return ErrVendorRequired
	}
	ns.Vendors = appendUnique(ns.Vendors, vendor)
	c.NetworkConfig[network] = ns
	c.Vendors = appendUnique(c.Vendors, vendor)
	return nil
}

// RenameVendor renames a vendor inside one network.
func (c *Configuration) RenameVendor(network, oldName, newName string) error {
	ns, ok := c.NetworkConfig[network]
	if !ok {
		return ErrNetworkNotFound
	}
	idx := slices.Index(ns.Vendors, oldName)
	if idx < 0 {
		return ErrVendorNotFound
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrVendorRequired
	}
	ns.Vendors = slices.Clone(ns.Vendors)
	ns.Vendors[idx] = newName
	c.NetworkConfig[network] = ns
	c.Vendors = appendUnique(c.Vendors, newName)
	return nil
}

// RemoveVendor deletes a vendor from one network.
func (c *Configuration) RemoveVendor(network, vendor string) error {
	ns, ok := c.NetworkConfig[network]
	if !ok {
		return ErrNetworkNotFound
	}
	if !slices.Contains(ns.Vendors, vendor) {
		return ErrVendorNotFound
	}
	ns.Vendors = lo.Without(ns.Vendors, vendor)
	c.NetworkConfig[network] = ns
	return nil
}

// SetQuarters replaces the quarter definitions of a network after validating them.
func (c *Configuration) SetQuarters(network string, qs []Quarter) error {
	ns, ok := c.NetworkConfig[network]
	if !ok {
		return ErrNetworkNotFound
	}
	if err := ValidateQuarters(qs); err != nil {
		return err
	}
	entries := make([]QuarterEntry, len(qs))
	for i, q := range qs {
		entries[i] = StructuredQuarter(q)
	}
	ns.Quarters = entries
	c.NetworkConfig[network] = ns
	return nil
}

// BuildNetworkConfigFromBills adds a network entry for every network that
// appears on a bill but has no configuration yet. Vendors and quarters keep
// the order in which they were first seen.
func BuildNetworkConfigFromBills(bills []Bill, cfg Configuration) Configuration {
	out := cfg.Clone()
	if out.NetworkConfig == nil {
		out.NetworkConfig = make(map[string]NetworkSettings)
	}

	type collected struct {
		vendors  []string
		quarters []string
	}
	var order []string
	found := map[string]*collected{}
	for _, b := range bills {
		if b.Network == "" {
			continue
		}
		c, ok := found[b.Network]
		if !ok {
			c = &collected{}
			found[b.Network] = c
			order = append(order, b.Network)
		}
		if b.Vendor != "" {
			c.vendors = appendUnique(c.vendors, b.Vendor)
		}
		if q := b.QuarterLabel(); q != "" {
			c.quarters = appendUnique(c.quarters, q)
		}
	}

	for _, network := range order {
		if _, exists := out.NetworkConfig[network]; exists {
			continue
		}
		c := found[network]
		entries := lo.Map(c.quarters, func(q string, _ int) QuarterEntry { return LegacyQuarter(q) })
		out.NetworkConfig[network] = NetworkSettings{
			Vendors:  c.vendors,
			Quarters: NormalizeQuarters(entries),
		}
		out.Networks = appendUnique(out.Networks, network)
	}
	return out
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = appendUnique(out, v)
		}
	}
	return out
}
