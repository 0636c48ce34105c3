package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"billtracker/internal/core"
	"billtracker/internal/log"
)

var errNetworkNameTaken = errors.New("A network with this name already exists!")

// editConfig applies edit to a copy of the current configuration, saves it
// and reloads.
func (c *Commands) editConfig(ctx context.Context, success string, edit func(*core.Configuration) error) (Result, error) {
	var cfg core.Configuration
	if c.state != nil && c.state.Snapshot().Loaded() {
		cfg = c.state.Snapshot().Config.Clone()
	} else {
		loaded, err := c.backend.GetConfig(ctx)
		if err != nil {
			return Result{}, err
		}
		cfg = loaded.Normalize()
	}
	if err := edit(&cfg); err != nil {
		return Result{Level: LevelWarning, Message: err.Error()}, nil
	}
	if err := c.backend.SaveConfig(ctx, cfg); err != nil {
		return Result{}, fmt.Errorf("Failed to save configuration: %w", err)
	}
	c.logger.InfoContext(ctx, "Configuration saved",
		log.FieldOperation, log.OpUpdate,
		"networks", len(cfg.NetworkConfig))
	return c.afterWrite(ctx, Result{Level: LevelSuccess, Message: success})
}

// AddNetwork registers a network with its vendors and optional quarters.
func (c *Commands) AddNetwork(ctx context.Context, in Input) (Result, error) {
	name := in.Get("name")
	vendors := listValues(in, "vendors")
	quarters, err := quarterEntries(in)
	if err != nil {
		return Result{}, err
	}
	return c.editConfig(ctx, "Network added successfully", func(cfg *core.Configuration) error {
		return cfg.AddNetwork(name, vendors, quarters)
	})
}

// RenameNetwork moves a network under a new name.
func (c *Commands) RenameNetwork(ctx context.Context, in Input) (Result, error) {
	network, newName := in.Get("network"), in.Get("newName")
	return c.editConfig(ctx, "Network renamed successfully", func(cfg *core.Configuration) error {
		err := cfg.RenameNetwork(network, newName)
		if errors.Is(err, core.ErrNetworkExists) {
			return errNetworkNameTaken
		}
		return err
	})
}

// DeleteNetwork removes a network.
func (c *Commands) DeleteNetwork(ctx context.Context, in Input) (Result, error) {
	network := in.Get("network")
	return c.editConfig(ctx, "Network deleted successfully", func(cfg *core.Configuration) error {
		return cfg.DeleteNetwork(network)
	})
}

// AddVendor adds a vendor to a network.
func (c *Commands) AddVendor(ctx context.Context, in Input) (Result, error) {
	network, vendor := in.Get("network"), in.Get("vendor")
	return c.editConfig(ctx, "Vendor added successfully", func(cfg *core.Configuration) error {
		return cfg.AddVendor(network, vendor)
	})
}

// RenameVendor renames a vendor within a network.
func (c *Commands) RenameVendor(ctx context.Context, in Input) (Result, error) {
	network, vendor, newName := in.Get("network"), in.Get("vendor"), in.Get("newName")
	return c.editConfig(ctx, "Vendor updated successfully", func(cfg *core.Configuration) error {
		return cfg.RenameVendor(network, vendor, newName)
	})
}

// RemoveVendor drops a vendor from a network.
func (c *Commands) RemoveVendor(ctx context.Context, in Input) (Result, error) {
	network, vendor := in.Get("network"), in.Get("vendor")
	return c.editConfig(ctx, "Vendor deleted successfully", func(cfg *core.Configuration) error {
		return cfg.RemoveVendor(network, vendor)
	})
}

// SaveQuarters replaces the quarter definitions of a network.
func (c *Commands) SaveQuarters(ctx context.Context, in Input) (Result, error) {
	network := in.Get("network")
	var qs []core.Quarter
	if raw := in.Get("quarters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &qs); err != nil {
			return Result{}, fmt.Errorf("Invalid quarter definitions: %w", err)
		}
	}
	return c.editConfig(ctx, fmt.Sprintf("Quarters updated successfully for %s", network), func(cfg *core.Configuration) error {
		return cfg.SetQuarters(network, qs)
	})
}

// listValues accepts repeated keys, a JSON array, or a comma or newline
// separated string.
func listValues(in Input, key string) []string {
	vals := in.Values[key]
	if len(vals) == 1 {
		raw := strings.TrimSpace(vals[0])
		var arr []string
		if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &arr) == nil {
			return arr
		}
		return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })
	}
	return vals
}

// quarterEntries reads optional quarters for a new network: a JSON list of
// structured quarters or plain names, or a comma separated list of names.
func quarterEntries(in Input) ([]core.QuarterEntry, error) {
	raw := in.Get("quarters")
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var entries []core.QuarterEntry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("Invalid quarter definitions: %w", err)
		}
		return entries, nil
	}
	var entries []core.QuarterEntry
	for _, name := range listValues(in, "quarters") {
		if name = strings.TrimSpace(name); name != "" {
			entries = append(entries, core.LegacyQuarter(name))
		}
	}
	return entries, nil
}
