// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package curve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

// Axes is the full set of per-axis configuration, indexed by orientation.Axis.
type Axes [orientation.NumAxes]Axis

// profileFile is the on-disk layout: one entry per axis name.
type profileFile struct {
	Axes map[string]Axis `yaml:"axes"`
}

// LoadProfile reads axis configuration from a YAML file. A missing file
// yields identity axes; axes absent from the file stay identity.
func LoadProfile(path string) (Axes, error) {
	var axes Axes

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return axes, nil
	}
	if err != nil {
		return axes, fmt.Errorf("profile: read %s: %w", path, err)
	}

	var pf profileFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return axes, fmt.Errorf("profile: parse %s: %w", path, err)
	}

	for name, a := range pf.Axes {
		idx, err := orientation.ParseAxis(name)
		if err != nil {
			return axes, fmt.Errorf("profile: %w", err)
		}
		if err := a.Curve.Validate(); err != nil {
			return axes, fmt.Errorf("profile: %s curve: %w", idx, err)
		}
		if err := a.CurveAlt.Validate(); err != nil {
			return axes, fmt.Errorf("profile: %s curve_alt: %w", idx, err)
		}
		a.ClearActive()
		axes[idx] = a
	}
	return axes, nil
}

// SaveProfile writes axes to path as YAML. Branch flags are not persisted.
func SaveProfile(path string, axes Axes) error {
	pf := profileFile{Axes: make(map[string]Axis, len(axes))}
	for i, a := range axes {
		pf.Axes[orientation.Axis(i).String()] = a
	}

	b, err := yaml.Marshal(pf)
	if err != nil {
		return fmt.Errorf("profile: encode: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("profile: write %s: %w", path, err)
	}
	return nil
}
