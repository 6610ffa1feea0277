// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the file-configurable parameters of all subcommands.
// Command line flags take precedence over config file values.
type Config struct {
	Surface SurfaceConfig `toml:"surface" yaml:"surface"`
	Slice   SliceConfig   `toml:"slice" yaml:"slice"`
}

type SurfaceConfig struct {
	// Radius is the probe sphere radius of the alpha-shape
	// construction.
	Radius float64 `toml:"radius" yaml:"radius"`
}

type SliceConfig struct {
	// Normal is the cutting plane normal.
	Normal [3]float32 `toml:"normal" yaml:"normal"`

	// Distance moves the plane along the normal.
	Distance float32 `toml:"distance" yaml:"distance"`

	// Inverse keeps the opposite side of the plane.
	Inverse bool `toml:"inverse" yaml:"inverse"`
}

// DefaultConfig returns the built-in parameter defaults.
func DefaultConfig() Config {
	return Config{
		Surface: SurfaceConfig{Radius: 4},
		Slice:   SliceConfig{Normal: [3]float32{0, 0, 1}},
	}
}

// LoadConfig merges the given TOML or YAML file into cfg. The format
// is chosen by file extension.
func LoadConfig(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return nil
}
