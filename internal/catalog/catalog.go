// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package catalog loads and maintains the lab catalog (labs.yaml). The
// catalog is derived from the lab directories themselves; discovery walks the
// lab root, parses each lab-guide.md and persists what it finds.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/labctl/labctl/internal/log"
	"github.com/labctl/labctl/internal/pricing"
)

// ConfigFileName is the catalog file, kept under the lab root's config
// directory.
const ConfigFileName = "labs.yaml"

// Lab is one catalog entry.
type Lab struct {
	Name          string   `yaml:"name" json:"name"`
	Category      string   `yaml:"category" json:"category"`
	Path          string   `yaml:"path" json:"path"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	Difficulty    string   `yaml:"difficulty" json:"difficulty"`
	Duration      int      `yaml:"duration" json:"duration"`
	EstimatedCost float64  `yaml:"estimated_cost" json:"estimated_cost"`
	Prerequisites []string `yaml:"prerequisites" json:"prerequisites"`
	AWSServices   []string `yaml:"aws_services" json:"aws_services"`
}

// Catalog is the full labs.yaml document.
type Catalog struct {
	Labs map[string]Lab `yaml:"labs" json:"labs"`
}

// path returns the catalog file location under the lab root.
func path(labDir string) string {
	return filepath.Join(labDir, "config", ConfigFileName)
}

// Load reads the catalog for a lab root. If labs.yaml does not exist yet, a
// discovery pass runs and its result is persisted. Estimated costs are always
// recalculated on load so rate table changes take effect without a rediscover.
func Load(labDir string) (*Catalog, error) {
	p := path(labDir)

	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("catalog not found, discovering: path=%s", p)
			return Discover(labDir)
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for id, lab := range c.Labs {
		lab.EstimatedCost = pricing.EstimateStandard(lab.AWSServices, lab.Duration)
		c.Labs[id] = lab
	}

	return &c, nil
}

// Save writes the catalog beneath the lab root, creating the config
// directory if needed.
func (c *Catalog) Save(labDir string) error {
	p := path(labDir)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(p, raw, 0o644); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write catalog: %w", err)
	}

	log.Debugf("catalog saved: path=%s labs=%d", p, len(c.Labs))
	return nil
}

// Get returns the lab with the given id.
func (c *Catalog) Get(labID string) (Lab, bool) {
	lab, ok := c.Labs[labID]
	return lab, ok
}

// UpdateCosts recalculates estimated costs for all labs, returning the ids
// whose estimate moved by more than a cent. The caller decides whether to
// Save.
func (c *Catalog) UpdateCosts() []string {
	var updated []string
	for id, lab := range c.Labs {
		newCost := pricing.EstimateStandard(lab.AWSServices, lab.Duration)
		if diff := lab.EstimatedCost - newCost; diff > 0.01 || diff < -0.01 {
			log.Debugf("cost updated: lab=%s old=%.2f new=%.2f", id, lab.EstimatedCost, newCost)
			lab.EstimatedCost = newCost
			c.Labs[id] = lab
			updated = append(updated, id)
		}
	}
	return updated
}
