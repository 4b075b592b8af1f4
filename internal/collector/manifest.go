package collector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes the upstream sources one reload run collects from. It
// is loaded from a YAML file so deployments can point at their own copies of
// the feeds without a rebuild.
type Manifest struct {
	Geospatial []GeospatialConfig `yaml:"geospatial"`
	Warehouse  WarehouseConfig    `yaml:"warehouse"`
	Cemeteries CemeteriesConfig   `yaml:"cemeteries"`
	Reference  ReferenceConfig    `yaml:"reference"`
}

// GeospatialConfig points at one feature-service query endpoint.
type GeospatialConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Type string `yaml:"type"`
}

// WarehouseConfig points at the corporate data warehouse.
type WarehouseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CemeteriesConfig points at the state cemeteries XML feed.
type CemeteriesConfig struct {
	URL string `yaml:"url"`
}

// ReferenceConfig points at the CSV reference file carrying per-facility
// website URLs and mobile flags.
type ReferenceConfig struct {
	Path string `yaml:"path"`
}

// LoadManifest reads and parses a sources manifest.
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read sources manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse sources manifest: %w", err)
	}
	return m, nil
}
