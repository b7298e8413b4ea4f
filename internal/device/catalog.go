package device

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads a YAML catalog file without validating it.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading device catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parsing device catalog: %w", err)
	}
	return cat, nil
}

// DefaultCatalog is used when no catalog file is configured: one climate
// sensor type with an adjustable alert threshold, and a single device.
func DefaultCatalog() Catalog {
	minThreshold, maxThreshold := 0.0, 40.0
	return Catalog{
		Types: []Type{{
			ID:   "climate",
			Name: "Climate sensor",
			Topics: map[string]string{
				TelemetryKind: "devices/{device_id}/data",
				"threshold":   "devices/{device_id}/threshold",
			},
			Defaults: map[string]any{"threshold": 25},
			Rules: map[string]Rule{
				"threshold": {Kind: KindNumber, Min: &minThreshold, Max: &maxThreshold},
			},
		}},
		Devices: []Instance{{ID: "climate01", Type: "climate"}},
	}
}

// Load builds a Registry from the catalog at path, or from DefaultCatalog
// when path is empty.
func Load(path string) (*Registry, error) {
	cat := DefaultCatalog()
	if path != "" {
		var err error
		if cat, err = LoadCatalog(path); err != nil {
			return nil, err
		}
	}
	return NewRegistry(cat)
}
