package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ObjectSpec describes one printer object in the catalog: its name, whether it
// behaves as a heater (temperature converges toward target each tick), and its
// initial fields.
type ObjectSpec struct {
	Name   string         `yaml:"name"`
	Heater bool           `yaml:"heater"`
	Fields map[string]any `yaml:"fields"`
}

// Catalog is the fixed set of printer objects built at engine startup.
// Objects are never created or destroyed during a run.
type Catalog struct {
	Objects []ObjectSpec `yaml:"objects"`
}

// DefaultCatalog returns the built-in object catalog. It mirrors the objects a
// Moonraker client expects to find on a small printer: two heaters, a part fan,
// the toolhead, and the job bookkeeping objects.
func DefaultCatalog() Catalog {
	return Catalog{Objects: []ObjectSpec{
		{Name: "extruder", Heater: true, Fields: map[string]any{
			"temperature": 25.0, "target": 0.0, "power": 0.0,
		}},
		{Name: "heater_bed", Heater: true, Fields: map[string]any{
			"temperature": 25.0, "target": 0.0, "power": 0.0,
		}},
		{Name: "fan", Fields: map[string]any{
			"speed": 0.0,
		}},
		{Name: "toolhead", Fields: map[string]any{
			"position_x": 0.0, "position_y": 0.0, "position_z": 0.0, "homed_axes": "",
		}},
		{Name: "print_stats", Fields: map[string]any{
			"filename": "", "state": "standby",
			"print_duration": 0.0, "total_duration": 0.0, "filament_used": 0.0,
		}},
		{Name: "virtual_sdcard", Fields: map[string]any{
			"progress": 0.0, "is_active": false, "file_path": "",
		}},
	}}
}

// LoadCatalog reads a catalog override file. The YAML shape matches Catalog:
//
//	objects:
//	  - name: extruder
//	    heater: true
//	    fields: {temperature: 25.0, target: 0.0}
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Validate checks the catalog for empty or duplicate object names and for
// field values outside the number/bool/string variant.
func (c Catalog) Validate() error {
	if len(c.Objects) == 0 {
		return fmt.Errorf("catalog has no objects")
	}
	seen := make(map[string]bool, len(c.Objects))
	for _, spec := range c.Objects {
		if spec.Name == "" {
			return fmt.Errorf("catalog object with empty name")
		}
		if seen[spec.Name] {
			return fmt.Errorf("duplicate catalog object %q", spec.Name)
		}
		seen[spec.Name] = true
		for field, raw := range spec.Fields {
			if _, err := DecodeValue(raw); err != nil {
				return fmt.Errorf("object %q field %q: %w", spec.Name, field, err)
			}
		}
	}
	return nil
}
