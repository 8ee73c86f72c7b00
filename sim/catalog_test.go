package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_YAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	yaml := `objects:
  - name: chamber_heater
    heater: true
    fields:
      temperature: 30.0
      target: 0.0
  - name: led
    fields:
      on: false
      color: "white"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	require.Len(t, cat.Objects, 2)
	assert.Equal(t, "chamber_heater", cat.Objects[0].Name)
	assert.True(t, cat.Objects[0].Heater)
	assert.Equal(t, "led", cat.Objects[1].Name)

	s, err := NewStore(cat, 5)
	require.NoError(t, err)
	v, ok := s.Get("led", "color")
	require.True(t, ok)
	assert.Equal(t, String("white"), v)
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCatalogValidate(t *testing.T) {
	cases := []struct {
		name    string
		catalog Catalog
		wantErr bool
	}{
		{"empty", Catalog{}, true},
		{"empty name", Catalog{Objects: []ObjectSpec{{Name: ""}}}, true},
		{"duplicate", Catalog{Objects: []ObjectSpec{{Name: "a"}, {Name: "a"}}}, true},
		{"bad field value", Catalog{Objects: []ObjectSpec{
			{Name: "a", Fields: map[string]any{"x": []any{1}}},
		}}, true},
		{"default", DefaultCatalog(), false},
	}
	for _, tc := range cases {
		err := tc.catalog.Validate()
		if tc.wantErr {
			assert.Error(t, err, tc.name)
		} else {
			assert.NoError(t, err, tc.name)
		}
	}
}
