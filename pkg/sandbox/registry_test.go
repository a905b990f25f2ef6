package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGrantStdlib(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.GrantStdlib("strings"))
	c, ok := r.Lookup("strings")
	require.True(t, ok)
	assert.Equal(t, "strings", c.Name)
	assert.Equal(t, "strings", c.Path)

	require.NoError(t, r.GrantStdlib("encoding/json"))
	c, ok = r.Lookup("json")
	require.True(t, ok)
	assert.Equal(t, "encoding/json", c.Path)
}

func TestRegistryGrantStdlibUnknown(t *testing.T) {
	r := NewRegistry()
	err := r.GrantStdlib("no/such/package")
	assert.ErrorIs(t, err, ErrUnknownCapability)
}

func TestRegistryRefusesNameCollision(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.GrantFuncs("genie/debug", map[string]any{
		"Log": func(string) {},
	}))

	err := r.GrantFuncs("other/debug", map[string]any{
		"Log": func(string) {},
	})
	assert.Error(t, err, "two capabilities must not share an identifier")

	// Re-granting the same path replaces, not errors.
	assert.NoError(t, r.GrantFuncs("genie/debug", map[string]any{
		"Log":  func(string) {},
		"Warn": func(string) {},
	}))
}

func TestRegistryNamesEnumerable(t *testing.T) {
	r := DefaultRegistry()

	names := r.Names()
	assert.Contains(t, names, "strings")
	assert.Contains(t, names, "json")
	assert.NotContains(t, names, "os", "side-effecting packages are not granted by default")
	assert.NotContains(t, names, "exec")

	// Sorted for stable display.
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("strings")
	assert.False(t, ok)
}
