package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAliases(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"light", "Light"},
		{"light-soft", "Light"},
		{"dark", "Dark"},
		{"dark-soft", "Dark"},
		{"dark-dimmed", "Dark"},
		{"after-dark", "After Dark"},
		{"her", "Her"},
		{"forest", "Forest"},
		{"sky", "Sky"},
		{"clays", "Clays"},
		{"stones", "Stones"},
		{"solarized", "Solarized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	got, ok := Resolve("Dark-Dimmed")
	require.True(t, ok)
	assert.Equal(t, "Dark", got)

	got, ok = Resolve("SOLARIZED")
	require.True(t, ok)
	assert.Equal(t, "Solarized", got)
}

func TestResolveUnknown(t *testing.T) {
	for _, name := range []string{"neon", "darkish", "", "Dark "} {
		_, ok := Resolve(name)
		assert.False(t, ok, "name %q", name)
	}
}

func TestLookupFallsBackToDefault(t *testing.T) {
	assert.Equal(t, Default(), Lookup("not-a-theme"))
	assert.Equal(t, Default(), Lookup(""))

	sol := Lookup("Solarized")
	assert.Equal(t, "Solarized", sol.Name)
	assert.Equal(t, RGB{0, 43, 54}, sol.Background)
}

func TestCatalogCoversEveryAliasTarget(t *testing.T) {
	names := make(map[string]bool)
	for _, th := range Catalog() {
		names[th.Name] = true
	}
	for alias, canonical := range aliases {
		assert.True(t, names[canonical], "alias %q targets missing theme %q", alias, canonical)
	}
}

func TestDefaultInCatalog(t *testing.T) {
	found := false
	for _, th := range Catalog() {
		if th.Name == DefaultName {
			found = true
			assert.Equal(t, Default(), th)
		}
	}
	require.True(t, found)
}
