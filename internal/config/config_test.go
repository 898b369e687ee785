package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neiam/apollos-kiosk/internal/domain"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Dark", cfg.CurrentTheme)
	assert.Equal(t, "localhost", cfg.MQTTHost)
	assert.Equal(t, "tcp://localhost:2883", cfg.ThemeHost)
	assert.Equal(t, "neiam/sync/theme", cfg.ThemeTopic)
	assert.Equal(t, "kiosk.db", cfg.SnapshotDB)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.ThemeSync)
	require.Len(t, cfg.Panels, domain.PanelCount)
}

func TestLoadParsesLayoutAndChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
panels:
  - [weather-home, gtfs-1]
  - []
  - [cal-family]
unassigned:
  - gbfs-station-12
current_theme: Forest
mqtt_host: broker.lan
mqtt_username: kiosk
mqtt_topic: neiam/kiosk/data
mqtt_theme_sync: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"weather-home", "gtfs-1"}, cfg.Panels[0])
	assert.Empty(t, cfg.Panels[1])
	assert.Equal(t, []string{"cal-family"}, cfg.Panels[2])
	assert.Equal(t, []string{"gbfs-station-12"}, cfg.Unassigned)
	assert.Equal(t, "Forest", cfg.CurrentTheme)
	assert.Equal(t, "broker.lan", cfg.MQTTHost)
	assert.Equal(t, "kiosk", cfg.MQTTUsername)
	assert.Equal(t, "neiam/kiosk/data", cfg.MQTTTopic)
	assert.True(t, cfg.ThemeSync)
}

func TestLoadNormalizesShortPanelList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("panels:\n  - [a]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Panels, domain.PanelCount)
	assert.Equal(t, []string{"a"}, cfg.Panels[0])
}

func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("KIOSK_TEST_BROKER", "env-broker.lan")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mqtt_host: ${KIOSK_TEST_BROKER}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-broker.lan", cfg.MQTTHost)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("panels: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyOverridesWin(t *testing.T) {
	cfg := &Config{MQTTHost: "file-host", MQTTTopic: "file-topic"}
	cfg.setDefaults()

	host := "flag-host"
	sync := true
	user := "theme-user"
	cfg.Apply(Overrides{
		MQTTHost:      &host,
		ThemeSync:     &sync,
		ThemeUsername: &user,
	})

	assert.Equal(t, "flag-host", cfg.MQTTHost)
	assert.Equal(t, "file-topic", cfg.MQTTTopic)
	assert.True(t, cfg.ThemeSync)
	require.NotNil(t, cfg.ThemeUsername)
	assert.Equal(t, "theme-user", *cfg.ThemeUsername)
}

func TestApplyEmptyOverridesLeaveConfigAlone(t *testing.T) {
	cfg := &Config{MQTTHost: "file-host"}
	cfg.setDefaults()

	cfg.Apply(Overrides{})

	assert.Equal(t, "file-host", cfg.MQTTHost)
	assert.Nil(t, cfg.ThemeUsername)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := &Config{CurrentTheme: "Sky"}
	cfg.setDefaults()
	cfg.RegisterUnassigned("weather-home")
	cfg.Assign("weather-home", 2)

	require.NoError(t, NewFileStore(path).Save(cfg))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Sky", loaded.CurrentTheme)
	assert.Equal(t, []string{"weather-home"}, loaded.Panels[2])
	assert.Empty(t, loaded.Unassigned)
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := &Config{}
	cfg.setDefaults()
	require.NoError(t, cfg.Save(path))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.yaml", entries[0].Name())
}
