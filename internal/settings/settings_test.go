package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedsDeviceIDAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := Load(path, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.Get().DeviceID)

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Get().DeviceID, reloaded.Get().DeviceID)
}

func TestUpdatePreservesDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := Load(path, nil)
	require.NoError(t, err)
	id := s.Get().DeviceID

	err = s.Update(func(c *Config) {
		c.DeviceID = "should-not-stick"
		c.Motion.MinArea = 999
	})
	require.NoError(t, err)
	assert.Equal(t, id, s.Get().DeviceID)
	assert.Equal(t, 999, s.Get().Motion.MinArea)
}

func TestResetRestoresDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := Load(path, nil)
	require.NoError(t, err)

	require.NoError(t, s.Update(func(c *Config) { c.Motion.MinArea = 12345 }))
	require.NoError(t, s.Reset("motion"))
	assert.Equal(t, defaults().Motion.MinArea, s.Get().Motion.MinArea)
}

func TestResetUnknownSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := Load(path, nil)
	require.NoError(t, err)
	assert.Error(t, s.Reset("nope"))
}
