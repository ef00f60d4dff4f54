package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultWidth, cfg.Width)
	assert.Equal(t, DefaultHeight, cfg.Height)
	assert.Equal(t, DefaultFramerate, cfg.Framerate)
	assert.Equal(t, DefaultDriver, cfg.Driver)
	assert.Empty(t, cfg.Filename)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, cfg.Width)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.yml")
	data := []byte(`width: 320
height: 240
driver: ps3eye
calibration:
  intrinsics: /etc/psmove/intrinsics.xml
  distortion: /etc/psmove/distortion.xml
preview:
  addr: ":9000"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("PSMOVE_TRACKER_HEIGHT", "120")
	t.Setenv("PSMOVE_TRACKER_FILENAME", "/tmp/recording.avi")
	t.Setenv("PSMOVE_TRACKER_PREVIEW__MAX_FPS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 320, cfg.Width, "file overrides default")
	assert.Equal(t, 120, cfg.Height, "env overrides file")
	assert.Equal(t, "ps3eye", cfg.Driver)
	assert.Equal(t, "/tmp/recording.avi", cfg.Filename)
	assert.Equal(t, "/etc/psmove/intrinsics.xml", cfg.Calibration.Intrinsics)
	assert.Equal(t, ":9000", cfg.Preview.Addr)
	assert.Equal(t, 5.0, cfg.Preview.MaxFPS)
	assert.Equal(t, 80, cfg.Preview.Quality, "untouched default survives")
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.yml")
	require.NoError(t, os.WriteFile(path, []byte("width: [1, 2"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		width, height int
	}{
		{name: "configured", cfg: Config{Width: 320, Height: 240}, width: 320, height: 240},
		{name: "unset", cfg: Config{}, width: DefaultWidth, height: DefaultHeight},
		{name: "negative", cfg: Config{Width: -1, Height: 240}, width: DefaultWidth, height: 240},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, h := tc.cfg.Metrics()
			assert.Equal(t, tc.width, w)
			assert.Equal(t, tc.height, h)
		})
	}
}

func TestFPS(t *testing.T) {
	assert.Equal(t, DefaultFramerate, Config{}.FPS())
	assert.Equal(t, 30, Config{Framerate: 30}.FPS())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Width = 321
	cfg.Calibration.Intrinsics = "intrinsics.xml"
	cfg.LogLevel = "loud"

	errs := cfg.Validate()
	assert.Len(t, errs, 3)
}
