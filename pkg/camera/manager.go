package camera

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teslashibe/go-psmove/pkg/calibration"
)

// Manager holds the current camera settings and handles updates.
type Manager struct {
	settings Settings
	mu       sync.RWMutex

	// Callback when settings change (for applying to the camera)
	OnChange func(s Settings) error
}

// NewManager creates a manager starting from initial.
func NewManager(initial Settings) *Manager {
	return &Manager{settings: initial}
}

// Settings returns the current settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// SetSettings validates and stores s, then notifies OnChange.
// The stored settings are left unchanged when the callback fails.
func (m *Manager) SetSettings(s Settings) error {
	if errs := s.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	m.mu.RLock()
	callback := m.OnChange
	m.mu.RUnlock()

	if callback != nil {
		if err := callback(s); err != nil {
			return fmt.Errorf("failed to apply settings: %w", err)
		}
	}

	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return nil
}

// UpdateSettings updates specific fields of the settings.
// Accepts a map of field names to values; "preset" replaces the base.
func (m *Manager) UpdateSettings(params map[string]interface{}) error {
	s := m.Settings()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		// Calibration files are not part of a preset.
		preset.Intrinsics, preset.Distortion = s.Intrinsics, s.Distortion
		s = *preset
	}

	p := &s.Parameters
	for key, value := range params {
		var ok bool
		switch key {
		case "preset":
			ok = true
		case "deinterlace":
			s.Deinterlace, ok = value.(bool)
		case "auto_exposure":
			p.AutoExposure, ok = value.(bool)
		case "auto_gain":
			p.AutoGain, ok = value.(bool)
		case "auto_white_balance":
			p.AutoWhiteBalance, ok = value.(bool)
		case "exposure":
			p.Exposure, ok = toUint16(value)
		case "gain":
			p.Gain, ok = toUint16(value)
		case "wb_red":
			p.WhiteBalanceRed, ok = toUint16(value)
		case "wb_green":
			p.WhiteBalanceGrn, ok = toUint16(value)
		case "wb_blue":
			p.WhiteBalanceBlue, ok = toUint16(value)
		case "contrast":
			p.Contrast, ok = toUint16(value)
		case "brightness":
			p.Brightness, ok = toUint16(value)
		case "intrinsics":
			s.Intrinsics, ok = value.(string)
		case "distortion":
			s.Distortion, ok = value.(string)
		default:
			return fmt.Errorf("unknown setting: %s", key)
		}
		if !ok {
			return fmt.Errorf("invalid value for %s: %v", key, value)
		}
	}

	return m.SetSettings(s)
}

// SettingsJSON returns the current settings as a map for JSON serialization.
func (m *Manager) SettingsJSON() map[string]interface{} {
	s := m.Settings()

	// Convert to map via JSON for consistent serialization
	data, _ := json.Marshal(s)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	return result
}

// Apply brings the camera in line with s. Calibration files are only reread
// when their paths change. Nothing on the camera changes unless every step
// succeeds.
func (c *Camera) Apply(s Settings) error {
	if c == nil || c.closed {
		return ErrClosed
	}

	paths := [2]string{s.Intrinsics, s.Distortion}
	reset := paths == [2]string{}
	var (
		cal  *calibration.Calibration
		maps *undistortMaps
	)
	if !reset && c.calibPaths != paths {
		var err error
		cal, maps, err = c.prepareCalibrationFiles(s.Intrinsics, s.Distortion)
		if err != nil {
			return err
		}
	}

	if err := c.SetParameters(s.Parameters); err != nil {
		maps.Close()
		return err
	}

	switch {
	case reset:
		c.ResetCalibration()
	case maps != nil:
		c.commitCalibration(cal, maps, paths)
	}
	c.SetDeinterlace(s.Deinterlace)
	return nil
}

// Helper functions for type conversion

func toUint16(v interface{}) (uint16, bool) {
	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int64:
		n = val
	case float64:
		n = int64(val)
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	default:
		return 0, false
	}
	if n < 0 || n > 0xFFFF {
		return 0, false
	}
	return uint16(n), true
}
