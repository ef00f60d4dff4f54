package camera

// Preset names for common configurations
const (
	PresetDefault    = "default"
	PresetTracking   = "tracking"
	PresetInterlaced = "interlaced"
	PresetBright     = "bright"
)

// Presets returns all available preset settings.
func Presets() map[string]Settings {
	return map[string]Settings{
		PresetDefault:    DefaultSettings(),
		PresetTracking:   TrackingSettings(),
		PresetInterlaced: InterlacedSettings(),
		PresetBright:     BrightSettings(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetTracking,
		PresetInterlaced,
		PresetBright,
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Settings {
	if s, ok := Presets()[name]; ok {
		return &s
	}
	return nil
}
