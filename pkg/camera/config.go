package camera

import "github.com/teslashibe/go-psmove/pkg/driver"

// Settings are the camera options that can change while capturing.
type Settings struct {
	Deinterlace bool              `json:"deinterlace" yaml:"deinterlace"`
	Parameters  driver.Parameters `json:"parameters" yaml:"parameters"`

	// Lens calibration files. Empty paths disable undistortion.
	Intrinsics string `json:"intrinsics" yaml:"intrinsics"`
	Distortion string `json:"distortion" yaml:"distortion"`
}

// DefaultSettings lets the sensor run fully automatic.
func DefaultSettings() Settings {
	return Settings{
		Parameters: driver.Parameters{
			AutoExposure:     true,
			AutoGain:         true,
			AutoWhiteBalance: true,
			Exposure:         0x8000,
			Gain:             0,
			WhiteBalanceRed:  0x8000,
			WhiteBalanceGrn:  0x8000,
			WhiteBalanceBlue: 0x8000,
			Contrast:         0x8000,
			Brightness:       0x8000,
		},
	}
}

// TrackingSettings fixes a short exposure and no gain so that the glowing
// controller sphere stands out from the background.
func TrackingSettings() Settings {
	return Settings{
		Parameters: driver.Parameters{
			Exposure:         0x0800,
			Gain:             0,
			WhiteBalanceRed:  driver.ParameterMax,
			WhiteBalanceGrn:  driver.ParameterMax,
			WhiteBalanceBlue: driver.ParameterMax,
			Contrast:         0x8000,
			Brightness:       0x8000,
		},
	}
}

// InterlacedSettings is TrackingSettings for cameras delivering interlaced
// frames.
func InterlacedSettings() Settings {
	s := TrackingSettings()
	s.Deinterlace = true
	return s
}

// BrightSettings is a long manual exposure for dark rooms.
func BrightSettings() Settings {
	s := TrackingSettings()
	s.Parameters.Exposure = 0xC000
	s.Parameters.Gain = 0x4000
	return s
}

// Validate checks if the settings are usable.
// Returns a list of validation errors, or nil if valid.
func (s Settings) Validate() []string {
	var errs []string
	if (s.Intrinsics == "") != (s.Distortion == "") {
		errs = append(errs, "calibration needs both intrinsics and distortion files")
	}
	return errs
}
