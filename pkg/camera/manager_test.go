package camera

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/teslashibe/go-psmove/pkg/driver"
)

func TestManager_UpdateSettings(t *testing.T) {
	m := NewManager(DefaultSettings())

	var applied []Settings
	m.OnChange = func(s Settings) error {
		applied = append(applied, s)
		return nil
	}

	err := m.UpdateSettings(map[string]interface{}{
		"deinterlace": true,
		"exposure":    float64(1234),
		"auto_gain":   false,
		"gain":        json.Number("99"),
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	s := m.Settings()
	if !s.Deinterlace || s.Parameters.Exposure != 1234 || s.Parameters.AutoGain || s.Parameters.Gain != 99 {
		t.Errorf("unexpected settings %+v", s)
	}
	if len(applied) != 1 {
		t.Errorf("OnChange called %d times, want 1", len(applied))
	}
}

func TestManager_Preset(t *testing.T) {
	m := NewManager(Settings{Intrinsics: "i.xml", Distortion: "d.xml"})

	if err := m.UpdateSettings(map[string]interface{}{"preset": PresetInterlaced, "exposure": 42}); err != nil {
		t.Fatal(err)
	}
	s := m.Settings()
	if !s.Deinterlace {
		t.Error("interlaced preset must enable deinterlacing")
	}
	if s.Parameters.Exposure != 42 {
		t.Errorf("override lost, exposure = %d", s.Parameters.Exposure)
	}
	if s.Intrinsics != "i.xml" || s.Distortion != "d.xml" {
		t.Error("preset must keep the calibration files")
	}

	if err := m.UpdateSettings(map[string]interface{}{"preset": "sepia"}); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager(DefaultSettings())
	before := m.Settings()

	tests := []map[string]interface{}{
		{"zoom": 2},
		{"exposure": -1},
		{"exposure": 70000},
		{"deinterlace": "yes"},
		{"intrinsics": "only-one.xml"},
	}
	for _, params := range tests {
		if err := m.UpdateSettings(params); err == nil {
			t.Errorf("UpdateSettings(%v) succeeded", params)
		}
	}
	if m.Settings() != before {
		t.Error("rejected updates must not change settings")
	}
}

func TestManager_CallbackFailure(t *testing.T) {
	m := NewManager(DefaultSettings())
	boom := errors.New("boom")
	m.OnChange = func(Settings) error { return boom }

	err := m.SetSettings(TrackingSettings())
	if !errors.Is(err, boom) {
		t.Fatalf("SetSettings error = %v, want wrapped boom", err)
	}
	if m.Settings() != DefaultSettings() {
		t.Error("settings changed although the callback failed")
	}
}

func TestManager_SettingsJSON(t *testing.T) {
	m := NewManager(InterlacedSettings())
	js := m.SettingsJSON()
	if js["deinterlace"] != true {
		t.Errorf("deinterlace = %v", js["deinterlace"])
	}
	params, ok := js["parameters"].(map[string]interface{})
	if !ok || params["exposure"] != float64(0x0800) {
		t.Errorf("parameters = %v", js["parameters"])
	}
}

func TestPresets(t *testing.T) {
	presets := Presets()
	for _, name := range PresetNames() {
		if _, ok := presets[name]; !ok {
			t.Errorf("preset %q listed but not defined", name)
		}
		if p := GetPreset(name); p == nil || len(p.Validate()) > 0 {
			t.Errorf("preset %q is not valid", name)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("GetPreset returned a value for an unknown name")
	}
}

func TestCamera_Apply(t *testing.T) {
	md := driver.NewMock(1)
	c := openMock(t, md, 64, 48)

	s := TrackingSettings()
	s.Deinterlace = true
	s.Intrinsics, s.Distortion = intrinsicsXML, distortionXML
	if err := c.Apply(s); err != nil {
		t.Fatal(err)
	}
	if !c.Deinterlace() || !c.Calibrated() {
		t.Error("settings not applied")
	}
	if got := md.Devices()[0].Parameters(); len(got) != 1 || got[0] != s.Parameters {
		t.Errorf("device parameters = %v", got)
	}

	s.Intrinsics, s.Distortion = "", ""
	if err := c.Apply(s); err != nil {
		t.Fatal(err)
	}
	if c.Calibrated() {
		t.Error("empty calibration paths must reset undistortion")
	}

	s.Intrinsics, s.Distortion = "missing.xml", "missing.xml"
	if err := c.Apply(s); err == nil {
		t.Error("expected error for missing calibration files")
	}
}

func TestCamera_ApplyFailureLeavesCameraUnchanged(t *testing.T) {
	md := driver.NewMock(1)
	c := openMock(t, md, 64, 48)
	m := NewManager(DefaultSettings())
	m.OnChange = c.Apply
	if err := m.SetSettings(DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	applied := len(md.Devices()[0].Parameters())

	err := m.UpdateSettings(map[string]interface{}{
		"deinterlace": true,
		"exposure":    float64(0x0800),
		"intrinsics":  "/nope/a.xml",
		"distortion":  "/nope/b.xml",
	})
	if err == nil {
		t.Fatal("expected error for missing calibration files")
	}
	if c.Deinterlace() != m.Settings().Deinterlace {
		t.Errorf("camera deinterlace = %v, stored = %v", c.Deinterlace(), m.Settings().Deinterlace)
	}
	if c.Calibrated() {
		t.Error("camera calibrated after a failed update")
	}
	if got := len(md.Devices()[0].Parameters()); got != applied {
		t.Errorf("device parameters written %d times, want %d", got, applied)
	}
}
