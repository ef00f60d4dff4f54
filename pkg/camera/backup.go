package camera

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-psmove/pkg/driver"
)

// settingsBackup is the on-disk layout of BackupSettings.
type settingsBackup struct {
	Driver   string           `yaml:"driver"`
	Controls map[string]int32 `yaml:"controls"`
}

// BackupSettings writes the device's native control values to path as YAML.
// Devices without control access are skipped without error.
func (c *Camera) BackupSettings(path string) error {
	if c == nil || c.closed {
		return ErrClosed
	}
	cb, ok := c.dev.(driver.ControlBackup)
	if !ok {
		c.logger.Debug("driver has no settings to back up")
		return nil
	}

	values, err := cb.Controls()
	if err != nil {
		return fmt.Errorf("read camera controls: %w", err)
	}
	data, err := yaml.Marshal(settingsBackup{Driver: c.drv.Name(), Controls: values})
	if err != nil {
		return fmt.Errorf("encode settings backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings backup: %w", err)
	}
	c.logger.Info("camera settings backed up", "path", path, "controls", len(values))
	return nil
}

// RestoreSettings applies a backup written by BackupSettings.
func (c *Camera) RestoreSettings(path string) error {
	if c == nil || c.closed {
		return ErrClosed
	}
	cb, ok := c.dev.(driver.ControlBackup)
	if !ok {
		c.logger.Debug("driver has no settings to restore")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings backup: %w", err)
	}
	var b settingsBackup
	if err := yaml.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decode settings backup %s: %w", path, err)
	}
	if b.Driver != c.drv.Name() {
		return fmt.Errorf("settings backup %s is for driver %q, camera uses %q", path, b.Driver, c.drv.Name())
	}
	if err := cb.RestoreControls(b.Controls); err != nil {
		return fmt.Errorf("restore camera controls: %w", err)
	}
	c.logger.Info("camera settings restored", "path", path, "controls", len(b.Controls))
	return nil
}
