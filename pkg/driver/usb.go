package driver

import (
	"fmt"

	"github.com/google/gousb"
)

// PS3 Eye USB identifiers.
const (
	PS3EyeVendor  gousb.ID = 0x1415
	PS3EyeProduct gousb.ID = 0x2000
)

// USBCamera describes a PS3 Eye found on the USB bus.
type USBCamera struct {
	Bus     int
	Address int
	Port    int
	Speed   string
}

func (c USBCamera) String() string {
	return fmt.Sprintf("bus %03d addr %03d port %d (%s)", c.Bus, c.Address, c.Port, c.Speed)
}

// ListPS3Eye enumerates connected PS3 Eye cameras without opening them.
func ListPS3Eye() ([]USBCamera, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []USBCamera
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor == PS3EyeVendor && desc.Product == PS3EyeProduct {
			found = append(found, USBCamera{
				Bus:     desc.Bus,
				Address: desc.Address,
				Port:    desc.Port,
				Speed:   desc.Speed.String(),
			})
		}
		return false
	})
	for _, d := range devs {
		d.Close()
	}
	if err != nil {
		return found, fmt.Errorf("usb enumeration: %w", err)
	}
	return found, nil
}
