//go:build cgo && libusb

package usbprobe

import (
	"github.com/google/gousb"
)

// List returns the imagers attached to this computer
func List() ([]Device, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return IsImager(uint16(desc.Vendor), uint16(desc.Product))
	})
	// OpenDevices returns what it could open along with the error
	if err != nil && len(devs) == 0 {
		return nil, err
	}
	out := make([]Device, 0, len(devs))
	for _, dev := range devs {
		d := Device{
			Bus:     dev.Desc.Bus,
			Address: dev.Desc.Address,
			Vendor:  uint16(dev.Desc.Vendor),
			Product: uint16(dev.Desc.Product),
		}
		// string descriptors need permission to the device, leave them blank without it
		d.Manufacturer, _ = dev.Manufacturer()
		d.ProductName, _ = dev.Product()
		d.Serial, _ = dev.SerialNumber()
		dev.Close()
		out = append(out, d)
	}
	return out, nil
}
