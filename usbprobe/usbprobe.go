// Package usbprobe finds thermal imagers attached over USB
package usbprobe

import (
	"errors"
	"fmt"
)

// OptrisVID is the vendor ID of the USB bridge in Optris PI and Xi imagers
const OptrisVID = 0x0403

// ImagerPIDs are the product IDs of imagers under OptrisVID
var ImagerPIDs = []uint16{0xde37}

// ErrNotBuilt is returned by List when the package was built without libusb
var ErrNotBuilt = errors.New("usbprobe: built without libusb, rebuild with cgo and -tags libusb")

// Device describes an attached imager
type Device struct {
	Bus          int    `json:"bus"`
	Address      int    `json:"address"`
	Vendor       uint16 `json:"vendor"`
	Product      uint16 `json:"product"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ProductName  string `json:"productName,omitempty"`
	Serial       string `json:"serial,omitempty"`
}

func (d Device) String() string {
	s := fmt.Sprintf("bus %03d device %03d: ID %04x:%04x", d.Bus, d.Address, d.Vendor, d.Product)
	if d.ProductName != "" {
		s += " " + d.ProductName
	}
	if d.Serial != "" {
		s += " (S/N " + d.Serial + ")"
	}
	return s
}

// IsImager returns true if the vendor and product IDs belong to a thermal imager
func IsImager(vid, pid uint16) bool {
	if vid != OptrisVID {
		return false
	}
	for _, p := range ImagerPIDs {
		if p == pid {
			return true
		}
	}
	return false
}
