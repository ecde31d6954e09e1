//go:build !cgo || !libusb

package usbprobe

// List returns ErrNotBuilt; this binary was built without libusb
func List() ([]Device, error) {
	return nil, ErrNotBuilt
}
