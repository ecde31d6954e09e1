package optris

import (
	"encoding/binary"
	"image"
	"math"
)

const (
	// RawOffset is subtracted from a thermal sample before scaling to Celsius
	RawOffset = 1000

	// RawScale is the number of thermal sample counts per degree Celsius
	RawScale = 10

	// AbsoluteZero in Celsius.  Ambient temperatures below it in
	// RadiationParameters make the SDK use its own measurement.
	AbsoluteZero = -273.15

	// UseDeviceAmbient is an ambient temperature that tells the SDK to use
	// the device's own measurement
	UseDeviceAmbient = -300.
)

// Size is the (width, height) of an image in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Pixels returns width*height
func (s Size) Pixels() int {
	return s.Width * s.Height
}

func (s Size) valid() bool {
	return s.Width > 0 && s.Height > 0
}

// RawToCelsius converts a thermal sample to degrees Celsius
func RawToCelsius(v uint16) float64 {
	return (float64(v) - RawOffset) / RawScale
}

// CelsiusToRaw converts a temperature to the nearest thermal sample,
// saturating at the ends of the uint16 range
func CelsiusToRaw(c float64) uint16 {
	v := math.Round(c*RawScale + RawOffset)
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

// ThermalFrame is a row-major grid of radiometric samples, one per pixel
type ThermalFrame struct {
	Width  int
	Height int
	Data   []uint16
}

// Size returns the frame's dimensions
func (f ThermalFrame) Size() Size {
	return Size{Width: f.Width, Height: f.Height}
}

// Celsius returns the temperature of pixel (x, y), with (0, 0) the top left
func (f ThermalFrame) Celsius(x, y int) float64 {
	return RawToCelsius(f.Data[y*f.Width+x])
}

// Temperatures converts the whole frame to degrees Celsius, row major
func (f ThermalFrame) Temperatures() []float64 {
	out := make([]float64, len(f.Data))
	for i, v := range f.Data {
		out[i] = RawToCelsius(v)
	}
	return out
}

// Stats holds summary temperatures of a thermal frame, in Celsius
type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`

	// HotX and HotY locate the hottest pixel
	HotX int `json:"hotX"`
	HotY int `json:"hotY"`
}

// Stats computes the min, max and mean temperature of the frame
func (f ThermalFrame) Stats() Stats {
	if len(f.Data) == 0 {
		return Stats{}
	}
	lo, hi := f.Data[0], f.Data[0]
	hot := 0
	var sum float64
	for i, v := range f.Data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
			hot = i
		}
		sum += float64(v)
	}
	mean := sum / float64(len(f.Data))
	return Stats{
		Min:  RawToCelsius(lo),
		Max:  RawToCelsius(hi),
		Mean: (mean - RawOffset) / RawScale,
		HotX: hot % f.Width,
		HotY: hot / f.Width,
	}
}

// Gray16 returns the raw samples as a 16-bit grayscale image.
// The pixel buffer is a copy.
func (f ThermalFrame) Gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for i, v := range f.Data {
		binary.BigEndian.PutUint16(img.Pix[2*i:], v)
	}
	return img
}

// PaletteFrame is a row-major grid of interleaved R, G, B bytes
type PaletteFrame struct {
	Width  int
	Height int
	Pix    []byte
}

// Size returns the frame's dimensions
func (f PaletteFrame) Size() Size {
	return Size{Width: f.Width, Height: f.Height}
}

// RGBA returns the frame as an opaque RGBA image.  The pixel buffer is a copy.
func (f PaletteFrame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		img.Pix[4*i] = f.Pix[3*i]
		img.Pix[4*i+1] = f.Pix[3*i+1]
		img.Pix[4*i+2] = f.Pix[3*i+2]
		img.Pix[4*i+3] = 0xff
	}
	return img
}

// RadiationParameters describe the observed object to the SDK
type RadiationParameters struct {
	// Emissivity of the observed object, [0,1]
	Emissivity float64 `json:"emissivity"`

	// Transmissivity of the observed object, [0,1]
	Transmissivity float64 `json:"transmissivity"`

	// Ambient is the ambient temperature in Celsius.  Values below
	// AbsoluteZero make the SDK use its own measurement.
	Ambient float64 `json:"ambient"`
}

// Validate checks that emissivity and transmissivity are within [0,1]
func (r RadiationParameters) Validate() error {
	if !unit(r.Emissivity) || !unit(r.Transmissivity) || math.IsNaN(r.Ambient) {
		return ErrInvalidParameter
	}
	return nil
}

// AmbientFromDevice returns true if the SDK will measure ambient temperature itself
func (r RadiationParameters) AmbientFromDevice() bool {
	return r.Ambient < AbsoluteZero
}

func unit(f float64) bool {
	return f >= 0 && f <= 1 // false for NaN
}

// TemperatureRange is a measurement range of the camera in Celsius
type TemperatureRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}
