/*Package camera describes a standard set of interfaces for control of thermal imagers

The Imager type contains the basics, Configurator the settings of the false
color pipeline and the measurement, and Focuser and DaemonController the
features only some setups have.  optris.Session implements all of them.

*/
package camera

import (
	"context"
	"fmt"

	"github.com/siyka-au/go-optris/optris"
)

// Imager describes a minimal thermal camera with only the basics
type Imager interface {
	// ThermalImageSize gets the (W, H) of thermal frames
	ThermalImageSize() (optris.Size, error)

	// PaletteImageSize gets the (W, H) of palette frames
	PaletteImageSize() (optris.Size, error)

	// ThermalFrame gets a radiometric frame
	ThermalFrame(w, h int) (optris.ThermalFrame, error)

	// PaletteFrame gets a false color frame, waiting for it at most until ctx is done
	PaletteFrame(ctx context.Context, w, h int) (optris.PaletteFrame, error)
}

// FrameReader can fill existing frames, avoiding an allocation per frame
type FrameReader interface {
	ReadThermalFrame(*optris.ThermalFrame) error
	ReadPaletteFrame(context.Context, *optris.PaletteFrame) error
}

// Configurator describes a camera with a configurable false color pipeline and measurement
type Configurator interface {
	SetPalette(optris.Palette) error
	SetPaletteScaling(optris.Scaling) error
	SetShutterMode(optris.ShutterMode) error
	TriggerShutterFlag() error
	SetTemperatureRange(min, max int) error
	SetRadiationParameters(optris.RadiationParameters) error

	// Settings returns what was applied through the Configurator; the
	// cameras cannot be queried
	Settings() optris.Settings
}

// Focuser describes a camera which may have a motorized focus
type Focuser interface {
	// SetFocusMotorPosition moves the focus motor, in percent
	SetFocusMotorPosition(float64) error

	// FocusMotorPosition gets the focus motor position in percent,
	// present is false if there is no motor
	FocusMotorPosition() (pos float64, present bool, err error)
}

// DaemonController describes control of the process which serves the camera over the network
type DaemonController interface {
	LaunchDaemon() error
	DaemonRunning() (bool, error)
	KillDaemon() error
}

// Connection describes the state of the connection to a camera
type Connection interface {
	Mode() optris.Mode
	IsOpen() bool
}

// Bootup holds settings applied right after connecting.
// Empty strings, TempMin == TempMax and Emissivity == 0 leave the camera's
// own configuration in place.
type Bootup struct {
	Palette        string  `yaml:"Palette" koanf:"Palette"`
	Scaling        string  `yaml:"Scaling" koanf:"Scaling"`
	ShutterMode    string  `yaml:"ShutterMode" koanf:"ShutterMode"`
	TempMin        int     `yaml:"TempMin" koanf:"TempMin"`
	TempMax        int     `yaml:"TempMax" koanf:"TempMax"`
	Emissivity     float64 `yaml:"Emissivity" koanf:"Emissivity"`
	Transmissivity float64 `yaml:"Transmissivity" koanf:"Transmissivity"`
	Ambient        float64 `yaml:"Ambient" koanf:"Ambient"`
}

// Configure applies the bootup settings to c.  It stops at the first error.
func Configure(c Configurator, b Bootup) error {
	if b.Palette != "" {
		p, err := optris.ParsePalette(b.Palette)
		if err != nil {
			return err
		}
		if err = c.SetPalette(p); err != nil {
			return fmt.Errorf("setting palette: %w", err)
		}
	}
	if b.Scaling != "" {
		s, err := optris.ParseScaling(b.Scaling)
		if err != nil {
			return err
		}
		if err = c.SetPaletteScaling(s); err != nil {
			return fmt.Errorf("setting palette scaling: %w", err)
		}
	}
	if b.ShutterMode != "" {
		m, err := optris.ParseShutterMode(b.ShutterMode)
		if err != nil {
			return err
		}
		if err = c.SetShutterMode(m); err != nil {
			return fmt.Errorf("setting shutter mode: %w", err)
		}
	}
	if b.TempMin != b.TempMax {
		if err := c.SetTemperatureRange(b.TempMin, b.TempMax); err != nil {
			return fmt.Errorf("setting temperature range: %w", err)
		}
	}
	if b.Emissivity != 0 {
		p := optris.RadiationParameters{Emissivity: b.Emissivity, Transmissivity: b.Transmissivity, Ambient: b.Ambient}
		if err := c.SetRadiationParameters(p); err != nil {
			return fmt.Errorf("setting radiation parameters: %w", err)
		}
	}
	return nil
}
