package thermalcam

import (
	"net/http"

	"github.com/siyka-au/go-optris/camera"
	"github.com/siyka-au/go-optris/generichttp"
	"github.com/siyka-au/go-optris/optris"
)

// The SDK cannot be queried for its configuration, so the getters below
// report what was last set through the Configurator and 404 before that.

// GetPalette returns the palette name as {"str": name}
func GetPalette(c camera.Configurator) http.HandlerFunc {
	return generichttp.GetString(func() (string, error) {
		p := c.Settings().Palette
		if p == nil {
			return "", optris.ErrParameterNotSet
		}
		return p.String(), nil
	})
}

// SetPalette sets the palette from {"str": name}, e.g. "iron"
func SetPalette(c camera.Configurator) http.HandlerFunc {
	return generichttp.SetString(func(s string) error {
		p, err := optris.ParsePalette(s)
		if err != nil {
			return err
		}
		return c.SetPalette(p)
	})
}

// GetPalettes lists the names of every palette
func GetPalettes(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, optris.Palettes())
}

// GetPaletteScaling returns the palette scaling method as {"str": name}
func GetPaletteScaling(c camera.Configurator) http.HandlerFunc {
	return generichttp.GetString(func() (string, error) {
		s := c.Settings().Scaling
		if s == nil {
			return "", optris.ErrParameterNotSet
		}
		return s.String(), nil
	})
}

// SetPaletteScaling sets the palette scaling method from {"str": name}, e.g. "minmax"
func SetPaletteScaling(c camera.Configurator) http.HandlerFunc {
	return generichttp.SetString(func(str string) error {
		s, err := optris.ParseScaling(str)
		if err != nil {
			return err
		}
		return c.SetPaletteScaling(s)
	})
}

// GetShutterMode returns the shutter mode as {"str": name}
func GetShutterMode(c camera.Configurator) http.HandlerFunc {
	return generichttp.GetString(func() (string, error) {
		m := c.Settings().ShutterMode
		if m == nil {
			return "", optris.ErrParameterNotSet
		}
		return m.String(), nil
	})
}

// SetShutterMode sets the shutter mode from {"str": "manual" | "auto"}
func SetShutterMode(c camera.Configurator) http.HandlerFunc {
	return generichttp.SetString(func(s string) error {
		m, err := optris.ParseShutterMode(s)
		if err != nil {
			return err
		}
		return c.SetShutterMode(m)
	})
}

// TriggerShutterFlag closes the shutter flag for a calibration
func TriggerShutterFlag(c camera.Configurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.TriggerShutterFlag(); err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetTemperatureRange returns the measurement range as {"min", "max"}
func GetTemperatureRange(c camera.Configurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := c.Settings().TemperatureRange
		if tr == nil {
			generichttp.Error(w, optris.ErrParameterNotSet)
			return
		}
		generichttp.RespondJSON(w, tr)
	}
}

// SetTemperatureRange sets the measurement range from {"min", "max"}, in Celsius
func SetTemperatureRange(c camera.Configurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := optris.TemperatureRange{}
		if err := generichttp.DecodeJSON(r, &tr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := c.SetTemperatureRange(tr.Min, tr.Max); err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetRadiationParameters returns {"emissivity", "transmissivity", "ambient"}
func GetRadiationParameters(c camera.Configurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rp := c.Settings().Radiation
		if rp == nil {
			generichttp.Error(w, optris.ErrParameterNotSet)
			return
		}
		generichttp.RespondJSON(w, rp)
	}
}

// SetRadiationParameters sets {"emissivity", "transmissivity", "ambient"}.
// An ambient below -273.15 lets the camera measure it.
func SetRadiationParameters(c camera.Configurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rp := optris.RadiationParameters{}
		if err := generichttp.DecodeJSON(r, &rp); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := c.SetRadiationParameters(rp); err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetSettings returns every setting applied so far
func GetSettings(c camera.Configurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		generichttp.RespondJSON(w, c.Settings())
	}
}

// HTTPConfigurator injects the settings routes for a configurator into a route table
func HTTPConfigurator(c camera.Configurator, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/palette"}] = GetPalette(c)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/palette"}] = SetPalette(c)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/palettes"}] = GetPalettes
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/palette-scaling"}] = GetPaletteScaling(c)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/palette-scaling"}] = SetPaletteScaling(c)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/shutter-mode"}] = GetShutterMode(c)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/shutter-mode"}] = SetShutterMode(c)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/shutter-flag"}] = TriggerShutterFlag(c)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/temperature-range"}] = GetTemperatureRange(c)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/temperature-range"}] = SetTemperatureRange(c)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/radiation-parameters"}] = GetRadiationParameters(c)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/radiation-parameters"}] = SetRadiationParameters(c)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/settings"}] = GetSettings(c)
}

// GetFocusMotorPosition returns the focus position in percent as {"f64": pos}, 404 if there is no motor
func GetFocusMotorPosition(f camera.Focuser) http.HandlerFunc {
	return generichttp.GetFloat(func() (float64, error) {
		pos, present, err := f.FocusMotorPosition()
		if err != nil {
			return 0, err
		}
		if !present {
			return 0, optris.ErrNoFocusMotor
		}
		return pos, nil
	})
}

// HTTPDaemon injects GET /daemon ({"bool": running}), POST /daemon/launch
// and POST /daemon/kill into a route table
func HTTPDaemon(d camera.DaemonController, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/daemon"}] = generichttp.GetBool(d.DaemonRunning)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/daemon/launch"}] = call(d.LaunchDaemon)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/daemon/kill"}] = call(d.KillDaemon)
}

func call(fcn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fcn(); err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
