// Package thermalcam exposes thermal imagers over HTTP
package thermalcam

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/siyka-au/go-optris/acquire"
	"github.com/siyka-au/go-optris/camera"
	"github.com/siyka-au/go-optris/generichttp"
	"github.com/siyka-au/go-optris/imgrec"
	"github.com/siyka-au/go-optris/optris"
	"github.com/siyka-au/go-optris/usbprobe"
	"github.com/siyka-au/go-optris/util"
)

func init() {
	generichttp.StatusFor(optris.ErrNoActiveSession, http.StatusConflict)
	generichttp.StatusFor(optris.ErrSessionAlreadyOpen, http.StatusConflict)
	generichttp.StatusFor(optris.ErrInvalidDimensions, http.StatusBadRequest)
	generichttp.StatusFor(optris.ErrInvalidRange, http.StatusBadRequest)
	generichttp.StatusFor(optris.ErrInvalidParameter, http.StatusBadRequest)
	generichttp.StatusFor(optris.ErrFatalConnection, http.StatusBadGateway)
	generichttp.StatusFor(optris.ErrNoFocusMotor, http.StatusNotFound)
	generichttp.StatusFor(optris.ErrParameterNotSet, http.StatusNotFound)
	generichttp.StatusFor(optris.ErrNotBuilt, http.StatusNotImplemented)
	generichttp.StatusFor(usbprobe.ErrNotBuilt, http.StatusNotImplemented)
}

// GetThermalImageSize returns the size of thermal frames as {"width", "height"}
func GetThermalImageSize(c camera.Imager) http.HandlerFunc {
	return getSize(c.ThermalImageSize)
}

// GetPaletteImageSize returns the size of palette frames as {"width", "height"}
func GetPaletteImageSize(c camera.Imager) http.HandlerFunc {
	return getSize(c.PaletteImageSize)
}

func getSize(fcn func() (optris.Size, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sz, err := fcn()
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		generichttp.RespondJSON(w, sz)
	}
}

func thermalFrame(c camera.Imager) (optris.ThermalFrame, error) {
	sz, err := c.ThermalImageSize()
	if err != nil {
		return optris.ThermalFrame{}, err
	}
	return c.ThermalFrame(sz.Width, sz.Height)
}

// settingsOf returns the camera's applied settings, if it can report them
func settingsOf(c interface{}) optris.Settings {
	if cfg, ok := c.(camera.Configurator); ok {
		return cfg.Settings()
	}
	return optris.Settings{}
}

// tee returns a writer which also writes to the recorder's next file when
// the recorder is active.  done closes that file.
func tee(w io.Writer, rec *imgrec.Recorder, ext string) (out io.Writer, done func() error, err error) {
	if rec == nil || !rec.Active() {
		return w, func() error { return nil }, nil
	}
	f, _, err := rec.Create(ext)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(w, f), f.Close, nil
}

// GetThermalImage reads a thermal frame and returns it on a GET request.
//
// the format is given by the fmt query parameter:
//
//	png  (default) 16-bit grayscale of the raw samples
//	fits raw samples with the conversion to Celsius and the settings in the header
//	json {"width", "height", "celsius": [...]}, row major
//
// png and fits images are also written to the recorder, if it is active
func GetThermalImage(c camera.Imager, rec *imgrec.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("fmt")
		if format == "" {
			format = "png"
		}
		if format != "png" && format != "fits" && format != "json" {
			http.Error(w, fmt.Sprintf("unknown format %q, use png, fits or json", format), http.StatusBadRequest)
			return
		}
		f, err := thermalFrame(c)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		at := time.Now()
		if format == "json" {
			generichttp.RespondJSON(w, struct {
				Width   int       `json:"width"`
				Height  int       `json:"height"`
				Celsius []float64 `json:"celsius"`
			}{f.Width, f.Height, f.Temperatures()})
			return
		}

		w2, done, err := tee(w, rec, format)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		hdr := w.Header()
		if format == "fits" {
			hdr.Set("Content-Type", "image/fits")
			hdr.Set("Content-Disposition", "attachment; filename=thermal.fits")
			err = imgrec.WriteFits(w2, imgrec.ThermalCards(settingsOf(c), at), f)
		} else {
			hdr.Set("Content-Type", "image/png")
			err = png.Encode(w2, f.Gray16())
		}
		if cerr := done(); err == nil {
			err = cerr
		}
		if err != nil {
			// headers are gone, the client sees a truncated body
			generichttp.Error(w, err)
		}
	}
}

// GetPaletteImage reads a false color frame and returns it on a GET request.
//
// query parameters:
//
//	fmt     png (default) or jpg
//	quality jpg quality, 1-100
//	timeout how long to wait for the SDK to produce a frame, any
//	        time.ParseDuration input; if no unit is appended, seconds
//	rotate  0, 90, 180 or 270 degrees clockwise
//	flip    h or v, after rotating
func GetPaletteImage(c camera.Imager, rec *imgrec.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		enc, err := parseEncoder(q)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		o, err := parseOrientation(q)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		ctx := r.Context()
		if s := q.Get("timeout"); s != "" {
			d, err := util.ParseDuration(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		sz, err := c.PaletteImageSize()
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		f, err := c.PaletteFrame(ctx, sz.Width, sz.Height)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		w2, done, err := tee(w, rec, enc.ext)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		w.Header().Set("Content-Type", enc.contentType)
		err = enc.encode(w2, o.apply(f.RGBA()))
		if cerr := done(); err == nil {
			err = cerr
		}
		if err != nil {
			generichttp.Error(w, err)
		}
	}
}

// TemperatureStats summarizes a thermal frame in Celsius
type TemperatureStats struct {
	optris.Stats

	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	P95    float64 `json:"p95"`
}

// ComputeStats computes the summary of a frame
func ComputeStats(f optris.ThermalFrame) (TemperatureStats, error) {
	out := TemperatureStats{Stats: f.Stats()}
	temps := f.Temperatures()
	var err error
	if out.Median, err = stats.Median(temps); err != nil {
		return out, err
	}
	if out.StdDev, err = stats.StandardDeviation(temps); err != nil {
		return out, err
	}
	out.P95, err = stats.Percentile(temps, 95)
	return out, err
}

// GetTemperatureStats reads a thermal frame and returns its TemperatureStats
func GetTemperatureStats(c camera.Imager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := thermalFrame(c)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		ts, err := ComputeStats(f)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		generichttp.RespondJSON(w, ts)
	}
}

// GetConnection reports the connection mode and whether a session is open
func GetConnection(c camera.Connection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		generichttp.RespondJSON(w, struct {
			Mode string `json:"mode"`
			Open bool   `json:"open"`
		}{c.Mode().String(), c.IsOpen()})
	}
}

// GetUSBDevices lists the imagers attached over USB
func GetUSBDevices(list func() ([]usbprobe.Device, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		devs, err := list()
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		if devs == nil {
			devs = []usbprobe.Device{}
		}
		generichttp.RespondJSON(w, devs)
	}
}

// HTTPCamera wraps a thermal imager in an HTTP interface
type HTTPCamera struct {
	Cam camera.Imager

	// Poller, if not nil, serves the stream and acquisition routes
	Poller *acquire.Poller

	// Recorder, if not nil, records images served over HTTP
	Recorder *imgrec.Recorder

	RouteTable generichttp.RouteTable
}

// NewHTTPCamera returns a new HTTP wrapper around an imager.  Routes are
// added for each of the camera package's interfaces cam implements, and for
// the poller and recorder when they are not nil.
func NewHTTPCamera(cam camera.Imager, p *acquire.Poller, rec *imgrec.Recorder) HTTPCamera {
	h := HTTPCamera{Cam: cam, Poller: p, Recorder: rec}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/thermal-image-size"}: GetThermalImageSize(cam),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/palette-image-size"}: GetPaletteImageSize(cam),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/thermal-image"}:      GetThermalImage(cam, rec),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/palette-image"}:      GetPaletteImage(cam, rec),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/temperature-stats"}:  GetTemperatureStats(cam),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/usb-devices"}:        GetUSBDevices(usbprobe.List),
	}
	h.RouteTable = rt
	if cfg, ok := interface{}(cam).(camera.Configurator); ok {
		HTTPConfigurator(cfg, rt)
	}
	if foc, ok := interface{}(cam).(camera.Focuser); ok {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/focus-motor-position"}] = GetFocusMotorPosition(foc)
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/focus-motor-position"}] = generichttp.SetFloat(foc.SetFocusMotorPosition)
	}
	if d, ok := interface{}(cam).(camera.DaemonController); ok {
		HTTPDaemon(d, rt)
	}
	if conn, ok := interface{}(cam).(camera.Connection); ok {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/connection"}] = GetConnection(conn)
	}
	if p != nil {
		HTTPAcquisition(p, rt)
	}
	if rec != nil {
		imgrec.NewHTTPWrapper(rec).Inject(h)
	}
	return h
}

// RT satisfies generichttp.HTTPer
func (h HTTPCamera) RT() generichttp.RouteTable {
	return h.RouteTable
}
