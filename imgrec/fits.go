package imgrec

import (
	"errors"
	"io"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/siyka-au/go-optris/optris"
)

// HeaderVersion is written to the HDRVER card of every FITS file
const HeaderVersion = "1"

// WriteFits streams thermal frames to w as a FITS image, a cube if there is
// more than one frame.  The frames must share a size.  Samples are stored
// as uint16 via BZERO, untouched by any temperature conversion.
func WriteFits(w io.Writer, metadata []fitsio.Card, frames ...optris.ThermalFrame) error {
	if len(frames) == 0 {
		return errors.New("imgrec: no frames to write")
	}
	width, height := frames[0].Width, frames[0].Height
	for _, f := range frames[1:] {
		if f.Width != width || f.Height != height {
			return optris.ErrInvalidDimensions
		}
	}
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, height}
	if len(frames) > 1 {
		dims = append(dims, len(frames))
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int16, 0, width*height*len(frames))
	for _, f := range frames {
		for _, v := range f.Data {
			ints = append(ints, int16(int32(v)-32768))
		}
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// ThermalCards describes the conversion of samples to Celsius and the
// camera settings in FITS cards
func ThermalCards(s optris.Settings, at time.Time) []fitsio.Card {
	cards := []fitsio.Card{
		{Name: "HDRVER", Value: HeaderVersion, Comment: "header version"},
		{Name: "DATE", Value: at.UTC().Format("2006-01-02T15:04:05.000"), Comment: "acquisition time, UTC"},
		{Name: "BUNIT", Value: "raw", Comment: "Celsius = (raw - RAWOFS) / RAWSCL"},
		{Name: "RAWOFS", Value: optris.RawOffset},
		{Name: "RAWSCL", Value: optris.RawScale},
	}
	if s.Palette != nil {
		cards = append(cards, fitsio.Card{Name: "PALETTE", Value: s.Palette.String()})
	}
	if s.Scaling != nil {
		cards = append(cards, fitsio.Card{Name: "SCALING", Value: s.Scaling.String()})
	}
	if s.ShutterMode != nil {
		cards = append(cards, fitsio.Card{Name: "SHUTTER", Value: s.ShutterMode.String()})
	}
	if s.TemperatureRange != nil {
		cards = append(cards,
			fitsio.Card{Name: "TMIN", Value: s.TemperatureRange.Min, Comment: "measurement range minimum, C"},
			fitsio.Card{Name: "TMAX", Value: s.TemperatureRange.Max, Comment: "measurement range maximum, C"})
	}
	if r := s.Radiation; r != nil {
		cards = append(cards,
			fitsio.Card{Name: "EMISSIV", Value: r.Emissivity, Comment: "emissivity"},
			fitsio.Card{Name: "TRANSMIS", Value: r.Transmissivity, Comment: "transmissivity"},
			fitsio.Card{Name: "AMBIENT", Value: r.Ambient, Comment: "ambient temperature, C; below -273.15 measured"})
	}
	return cards
}
