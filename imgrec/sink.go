package imgrec

import (
	"fmt"

	"github.com/astrogo/fitsio"

	"github.com/siyka-au/go-optris/acquire"
	"github.com/siyka-au/go-optris/optris"
)

// Sink records the frames published by an acquire.Poller while the recorder is active
type Sink struct {
	Rec *Recorder

	// Settings, if not nil, supplies the camera settings written to the FITS header
	Settings func() optris.Settings

	// Palette also records palette frames, as PNG
	Palette bool
}

// Consume writes f.Thermal to FITS and, if enabled, f.Palette to PNG
func (s Sink) Consume(f acquire.Frame) error {
	if !s.Rec.Active() {
		return nil
	}
	var st optris.Settings
	if s.Settings != nil {
		st = s.Settings()
	}
	cards := append(ThermalCards(st, f.At),
		fitsio.Card{Name: "FRAMESEQ", Value: int(f.Seq), Comment: "frame number since acquisition start"},
		fitsio.Card{Name: "CRC32", Value: fmt.Sprintf("%08x", f.CRC), Comment: "CRC-32 of the little endian samples"})
	if _, err := s.Rec.RecordThermal(f.Thermal, cards...); err != nil {
		return err
	}
	if s.Palette && len(f.Palette.Pix) > 0 {
		_, err := s.Rec.RecordPalette(f.Palette)
		return err
	}
	return nil
}
