package thermalcam

import (
	"image"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/siyka-au/go-optris/acquire"
	"github.com/siyka-au/go-optris/generichttp"
	"github.com/siyka-au/go-optris/util"
)

// frameImage is the palette frame, or the thermal frame if no palette was read
func frameImage(f acquire.Frame) image.Image {
	if len(f.Palette.Pix) > 0 {
		return f.Palette.RGBA()
	}
	return f.Thermal.Gray16()
}

// Stream serves the poller's frames as a multipart/x-mixed-replace MJPEG
// stream until the client goes away.
//
// query parameters quality, rotate and flip are as for GetPaletteImage;
// frames stops the stream after that many frames.
func Stream(p *acquire.Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		quality, err := parseQuality(q)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		o, err := parseOrientation(q)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		limit := 0
		if s := q.Get("frames"); s != "" {
			limit, err = strconv.Atoi(s)
			if err != nil || limit < 0 {
				http.Error(w, "frames must be a non-negative integer", http.StatusBadRequest)
				return
			}
		}
		enc := jpegEncoder(quality)

		c, unsubscribe := p.Subscribe()
		defer unsubscribe()
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		hdr := textproto.MIMEHeader{"Content-Type": {enc.contentType}}
		var last uint64
		for sent := 0; limit == 0 || sent < limit; {
			select {
			case <-r.Context().Done():
				return
			case <-c:
			}
			f, ok := p.Latest()
			if !ok || f.Seq == last {
				continue
			}
			last = f.Seq
			part, err := mw.CreatePart(hdr)
			if err != nil {
				return
			}
			if err = enc.encode(part, o.apply(frameImage(f))); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			sent++
		}
		mw.Close()
	}
}

// GetAcquisition returns the poller's counters and frame rate
func GetAcquisition(p *acquire.Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := p.Latest()
		s := struct {
			acquire.Stats
			FPS     float64 `json:"fps"`
			LastSeq uint64  `json:"lastSeq"`
		}{Stats: p.Stats(), FPS: p.FPS()}
		if ok {
			s.LastSeq = f.Seq
		}
		generichttp.RespondJSON(w, s)
	}
}

// HTTPAcquisition injects the stream and acquisition routes of a poller into a route table
func HTTPAcquisition(p *acquire.Poller, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/stream"}] = Stream(p)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/acquisition"}] = GetAcquisition(p)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/acquisition/fps"}] = generichttp.GetFloat(func() (float64, error) {
		return p.FPS(), nil
	})
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/acquisition/fps"}] = generichttp.SetFloat(func(f float64) error {
		p.SetFPS(f)
		return nil
	})
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/acquisition/palette-timeout"}] = generichttp.GetFloat(func() (float64, error) {
		return p.PaletteTimeout().Seconds(), nil
	})
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/acquisition/palette-timeout"}] = generichttp.SetFloat(func(secs float64) error {
		p.SetPaletteTimeout(util.SecsToDuration(secs))
		return nil
	})
}
