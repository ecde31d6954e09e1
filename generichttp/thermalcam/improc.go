// this file contains the small image processing and encoding utilities of the image routes
package thermalcam

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/siyka-au/go-optris/optris"
	"github.com/siyka-au/go-optris/util"
)

// DefaultJPEGQuality is used when no quality query parameter is given
const DefaultJPEGQuality = 90

// orientation is a clockwise rotation followed by an optional flip
type orientation struct {
	rotate int
	flip   string
}

// parseOrientation reads the rotate (0, 90, 180, 270; clockwise) and flip (h, v)
// query parameters
func parseOrientation(q url.Values) (orientation, error) {
	var o orientation
	if s := q.Get("rotate"); s != "" {
		deg, err := strconv.Atoi(s)
		if err != nil || deg%90 != 0 {
			return o, fmt.Errorf("%w: rotate must be a multiple of 90, got %q", optris.ErrInvalidParameter, s)
		}
		o.rotate = ((deg % 360) + 360) % 360
	}
	switch f := strings.ToLower(q.Get("flip")); f {
	case "", "h", "v":
		o.flip = f
	default:
		return o, fmt.Errorf("%w: flip must be h or v, got %q", optris.ErrInvalidParameter, f)
	}
	return o, nil
}

func (o orientation) identity() bool {
	return o.rotate == 0 && o.flip == ""
}

// apply returns img reoriented.  imaging rotates counter-clockwise.
func (o orientation) apply(img image.Image) image.Image {
	if o.identity() {
		return img
	}
	switch o.rotate {
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	}
	switch o.flip {
	case "h":
		img = imaging.FlipH(img)
	case "v":
		img = imaging.FlipV(img)
	}
	return img
}

// encoder writes an image in one format
type encoder struct {
	contentType string
	ext         string
	encode      func(io.Writer, image.Image) error
}

// parseEncoder reads the fmt (png, jpg) and quality (1-100, jpg only) query parameters
func parseEncoder(q url.Values) (encoder, error) {
	switch f := strings.ToLower(q.Get("fmt")); f {
	case "", "png":
		return encoder{"image/png", "png", png.Encode}, nil
	case "jpg", "jpeg":
		quality, err := parseQuality(q)
		if err != nil {
			return encoder{}, err
		}
		return jpegEncoder(quality), nil
	default:
		return encoder{}, fmt.Errorf("%w: unknown image format %q", optris.ErrInvalidParameter, f)
	}
}

func parseQuality(q url.Values) (int, error) {
	s := q.Get("quality")
	if s == "" {
		return DefaultJPEGQuality, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: quality %q", optris.ErrInvalidParameter, s)
	}
	return int(util.Clamp(f, 1, 100)), nil
}

func jpegEncoder(quality int) encoder {
	return encoder{"image/jpeg", "jpg", func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}}
}
