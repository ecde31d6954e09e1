// Package imgrec contains an image recorder used to automatically save images to disk.
package imgrec

import (
	"fmt"
	"go/types"
	"image/png"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/siyka-au/go-optris/generichttp"
	"github.com/siyka-au/go-optris/optris"
)

// Recorder records image sequences with incrementing filenames in yyyy-mm-dd subfolders.
// Thermal frames are written as FITS and palette frames as PNG.
// It is safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	// counters holds the number of the next file per extension
	counters map[string]int

	// counted is the folder and prefix counters were scanned for
	counted string

	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// Enabled is a flag unused by this struct that allows consumers to disable its use in their code
	Enabled bool

	// now is time.Now, replaced in tests
	now func() time.Time
}

// New returns an enabled recorder writing to root
func New(root, prefix string) *Recorder {
	return &Recorder{Root: root, Prefix: prefix, Enabled: true}
}

// Active returns true if the recorder is enabled and has a root folder
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Enabled && r.Root != ""
}

// folder returns the yyyy-mm-dd folder for today, creating it
func (r *Recorder) folder() (string, error) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	fldr := filepath.Join(r.Root, now().Format("2006-01-02"))
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// Create opens the next file with extension ext, e.g. "fits", for writing.
// The caller must close it.
func (r *Recorder) Create(ext string) (io.WriteCloser, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Root == "" {
		return nil, "", fmt.Errorf("imgrec: no root folder set")
	}
	fldr, err := r.folder()
	if err != nil {
		return nil, "", err
	}
	key := fldr + "\x00" + r.Prefix
	if key != r.counted || r.counters == nil {
		r.counters = map[string]int{}
		r.counted = key
	}
	n, ok := r.counters[ext]
	if !ok {
		n = r.scan(fldr, ext) + 1
	}
	fn := filepath.Join(fldr, fmt.Sprintf("%s%06d.%s", r.Prefix, n, ext))
	fid, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return nil, "", err
	}
	r.counters[ext] = n + 1
	return fid, fn, nil
}

// scan returns the highest file number in dir for the prefix and extension, 0 if there is none
func (r *Recorder) scan(dir, ext string) int {
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return 0
	}
	suffix := "." + ext
	count := 0
	for _, file := range files {
		// skip directories, other extensions, and wrong prefix
		if file.IsDir() {
			continue
		}
		fn := file.Name()
		if !strings.HasSuffix(fn, suffix) || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		bit := strings.TrimSuffix(strings.TrimPrefix(fn, r.Prefix), suffix)
		n, err := strconv.Atoi(bit)
		if err != nil {
			continue
		}
		if count < n {
			count = n
		}
	}
	return count
}

// RecordThermal writes a thermal frame to the next FITS file and returns its path
func (r *Recorder) RecordThermal(f optris.ThermalFrame, cards ...fitsio.Card) (string, error) {
	w, fn, err := r.Create("fits")
	if err != nil {
		return "", err
	}
	err = WriteFits(w, cards, f)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return fn, err
}

// RecordPalette writes a palette frame to the next PNG file and returns its path
func (r *Recorder) RecordPalette(f optris.PaletteFrame) (string, error) {
	w, fn, err := r.Create("png")
	if err != nil {
		return "", err
	}
	err = png.Encode(w, f.RGBA())
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return fn, err
}

// SetRoot changes the root folder, creating it
func (r *Recorder) SetRoot(root string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(root, 0777); err != nil {
		return err
	}
	r.Root = root
	r.counted = ""
	return nil
}

// GetRoot returns the root folder
func (r *Recorder) GetRoot() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Root, nil
}

// SetPrefix changes the filename prefix
func (r *Recorder) SetPrefix(prefix string) error {
	if strings.ContainsAny(prefix, `/\`) {
		return fmt.Errorf("imgrec: prefix %q contains a path separator", prefix)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prefix = prefix
	r.counted = ""
	return nil
}

// GetPrefix returns the filename prefix
func (r *Recorder) GetPrefix() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Prefix, nil
}

// SetEnabled sets the Enabled field
func (r *Recorder) SetEnabled(b bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Enabled = b
	return nil
}

// GetEnabled returns the Enabled field
func (r *Recorder) GetEnabled() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Enabled, nil
}

// HTTPWrapper is an HTTP wrapper around an image recorder that allows the folder and prefix to be changed on the fly
//
// it does not implement generichttp.HTTPer, offering an Inject method allowing it to be injected
// into another HTTPer
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

// Status reports the recorder's settings in one JSON object
func (h HTTPWrapper) Status(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	s := struct {
		Root    string `json:"root"`
		Prefix  string `json:"prefix"`
		Enabled bool   `json:"enabled"`
	}{h.Root, h.Prefix, h.Enabled}
	h.mu.Unlock()
	generichttp.RespondJSON(w, s)
}

// GetCount returns the number of the next file, as {"int": n}
func (h HTTPWrapper) GetCount(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	n := 0
	for _, c := range h.counters {
		if c > n {
			n = c
		}
	}
	h.mu.Unlock()
	hp := generichttp.HumanPayload{T: types.Int, Int: n}
	hp.EncodeAndRespond(w, r)
}

// Inject adds GET and POST routes for /autowrite/root, /autowrite/prefix and
// /autowrite/enabled to the HTTPer which manipulate this wrapper's recorder
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = generichttp.SetString(h.SetRoot)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = generichttp.GetString(h.GetRoot)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = generichttp.SetString(h.SetPrefix)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = generichttp.GetString(h.GetPrefix)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = generichttp.SetBool(h.SetEnabled)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = generichttp.GetBool(h.GetEnabled)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite"}] = h.Status
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/count"}] = h.GetCount
}
