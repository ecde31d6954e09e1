package imgrec

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siyka-au/go-optris/generichttp"
	"github.com/siyka-au/go-optris/optris"
)

var day = time.Date(2021, 3, 14, 15, 9, 26, 0, time.UTC)

func newRecorder(t *testing.T) *Recorder {
	r := New(t.TempDir(), "ir")
	r.now = func() time.Time { return day }
	return r
}

func frames() (optris.ThermalFrame, optris.PaletteFrame) {
	tf := optris.ThermalFrame{Width: 3, Height: 2, Data: []uint16{1000, 1100, 1200, 1300, 1400, 65535}}
	pf := optris.PaletteFrame{Width: 2, Height: 1, Pix: []byte{255, 0, 0, 0, 0, 255}}
	return tf, pf
}

func TestFilesAreNumberedInDatedFolders(t *testing.T) {
	r := newRecorder(t)
	_, pf := frames()
	fn1, err := r.RecordPalette(pf)
	require.NoError(t, err)
	fn2, err := r.RecordPalette(pf)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Root, "2021-03-14", "ir000001.png"), fn1)
	assert.Equal(t, filepath.Join(r.Root, "2021-03-14", "ir000002.png"), fn2)

	// a new recorder picks up where the folder left off
	r2 := New(r.Root, "ir")
	r2.now = r.now
	fn3, err := r2.RecordPalette(pf)
	require.NoError(t, err)
	assert.Equal(t, "ir000003.png", filepath.Base(fn3))

	b, err := os.ReadFile(fn1)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	rr, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), rr)
}

func TestPrefixChangeRestartsCount(t *testing.T) {
	r := newRecorder(t)
	_, pf := frames()
	_, err := r.RecordPalette(pf)
	require.NoError(t, err)
	require.NoError(t, r.SetPrefix("hot"))
	fn, err := r.RecordPalette(pf)
	require.NoError(t, err)
	assert.Equal(t, "hot000001.png", filepath.Base(fn))
	assert.Error(t, r.SetPrefix("../escape"))
}

func TestCountersPerExtension(t *testing.T) {
	r := newRecorder(t)
	tf, pf := frames()
	for i := 1; i <= 2; i++ {
		fn, err := r.RecordThermal(tf)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ir%06d.fits", i), filepath.Base(fn))
		fn, err = r.RecordPalette(pf)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ir%06d.png", i), filepath.Base(fn))
	}

	// alternating extensions does not rescan the folder
	stray := filepath.Join(r.Root, "2021-03-14", "ir000010.fits")
	require.NoError(t, os.WriteFile(stray, nil, 0666))
	fn, err := r.RecordThermal(tf)
	require.NoError(t, err)
	assert.Equal(t, "ir000003.fits", filepath.Base(fn))
	fn, err = r.RecordPalette(pf)
	require.NoError(t, err)
	assert.Equal(t, "ir000003.png", filepath.Base(fn))
}

func TestRecordThermalFits(t *testing.T) {
	r := newRecorder(t)
	tf, _ := frames()
	p := optris.PaletteIron
	cards := ThermalCards(optris.Settings{Palette: &p}, day)
	fn, err := r.RecordThermal(tf, cards...)
	require.NoError(t, err)
	assert.Equal(t, "ir000001.fits", filepath.Base(fn))

	fid, err := os.Open(fn)
	require.NoError(t, err)
	defer fid.Close()
	f, err := fitsio.Open(fid)
	require.NoError(t, err)
	defer f.Close()
	hdr := f.HDU(0).Header()
	assert.Equal(t, []int{3, 2}, hdr.Axes())
	require.NotNil(t, hdr.Get("RAWOFS"))
	require.NotNil(t, hdr.Get("PALETTE"))
	assert.Equal(t, "Iron", strings.TrimSpace(fmt.Sprint(hdr.Get("PALETTE").Value)))
}

func TestWriteFitsRejectsMixedSizes(t *testing.T) {
	tf, _ := frames()
	other := optris.ThermalFrame{Width: 2, Height: 2, Data: make([]uint16, 4)}
	err := WriteFits(&bytes.Buffer{}, nil, tf, other)
	assert.ErrorIs(t, err, optris.ErrInvalidDimensions)
	assert.Error(t, WriteFits(&bytes.Buffer{}, nil))
}

func TestNoRoot(t *testing.T) {
	r := &Recorder{}
	_, _, err := r.Create("png")
	assert.Error(t, err)
	assert.False(t, r.Active())
}

type table struct {
	rt generichttp.RouteTable
}

func (t table) RT() generichttp.RouteTable { return t.rt }

func TestHTTPWrapper(t *testing.T) {
	rec := newRecorder(t)
	tbl := table{generichttp.RouteTable{}}
	NewHTTPWrapper(rec).Inject(tbl)
	mux := chi.NewRouter()
	tbl.RT().Bind(mux)

	newRoot := filepath.Join(t.TempDir(), "elsewhere")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/autowrite/root", strings.NewReader(`{"str":"`+filepath.ToSlash(newRoot)+`"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.DirExists(t, newRoot)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/autowrite/enabled", strings.NewReader(`{"bool":false}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, rec.Active())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/autowrite/prefix", nil))
	assert.JSONEq(t, `{"str":"ir"}`, w.Body.String())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/autowrite", nil))
	assert.JSONEq(t, `{"root":"`+filepath.ToSlash(newRoot)+`","prefix":"ir","enabled":false}`, w.Body.String())
}
