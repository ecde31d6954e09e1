package imgrec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siyka-au/go-optris/acquire"
)

func TestSinkRecordsFrames(t *testing.T) {
	r := newRecorder(t)
	tf, pf := frames()
	s := Sink{Rec: r, Palette: true}
	require.NoError(t, s.Consume(acquire.Frame{Thermal: tf, Palette: pf, Seq: 7, CRC: 0xdeadbeef, At: day}))

	dir := filepath.Join(r.Root, "2021-03-14")
	assert.FileExists(t, filepath.Join(dir, "ir000001.png"))
	fn := filepath.Join(dir, "ir000001.fits")
	require.FileExists(t, fn)

	fid, err := os.Open(fn)
	require.NoError(t, err)
	defer fid.Close()
	f, err := fitsio.Open(fid)
	require.NoError(t, err)
	defer f.Close()
	hdr := f.HDU(0).Header()
	require.NotNil(t, hdr.Get("CRC32"))
	assert.Equal(t, "deadbeef", strings.TrimSpace(fmt.Sprint(hdr.Get("CRC32").Value)))
	require.NotNil(t, hdr.Get("FRAMESEQ"))
	assert.Equal(t, "7", fmt.Sprint(hdr.Get("FRAMESEQ").Value))
}

func TestSinkIdlesWhileDisabled(t *testing.T) {
	r := newRecorder(t)
	require.NoError(t, r.SetEnabled(false))
	tf, _ := frames()
	require.NoError(t, Sink{Rec: r}.Consume(acquire.Frame{Thermal: tf, At: day}))
	entries, err := os.ReadDir(r.Root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
