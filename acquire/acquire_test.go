package acquire

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siyka-au/go-optris/optris"
)

const wait = 2 * time.Second

func openTCP(t *testing.T) (*optris.Session, *optris.Mock) {
	m := optris.NewMock(optris.Size{Width: 16, Height: 12}, optris.Size{Width: 16, Height: 12})
	s := optris.New(m)
	require.NoError(t, s.InitTCP("localhost", optris.DefaultPort))
	t.Cleanup(func() { s.Terminate() })
	return s, m
}

// start runs p in the background; the returned func stops it and returns Run's error
func start(p *Poller) func() error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return func() error {
		cancel()
		return <-done
	}
}

func TestPollerPublishesFrames(t *testing.T) {
	s, _ := openTCP(t)
	p := New(s, 0)
	c, unsub := p.Subscribe()
	defer unsub()
	_, ok := p.Latest()
	assert.False(t, ok)

	stop := start(p)
	for i := 0; i < 3; i++ {
		select {
		case <-c:
		case <-time.After(wait):
			t.Fatal("no frame published")
		}
	}
	assert.ErrorIs(t, stop(), context.Canceled)

	f, ok := p.Latest()
	require.True(t, ok)
	assert.GreaterOrEqual(t, f.Seq, uint64(3))
	assert.Len(t, f.Thermal.Data, 16*12)
	assert.Len(t, f.Palette.Pix, 3*16*12)
	assert.NotZero(t, f.CRC)
	assert.GreaterOrEqual(t, p.Stats().GoodFrames, 3)
}

func TestLatestIsACopy(t *testing.T) {
	s, _ := openTCP(t)
	p := New(s, 0)
	require.NoError(t, p.poll(context.Background()))
	f, _ := p.Latest()
	f.Thermal.Data[0] = 0
	g, _ := p.Latest()
	assert.NotEqual(t, uint16(0), g.Thermal.Data[0])
}

func TestDuplicatesAreDropped(t *testing.T) {
	s, m := openTCP(t)
	m.Static = true
	p := New(s, 0)
	p.Palette = false
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, p.poll(ctx))
	}
	st := p.Stats()
	assert.Equal(t, 1, st.GoodFrames)
	assert.Equal(t, 3, st.DuplicateFrames)
	f, _ := p.Latest()
	assert.Equal(t, uint64(1), f.Seq)
	assert.Empty(t, f.Palette.Pix)
}

func TestTransientErrorsAreCounted(t *testing.T) {
	s, m := openTCP(t)
	m.Script(optris.FnThermalImage, -1, -1)
	p := New(s, 0)
	stop := start(p)
	require.Eventually(t, func() bool { return p.Stats().GoodFrames >= 2 }, wait, time.Millisecond)
	stop()
	st := p.Stats()
	assert.Equal(t, 2, st.FailedReads)
	assert.Zero(t, st.FatalErrors)
	assert.Contains(t, st.LastError, optris.FnThermalImage)
}

func TestFatalStopsWithoutReconnect(t *testing.T) {
	s, m := openTCP(t)
	m.Script(optris.FnThermalImage, -2)
	p := New(s, 0)
	err := p.Run(context.Background())
	assert.ErrorIs(t, err, optris.ErrFatalConnection)
	assert.Equal(t, 1, p.Stats().FatalErrors)
}

func TestReconnect(t *testing.T) {
	s, m := openTCP(t)
	m.Script(optris.FnThermalImage, -2)
	p := New(s, 0)
	p.NewBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	var mu sync.Mutex
	attempts := 0
	p.Reconnect = func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("daemon still starting")
		}
		s.Terminate()
		return s.InitTCP("localhost", optris.DefaultPort)
	}
	stop := start(p)
	require.Eventually(t, func() bool { return p.Stats().GoodFrames >= 1 }, wait, time.Millisecond)
	assert.ErrorIs(t, stop(), context.Canceled)
	st := p.Stats()
	assert.Equal(t, 1, st.Reconnects)
	assert.Equal(t, 1, st.FatalErrors)
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
	assert.Equal(t, 2, m.Calls(optris.FnTCPInit))
}

func TestSink(t *testing.T) {
	s, _ := openTCP(t)
	p := New(s, 0)
	var seqs []uint64
	p.Sink = SinkFunc(func(f Frame) error {
		seqs = append(seqs, f.Seq)
		if f.Seq == 2 {
			return errors.New("disk full")
		}
		return nil
	})
	var logged []string
	p.Logf = func(format string, args ...interface{}) { logged = append(logged, format) }
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.poll(ctx))
	}
	assert.Equal(t, []uint64{1, 2, 3}, seqs)
	assert.Equal(t, 1, p.Stats().SinkErrors)
	assert.Len(t, logged, 1)
}

// stuck never produces a palette frame
type stuck struct {
	*optris.Mock
}

func (stuck) PaletteImage(w, h int, dst []byte) int { return -1 }

func TestPaletteTimeout(t *testing.T) {
	n := stuck{optris.NewMock(optris.Size{Width: 16, Height: 12}, optris.Size{Width: 16, Height: 12})}
	s := optris.New(n)
	require.NoError(t, s.InitUSB("generic.xml"))
	defer s.Terminate()
	s.Retry = optris.RetryForever
	p := New(s, 0)
	p.SetPaletteTimeout(5 * time.Millisecond)
	err := p.poll(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := p.Latest()
	assert.False(t, ok)
	assert.Zero(t, p.Stats().GoodFrames)
}

func TestFPS(t *testing.T) {
	p := New(nil, 25)
	assert.Equal(t, 25., p.FPS())
	p.SetFPS(0)
	assert.Zero(t, p.FPS())
}
