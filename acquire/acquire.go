// Package acquire polls a thermal imager in the background and keeps the latest frames.
//
// The SDK does not push frames, so a Poller pulls them at a fixed rate,
// drops frames identical to the previous one, and hands each new frame to
// its subscribers and an optional Sink such as an imgrec.Recorder.
package acquire

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/snksoft/crc"
	"golang.org/x/time/rate"

	"github.com/siyka-au/go-optris/camera"
	"github.com/siyka-au/go-optris/optris"
)

var crcTable = crc.NewTable(crc.CRC32)

// Frame is a thermal frame, the palette frame taken right after it and bookkeeping
type Frame struct {
	Thermal optris.ThermalFrame
	Palette optris.PaletteFrame

	// Seq counts published frames from 1
	Seq uint64

	// CRC is the CRC-32 of the thermal samples, little endian
	CRC uint32

	// At is when the thermal frame was read
	At time.Time
}

// Copy returns a deep copy of f
func (f Frame) Copy() Frame {
	out := f
	out.Thermal.Data = append([]uint16(nil), f.Thermal.Data...)
	out.Palette.Pix = append([]byte(nil), f.Palette.Pix...)
	return out
}

// Stats counts what happened to every poll
type Stats struct {
	GoodFrames      int `json:"goodFrames"`
	DuplicateFrames int `json:"duplicateFrames"`
	FailedReads     int `json:"failedReads"`
	FatalErrors     int `json:"fatalErrors"`
	Reconnects      int `json:"reconnects"`
	SinkErrors      int `json:"sinkErrors"`

	// LastError is the message of the most recent error, if any
	LastError string `json:"lastError,omitempty"`
}

// Sink consumes new frames.  It is called from the polling goroutine and
// must not keep the frame's buffers after returning.
type Sink interface {
	Consume(Frame) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Frame) error

// Consume calls f
func (f SinkFunc) Consume(fr Frame) error {
	return f(fr)
}

// Poller reads frames from an Imager at a bounded rate
type Poller struct {
	cam     camera.Imager
	limiter *rate.Limiter

	// Palette enables reading a palette frame after each thermal frame
	Palette bool

	// Sink, if not nil, receives every published frame
	Sink Sink

	// Reconnect, if not nil, is called after a fatal error to reopen the
	// camera.  It is retried with exponential backoff until it succeeds or
	// the context of Run is done.  Without it Run returns the fatal error.
	Reconnect func(context.Context) error

	// NewBackOff makes the backoff used between reconnection attempts
	NewBackOff func() backoff.BackOff

	// Logf, if not nil, is given errors that do not stop the poller
	Logf func(format string, args ...interface{})

	mu             sync.Mutex
	paletteTimeout time.Duration
	front          *Frame
	back           *Frame
	seq            uint64
	stats          Stats
	subs           map[chan struct{}]struct{}
	last           uint32
	seen           bool
	digest         []byte
}

// New returns a poller reading at most fps frames per second; fps <= 0 means as fast as possible
func New(cam camera.Imager, fps float64) *Poller {
	lim := rate.Inf
	if fps > 0 {
		lim = rate.Limit(fps)
	}
	return &Poller{
		cam:     cam,
		limiter: rate.NewLimiter(lim, 1),
		Palette: true,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 0
			return b
		},
		subs: map[chan struct{}]struct{}{},
	}
}

// SetFPS changes the polling rate
func (p *Poller) SetFPS(fps float64) {
	if fps <= 0 {
		p.limiter.SetLimit(rate.Inf)
		return
	}
	p.limiter.SetLimit(rate.Limit(fps))
}

// FPS returns the polling rate, 0 if unlimited
func (p *Poller) FPS() float64 {
	l := p.limiter.Limit()
	if l == rate.Inf {
		return 0
	}
	return float64(l)
}

// SetPaletteTimeout bounds each palette read; 0 leaves it to the camera's retry policy
func (p *Poller) SetPaletteTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paletteTimeout = d
}

// PaletteTimeout returns the bound on palette reads
func (p *Poller) PaletteTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paletteTimeout
}

// Run polls until ctx is done, returning ctx's error, or until a fatal
// error occurs and Reconnect is nil or gives up.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		err := p.poll(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case isFatal(err):
			p.record(func(s *Stats) { s.FatalErrors++; s.LastError = err.Error() })
			if p.Reconnect == nil {
				return err
			}
			p.logf("acquire: %v, reconnecting", err)
			if err := p.reconnect(ctx); err != nil {
				return err
			}
		default:
			p.record(func(s *Stats) { s.FailedReads++; s.LastError = err.Error() })
		}
	}
}

func isFatal(err error) bool {
	return errors.Is(err, optris.ErrFatalConnection) || errors.Is(err, optris.ErrNoActiveSession)
}

func (p *Poller) reconnect(ctx context.Context) error {
	err := backoff.Retry(func() error {
		err := p.Reconnect(ctx)
		if err != nil {
			p.logf("acquire: reconnect failed: %v", err)
		}
		return err
	}, backoff.WithContext(p.NewBackOff(), ctx))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	p.mu.Lock()
	p.seen = false
	p.stats.Reconnects++
	p.mu.Unlock()
	return nil
}

// poll reads one frame pair into the back buffer and publishes it if it is new
func (p *Poller) poll(ctx context.Context) error {
	p.mu.Lock()
	b := p.back
	p.back = nil
	p.mu.Unlock()
	if b == nil {
		b = &Frame{}
	}
	// the back buffer returns to the pool unless it is published
	published := false
	defer func() {
		if !published {
			p.mu.Lock()
			p.back = b
			p.mu.Unlock()
		}
	}()

	if err := p.readThermal(&b.Thermal); err != nil {
		return err
	}
	b.At = time.Now()
	sum := p.checksum(b.Thermal.Data)
	p.mu.Lock()
	dup := p.seen && sum == p.last
	if dup {
		p.stats.DuplicateFrames++
	}
	p.mu.Unlock()
	if dup {
		return nil
	}
	b.CRC = sum

	if p.Palette {
		if err := p.readPalette(ctx, &b.Palette); err != nil {
			return err
		}
	} else {
		b.Palette = optris.PaletteFrame{}
	}

	p.mu.Lock()
	p.last, p.seen = sum, true
	p.seq++
	b.Seq = p.seq
	p.stats.GoodFrames++
	old := p.front
	p.front = b
	p.back = old
	for c := range p.subs {
		select {
		case c <- struct{}{}:
		default:
		}
	}
	p.mu.Unlock()
	published = true

	if p.Sink != nil {
		if err := p.Sink.Consume(*b); err != nil {
			p.record(func(s *Stats) { s.SinkErrors++; s.LastError = err.Error() })
			p.logf("acquire: sink: %v", err)
		}
	}
	return nil
}

func (p *Poller) readThermal(f *optris.ThermalFrame) error {
	if r, ok := p.cam.(camera.FrameReader); ok {
		return r.ReadThermalFrame(f)
	}
	sz, err := p.cam.ThermalImageSize()
	if err != nil {
		return err
	}
	*f, err = p.cam.ThermalFrame(sz.Width, sz.Height)
	return err
}

func (p *Poller) readPalette(ctx context.Context, f *optris.PaletteFrame) error {
	if d := p.PaletteTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if r, ok := p.cam.(camera.FrameReader); ok {
		return r.ReadPaletteFrame(ctx, f)
	}
	sz, err := p.cam.PaletteImageSize()
	if err != nil {
		return err
	}
	*f, err = p.cam.PaletteFrame(ctx, sz.Width, sz.Height)
	return err
}

// checksum is only called from the polling goroutine
func (p *Poller) checksum(data []uint16) uint32 {
	if cap(p.digest) < 2*len(data) {
		p.digest = make([]byte, 2*len(data))
	}
	buf := p.digest[:2*len(data)]
	for i, v := range data {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	c := crcTable.InitCrc()
	c = crcTable.UpdateCrc(c, buf)
	return crcTable.CRC32(c)
}

func (p *Poller) record(fn func(*Stats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.stats)
}

func (p *Poller) logf(format string, args ...interface{}) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

// Latest returns a copy of the most recent frame; ok is false before the first one
func (p *Poller) Latest() (f Frame, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.front == nil {
		return Frame{}, false
	}
	return p.front.Copy(), true
}

// Stats returns the poller's counters
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Subscribe returns a channel which receives a value when a new frame is
// published.  Notifications are dropped while the previous one is unread.
// Call cancel to unsubscribe.
func (p *Poller) Subscribe() (c <-chan struct{}, cancel func()) {
	ch := make(chan struct{}, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	return ch, func() {
		p.mu.Lock()
		delete(p.subs, ch)
		p.mu.Unlock()
	}
}
