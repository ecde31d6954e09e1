package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/siyka-au/go-optris/acquire"
	"github.com/siyka-au/go-optris/imgrec"
	"github.com/siyka-au/go-optris/optris"
	"github.com/siyka-au/go-optris/util"
)

// mockSize is the frame size of a PI 400
var mockSize = optris.Size{Width: 382, Height: 288}

// daemonStartup bounds the wait for a launched daemon
const daemonStartup = 10 * time.Second

func newSession(c connection) (*optris.Session, error) {
	switch strings.ToLower(c.Mode) {
	case "mock":
		m := optris.NewMock(mockSize, mockSize)
		m.HasFocusMotor = true
		return optris.New(m), nil
	case "usb", "tcp":
		n, err := optris.Library()
		if err != nil {
			return nil, err
		}
		return optris.New(n), nil
	default:
		return nil, fmt.Errorf("unknown connection mode %q, use usb, tcp or mock", c.Mode)
	}
}

// connect opens the session, launching the daemon first if asked to
func connect(ctx context.Context, s *optris.Session, c connection) error {
	if mode := strings.ToLower(c.Mode); mode == "usb" || mode == "mock" {
		var opts []optris.USBOption
		if c.FormatsDef != "" {
			opts = append(opts, optris.WithFormatsDef(c.FormatsDef))
		}
		if c.LogFile != "" {
			opts = append(opts, optris.WithLogFile(c.LogFile))
		}
		return s.InitUSB(c.XMLConfig, opts...)
	}
	if c.LaunchDaemon {
		if err := launchDaemon(ctx, s); err != nil {
			return err
		}
	}
	return s.InitTCP(c.Host, c.Port)
}

// launchDaemon starts the daemon unless it is running and waits for it to come up
func launchDaemon(ctx context.Context, s *optris.Session) error {
	running, err := s.DaemonRunning()
	if err != nil {
		return err
	}
	if running {
		return nil
	}
	log.Println("launching daemon")
	if err = s.LaunchDaemon(); err != nil {
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = daemonStartup
	return backoff.Retry(func() error {
		running, err := s.DaemonRunning()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !running {
			return fmt.Errorf("daemon did not start within %v", daemonStartup)
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

func newPoller(s *optris.Session, cfg config, rec *imgrec.Recorder) *acquire.Poller {
	p := acquire.New(s, cfg.Acquisition.FPS)
	p.SetPaletteTimeout(util.SecsToDuration(cfg.Acquisition.PaletteTimeout))
	p.Logf = log.Printf
	if cfg.Recorder.Acquisition {
		p.Sink = imgrec.Sink{Rec: rec, Settings: s.Settings, Palette: cfg.Recorder.Palette}
	}
	if cfg.Acquisition.Reconnect {
		p.Reconnect = func(ctx context.Context) error {
			if err := s.Terminate(); err != nil {
				log.Println("terminating before reconnect:", err)
			}
			return connect(ctx, s, cfg.Connection)
		}
	}
	return p
}
