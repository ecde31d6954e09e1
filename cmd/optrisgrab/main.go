// optrisgrab saves frames from an Optris thermal imager to disk.
//
// Thermal frames are written as FITS and palette frames as PNG, numbered in
// yyyy-mm-dd folders under -out.  It can also list the imagers attached over
// USB and start or stop the daemon which serves cameras over the network.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/maruel/interrupt"
	"github.com/theckman/yacspin"

	"github.com/siyka-au/go-optris/imgrec"
	"github.com/siyka-au/go-optris/optris"
	"github.com/siyka-au/go-optris/usbprobe"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func listUSB() error {
	devs, err := usbprobe.List()
	if err != nil {
		return err
	}
	if len(devs) == 0 {
		fmt.Println(faint("no imagers found"))
		return nil
	}
	for _, d := range devs {
		fmt.Println(d)
	}
	return nil
}

func daemon(s *optris.Session, action string) error {
	switch action {
	case "status":
	case "launch":
		if err := s.LaunchDaemon(); err != nil {
			return err
		}
	case "kill":
		if err := s.KillDaemon(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown daemon action %q, use status, launch or kill", action)
	}
	running, err := s.DaemonRunning()
	if err != nil {
		return err
	}
	if running {
		fmt.Println("daemon", green("running"))
	} else {
		fmt.Println("daemon", red("stopped"))
	}
	return nil
}

type grabber struct {
	s        *optris.Session
	rec      *imgrec.Recorder
	palette  bool
	timeout  time.Duration
	thermal  optris.ThermalFrame
	colorful optris.PaletteFrame
}

// grab records one thermal frame, and a palette frame if enabled
func (g *grabber) grab() (string, error) {
	if err := g.s.ReadThermalFrame(&g.thermal); err != nil {
		return "", err
	}
	cards := imgrec.ThermalCards(g.s.Settings(), time.Now())
	fn, err := g.rec.RecordThermal(g.thermal, cards...)
	if err != nil || !g.palette {
		return fn, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err = g.s.ReadPaletteFrame(ctx, &g.colorful); err != nil {
		return fn, err
	}
	_, err = g.rec.RecordPalette(g.colorful)
	return fn, err
}

func mainImpl() error {
	mock := flag.Bool("mock", false, "use a simulated camera")
	xml := flag.String("xml", "generic.xml", "camera configuration file, for USB")
	host := flag.String("host", "", "connect through the daemon at this host instead of USB")
	port := flag.Int("port", optris.DefaultPort, "daemon port")
	list := flag.Bool("list", false, "list the imagers attached over USB and exit")
	daemonAction := flag.String("daemon", "", "status, launch or kill the daemon and exit")
	n := flag.Int("n", 1, "number of frames to grab; 0 grabs until Ctrl-C")
	interval := flag.Duration("interval", 0, "time between frames")
	out := flag.String("out", ".", "root folder to write to")
	prefix := flag.String("prefix", "ir", "filename prefix")
	palette := flag.Bool("palette", false, "also save the palette frame as PNG")
	paletteName := flag.String("palette-name", "", "palette to set before grabbing, e.g. iron")
	timeout := flag.Duration("timeout", 2*time.Second, "how long to wait for each palette frame")
	flag.Parse()

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}
	if *list {
		return listUSB()
	}

	var native optris.Native
	if *mock {
		sz := optris.Size{Width: 382, Height: 288}
		native = optris.NewMock(sz, sz)
	} else {
		var err error
		if native, err = optris.Library(); err != nil {
			return err
		}
	}
	s := optris.New(native)
	if *daemonAction != "" {
		return daemon(s, *daemonAction)
	}

	interrupt.HandleCtrlC()
	var err error
	if *host != "" {
		err = s.InitTCP(*host, *port)
	} else {
		err = s.InitUSB(*xml)
	}
	if err != nil {
		return err
	}
	defer s.Terminate()
	if *paletteName != "" {
		p, err := optris.ParsePalette(*paletteName)
		if err != nil {
			return err
		}
		if err = s.SetPalette(p); err != nil {
			return err
		}
	}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " grabbing",
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return err
	}
	g := &grabber{s: s, rec: imgrec.New(*out, *prefix), palette: *palette, timeout: *timeout}
	if err = spinner.Start(); err != nil {
		return err
	}
	count := 0
	var last string
	for ; (*n == 0 || count < *n) && !interrupt.IsSet(); count++ {
		if count > 0 && *interval > 0 {
			select {
			case <-time.After(*interval):
			case <-interrupt.Channel:
			}
			if interrupt.IsSet() {
				break
			}
		}
		last, err = g.grab()
		if err != nil {
			spinner.StopFailMessage(err.Error())
			spinner.StopFail()
			return err
		}
		spinner.Message(fmt.Sprintf("%d frames, last %s", count+1, last))
	}
	spinner.StopMessage(fmt.Sprintf("%d frames in %s", count, *out))
	return spinner.Stop()
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\noptrisgrab: %s.\n", err)
		os.Exit(1)
	}
}
