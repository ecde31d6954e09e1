package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/siyka-au/go-optris/acquire"
	"github.com/siyka-au/go-optris/camera"
	"github.com/siyka-au/go-optris/generichttp"
	"github.com/siyka-au/go-optris/generichttp/thermalcam"
	"github.com/siyka-au/go-optris/imgrec"
	"github.com/siyka-au/go-optris/optris"
	"github.com/siyka-au/go-optris/server/middleware/locker"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/maruel/interrupt"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "optris-http.yml"

	// EnvPrefix prefixes environment variables overriding the config file,
	// e.g. OPTRIS_CONNECTION_MODE=tcp
	EnvPrefix = "OPTRIS_"

	k = koanf.New(".")
)

type connection struct {
	// Mode is usb, tcp or mock
	Mode string `yaml:"Mode" koanf:"Mode"`

	// XMLConfig is the camera's configuration file, for usb
	XMLConfig string `yaml:"XMLConfig" koanf:"XMLConfig"`

	// FormatsDef is the formats definition file, for usb; empty uses the SDK's
	FormatsDef string `yaml:"FormatsDef" koanf:"FormatsDef"`

	// LogFile is where the SDK logs, for usb; empty disables its log
	LogFile string `yaml:"LogFile" koanf:"LogFile"`

	// Host and Port locate the daemon, for tcp
	Host string `yaml:"Host" koanf:"Host"`
	Port int    `yaml:"Port" koanf:"Port"`

	// LaunchDaemon starts the daemon before connecting, for tcp
	LaunchDaemon bool `yaml:"LaunchDaemon" koanf:"LaunchDaemon"`
}

type acquisition struct {
	// Enabled starts the background poller, needed for /stream
	Enabled bool `yaml:"Enabled" koanf:"Enabled"`

	// FPS is the polling rate; 0 polls as fast as the camera allows
	FPS float64 `yaml:"FPS" koanf:"FPS"`

	// PaletteTimeout bounds each palette read, in seconds
	PaletteTimeout float64 `yaml:"PaletteTimeout" koanf:"PaletteTimeout"`

	// Reconnect reopens the session after a fatal error instead of stopping
	Reconnect bool `yaml:"Reconnect" koanf:"Reconnect"`
}

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"Root" koanf:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix" koanf:"Prefix"`

	// Enabled turns recording on at startup
	Enabled bool `yaml:"Enabled" koanf:"Enabled"`

	// Acquisition records every frame of the poller, not only those served over HTTP
	Acquisition bool `yaml:"Acquisition" koanf:"Acquisition"`

	// Palette also records palette frames of the poller
	Palette bool `yaml:"Palette" koanf:"Palette"`
}

type config struct {
	Addr        string        `yaml:"Addr" koanf:"Addr"`
	Root        string        `yaml:"Root" koanf:"Root"`
	Connection  connection    `yaml:"Connection" koanf:"Connection"`
	Acquisition acquisition   `yaml:"Acquisition" koanf:"Acquisition"`
	Recorder    recorder      `yaml:"Recorder" koanf:"Recorder"`
	Bootup      camera.Bootup `yaml:"Bootup" koanf:"Bootup"`
}

func defaults() config {
	return config{
		Addr: ":8000",
		Root: "/",
		Connection: connection{
			Mode:      "usb",
			XMLConfig: "generic.xml",
			Host:      "localhost",
			Port:      optris.DefaultPort,
		},
		Acquisition: acquisition{
			Enabled:        true,
			FPS:            10,
			PaletteTimeout: 2,
		},
		Recorder: recorder{Prefix: "ir"},
		Bootup: camera.Bootup{
			Palette: "Iron",
			Scaling: "MinMax",
		},
	}
}

// envKey maps OPTRIS_CONNECTION_MODE to the known key Connection.Mode
func envKey(s string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	for _, known := range k.Keys() {
		if strings.ToLower(known) == key {
			return known
		}
	}
	return key
}

func setupconfig() {
	k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	// a missing .env is fine too
	_ = godotenv.Load()
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		log.Fatalf("error loading environment: %v", err)
	}
}

func root() {
	str := `optris-http exposes control of Optris thermal imagers over HTTP
This enables a server-client architecture,
and the clients can leverage the excellent HTTP
libraries for any programming language,
instead of the vendor SDK.

Usage:
	optris-http <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `optris-http is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  The command mkconf generates
the configuration file with the default values.  Any key may be overridden by an
environment variable, or a line of a .env file in the working directory, named
OPTRIS_ and the key path joined by underscores, e.g. OPTRIS_CONNECTION_MODE=tcp.

Connection.Mode selects how the camera is reached:
	usb   the camera is attached to this computer; XMLConfig is its configuration file
	tcp   the camera is served by the daemon at Host:Port; LaunchDaemon starts it first
	mock  a simulated camera, for trying out clients

The SDK is linked only into binaries built with cgo and -tags irdirectsdk.
Other builds can only run in mock mode.

Bootup settings are applied once connected; empty values leave the camera's configuration alone.
The SDK cannot be asked for its configuration, so GET routes for settings return 404
until they have been set, at bootup or over HTTP.

If the files and folders created do not have the permissions you want on linux,
your umask is likely to blame.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("optris-http version %v\n", Version)
}

func run() {
	cfg := config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		log.Fatal(err)
	}
	interrupt.HandleCtrlC()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-interrupt.Channel
		cancel()
	}()

	s, err := newSession(cfg.Connection)
	if err != nil {
		log.Fatal(err)
	}
	if err = connect(ctx, s, cfg.Connection); err != nil {
		log.Fatal(err)
	}
	defer func() {
		log.Println("terminating session")
		if err := s.Terminate(); err != nil {
			log.Println(err)
		}
	}()
	log.Printf("connected over %v\n", s.Mode())
	if sz, err := s.ThermalImageSize(); err == nil {
		log.Printf("thermal frames are %dx%d\n", sz.Width, sz.Height)
	}
	if err = camera.Configure(s, cfg.Bootup); err != nil {
		log.Println("applying bootup settings:", err)
	}

	rec := imgrec.New(cfg.Recorder.Root, cfg.Recorder.Prefix)
	rec.Enabled = cfg.Recorder.Enabled

	var p *acquire.Poller
	if cfg.Acquisition.Enabled {
		p = newPoller(s, cfg, rec)
		go func() {
			err := p.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Println("acquisition stopped:", err)
			}
		}()
	}

	w := thermalcam.NewHTTPCamera(s, p, rec)
	lock := locker.New()
	locker.Inject(w, lock)

	// clean up the submux string
	hndlrS := generichttp.SubMuxSanitize(cfg.Root)
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	mux := chi.NewRouter()
	mux.Use(lock.Check)
	root.Mount(hndlrS, mux)
	w.RT().Bind(mux)

	srv := &http.Server{Addr: cfg.Addr, Handler: root}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		srv.Shutdown(sctx)
	}()
	log.Println("now listening for requests at ", cfg.Addr+hndlrS)
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Println(err)
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
