// camctl opens a tracking camera, runs the acquisition loop and optionally
// serves a live preview with a tuning API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-psmove/internal/config"
	"github.com/teslashibe/go-psmove/internal/log"
	"github.com/teslashibe/go-psmove/pkg/camera"
	"github.com/teslashibe/go-psmove/pkg/debug"
	"github.com/teslashibe/go-psmove/pkg/driver"
	"github.com/teslashibe/go-psmove/pkg/web"
)

type options struct {
	index       int
	width       int
	height      int
	fps         int
	variant     camera.Variant
	driver      string
	configPath  string
	frames      int
	deinterlace bool
	intrinsics  string
	distortion  string
	preview     bool
	backup      string
	snapshot    string
	list        bool
	logLevel    string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if opts.driver != "" {
		cfg.Driver = opts.driver
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if debug.Enabled && opts.logLevel == "" {
		cfg.LogLevel = "debug"
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprintf(os.Stderr, "config: %s\n", strings.Join(errs, "; "))
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	if opts.list {
		listCameras(cfg)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts); err != nil {
		log.Error("camctl failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() (options, error) {
	var o options
	flag.IntVar(&o.index, "index", 0, "Camera index")
	flag.IntVar(&o.width, "width", 0, "Capture width (0 uses config/PSMOVE_TRACKER_WIDTH)")
	flag.IntVar(&o.height, "height", 0, "Capture height (0 uses config/PSMOVE_TRACKER_HEIGHT)")
	flag.IntVar(&o.fps, "fps", 0, "Capture framerate (0 uses config)")
	variant := flag.String("variant", "unknown", "Lens variant: blue, red, unknown")
	flag.StringVar(&o.driver, "driver", "", fmt.Sprintf("Camera driver %v (overrides config)", driver.Names()))
	flag.StringVar(&o.configPath, "config", "", "YAML config file")
	flag.IntVar(&o.frames, "frames", 0, "Stop after this many frames (0 runs until interrupted)")
	flag.BoolVar(&o.deinterlace, "deinterlace", false, "Deinterlace frames")
	flag.StringVar(&o.intrinsics, "intrinsics", "", "Camera matrix file (OpenCV XML/YAML)")
	flag.StringVar(&o.distortion, "distortion", "", "Distortion coefficients file (OpenCV XML/YAML)")
	flag.BoolVar(&o.preview, "preview", false, "Serve the preview and tuning API")
	flag.StringVar(&o.snapshot, "snapshot", "", "Save the first conditioned frame to this image file")
	flag.StringVar(&o.backup, "backup", "", "Back up camera controls to this file and restore them on exit")
	flag.BoolVar(&debug.Enabled, "debug", false, "Enable verbose debug logging")
	flag.BoolVar(&debug.Frames, "debug-frames", false, "Log every acquired frame")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&o.list, "list", false, "List drivers and connected cameras, then exit")
	flag.Parse()

	v, err := camera.ParseVariant(*variant)
	if err != nil {
		return o, err
	}
	o.variant = v
	return o, nil
}

func listCameras(cfg config.Config) {
	for _, name := range driver.Names() {
		d, err := driver.Lookup(name, driver.Options{Filename: cfg.Filename})
		if err != nil {
			continue
		}
		n, err := d.Count()
		switch {
		case errors.Is(err, driver.ErrCountUnsupported):
			fmt.Printf("%-8s cameras: unknown\n", name)
		case err != nil:
			fmt.Printf("%-8s error: %v\n", name, err)
		default:
			fmt.Printf("%-8s cameras: %d\n", name, n)
		}
	}

	cams, err := driver.ListPS3Eye()
	if err != nil {
		fmt.Printf("usb: %v\n", err)
		return
	}
	for i, c := range cams {
		fmt.Printf("ps3eye #%d: %s\n", i, c)
	}
}

func saveSnapshot(path string, img *gocv.Mat) {
	if ok := gocv.IMWrite(path, *img); !ok {
		log.Warn("snapshot not written", "path", path)
		return
	}
	log.Info("saved first frame", "path", path)
}

func run(ctx context.Context, cfg config.Config, opts options) error {
	cam, err := camera.Open(opts.index, opts.width, opts.height, opts.fps, opts.variant, camera.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer cam.Close()

	if opts.backup != "" {
		if err := cam.BackupSettings(opts.backup); err != nil {
			return err
		}
		defer func() {
			if err := cam.RestoreSettings(opts.backup); err != nil {
				log.Warn("camera settings not restored", "error", err)
			}
		}()
	}

	// The camera is only touched with mu held.
	var (
		mu       sync.Mutex
		frames   uint64
		timeouts uint64
	)

	settings := camera.DefaultSettings()
	settings.Deinterlace = opts.deinterlace
	settings.Intrinsics, settings.Distortion = cfg.Calibration.Intrinsics, cfg.Calibration.Distortion
	if opts.intrinsics != "" || opts.distortion != "" {
		settings.Intrinsics, settings.Distortion = opts.intrinsics, opts.distortion
	}

	mgr := camera.NewManager(camera.Settings{})
	mgr.OnChange = func(s camera.Settings) error {
		mu.Lock()
		defer mu.Unlock()
		return cam.Apply(s)
	}
	if err := mgr.SetSettings(settings); err != nil {
		// A missing calibration is not fatal; track without undistortion.
		log.Warn("initial settings not fully applied", "error", err)
		settings.Intrinsics, settings.Distortion = "", ""
		if err := mgr.SetSettings(settings); err != nil {
			return err
		}
	}

	var srv *web.Server
	if opts.preview {
		srv = web.NewServer(cfg.Preview, mgr)
		srv.StatusFunc = func() web.Status {
			mu.Lock()
			defer mu.Unlock()
			st := web.CameraStatus(cam)
			st.Frames, st.Timeouts = frames, timeouts
			return st
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.Error("preview server stopped", "error", err)
			}
		}()
	}

	start := time.Now()
	last := start
	for ctx.Err() == nil && (opts.frames <= 0 || frames < uint64(opts.frames)) {
		mu.Lock()
		f, err := cam.Acquire()
		if err == nil {
			if f.New {
				frames++
			} else {
				timeouts++
			}
			if srv != nil && f.New {
				srv.SendFrame(f.Image)
			}
			if opts.snapshot != "" && f.New && frames == 1 {
				saveSnapshot(opts.snapshot, f.Image)
			}
		}
		n := frames
		mu.Unlock()

		if err != nil {
			return err
		}
		if !f.New {
			log.Debug("camera timeout", "index", opts.index)
			continue
		}
		if f.GrabbedAt.IsZero() {
			debug.FrameLog("frame %d\n", n)
		} else {
			debug.FrameLog("frame %d retrieved in %s\n", n, f.RetrievedAt.Sub(f.GrabbedAt))
		}

		if time.Since(last) >= 5*time.Second {
			elapsed := time.Since(start).Seconds()
			log.Info("acquiring", "frames", n, "fps", fmt.Sprintf("%.1f", float64(n)/elapsed))
			last = time.Now()
		}
	}

	debug.Logln("acquisition loop stopped")
	elapsed := time.Since(start).Seconds()
	mu.Lock()
	log.Info("acquisition finished",
		"frames", frames,
		"timeouts", timeouts,
		"seconds", fmt.Sprintf("%.1f", elapsed),
	)
	mu.Unlock()
	return nil
}
