// Package web serves a live preview of the tracking camera and a small API
// to tune it while it runs.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/teslashibe/go-psmove/internal/config"
	"github.com/teslashibe/go-psmove/internal/log"
	"github.com/teslashibe/go-psmove/pkg/camera"
	"github.com/teslashibe/go-psmove/pkg/debug"
	"github.com/teslashibe/go-psmove/pkg/hub"
)

// Status is the camera state reported by the API.
type Status struct {
	CameraID    string  `json:"camera_id"`
	Index       int     `json:"index"`
	Driver      string  `json:"driver"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Framerate   int     `json:"framerate"`
	Deinterlace bool    `json:"deinterlace"`
	Calibrated  bool    `json:"calibrated"`
	FocalX      float64 `json:"focal_x"`
	FocalY      float64 `json:"focal_y"`
	Frames      uint64  `json:"frames"`
	Timeouts    uint64  `json:"timeouts"`

	PreviewClients int    `json:"preview_clients"`
	PreviewSent    uint64 `json:"preview_sent"`
}

// CameraStatus describes c. The caller must hold whatever lock guards c.
func CameraStatus(c *camera.Camera) Status {
	fx, fy := c.FocalLength()
	return Status{
		CameraID:    c.ID().String(),
		Index:       c.Index(),
		Driver:      c.DriverName(),
		Width:       c.Width(),
		Height:      c.Height(),
		Framerate:   c.Framerate(),
		Deinterlace: c.Deinterlace(),
		Calibrated:  c.Calibrated(),
		FocalX:      fx,
		FocalY:      fy,
	}
}

// Server is the preview server
type Server struct {
	app     *fiber.App
	cfg     config.PreviewConfig
	manager *camera.Manager
	logger  *slog.Logger

	cameraHub *hub.Hub
	limiter   *rate.Limiter
	sent      atomic.Uint64
	serving   atomic.Bool

	// StatusFunc reports the camera state for GET /api/status.
	StatusFunc func() Status
}

// NewServer creates a preview server that applies changes through manager.
func NewServer(cfg config.PreviewConfig, manager *camera.Manager) *Server {
	limit := rate.Inf
	if cfg.MaxFPS > 0 {
		limit = rate.Limit(cfg.MaxFPS)
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 80
	}

	s := &Server{
		cfg:       cfg,
		manager:   manager,
		logger:    log.With("component", "preview"),
		cameraHub: hub.New("camera"),
		limiter:   rate.NewLimiter(limit, 1),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-psmove preview",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if debug.Enabled {
		app.Use(logger.New(logger.Config{Output: os.Stderr}))
	}
	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/deinterlace", s.handleDeinterlace)
	api.Post("/calibration", s.handleLoadCalibration)
	api.Delete("/calibration", s.handleResetCalibration)
	api.Get("/parameters", s.handleGetParameters)
	api.Post("/parameters", s.handleSetParameters)
	api.Get("/presets", s.handlePresets)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("preview listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// ErrServing is returned when Serve or Start is called more than once.
var ErrServing = errors.New("preview server already serving")

// Serve serves on ln until ctx is done. A Server serves once.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.serving.CompareAndSwap(false, true) {
		return ErrServing
	}
	s.logger.Info("preview server listening", "addr", ln.Addr().String())

	go s.cameraHub.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("preview shutdown", "error", err)
		}
	}()

	if err := s.app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// SendFrame encodes img as JPEG and broadcasts it to preview clients.
// Frames are skipped when nobody watches or the rate limit is exceeded.
// It must be called from the goroutine that owns img.
func (s *Server) SendFrame(img *gocv.Mat) {
	if img == nil || img.Empty() || s.cameraHub.ClientCount() == 0 || !s.limiter.Allow() {
		return
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *img, []int{gocv.IMWriteJpegQuality, s.cfg.Quality})
	if err != nil {
		s.logger.Warn("preview frame encode failed", "error", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	s.cameraHub.BroadcastBinary(data)
	s.sent.Add(1)
}

// Clients returns the number of connected preview clients.
func (s *Server) Clients() int {
	return s.cameraHub.ClientCount()
}

// GetCameraHub returns the camera hub for external use
func (s *Server) GetCameraHub() *hub.Hub {
	return s.cameraHub
}
