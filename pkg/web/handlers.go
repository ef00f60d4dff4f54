package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-psmove/pkg/camera"
	"github.com/teslashibe/go-psmove/pkg/hub"
)

// handleStatus returns the camera state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.StatusFunc == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "camera status not available",
		})
	}
	st := s.StatusFunc()
	st.PreviewClients = s.cameraHub.ClientCount()
	st.PreviewSent = s.sent.Load()
	return c.JSON(st)
}

// DeinterlaceRequest is the request body for POST /api/deinterlace
type DeinterlaceRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleDeinterlace(c *fiber.Ctx) error {
	var req DeinterlaceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	return s.update(c, map[string]interface{}{"deinterlace": req.Enabled})
}

// CalibrationRequest is the request body for POST /api/calibration
type CalibrationRequest struct {
	Intrinsics string `json:"intrinsics"`
	Distortion string `json:"distortion"`
}

func (s *Server) handleLoadCalibration(c *fiber.Ctx) error {
	var req CalibrationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if req.Intrinsics == "" || req.Distortion == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "intrinsics and distortion are required",
		})
	}
	return s.update(c, map[string]interface{}{
		"intrinsics": req.Intrinsics,
		"distortion": req.Distortion,
	})
}

func (s *Server) handleResetCalibration(c *fiber.Ctx) error {
	return s.update(c, map[string]interface{}{"intrinsics": "", "distortion": ""})
}

func (s *Server) handleGetParameters(c *fiber.Ctx) error {
	return c.JSON(s.manager.SettingsJSON())
}

// handleSetParameters accepts any settings field plus "preset"
func (s *Server) handleSetParameters(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return badRequest(c, err)
	}
	return s.update(c, params)
}

func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"names":   camera.PresetNames(),
		"presets": camera.Presets(),
	})
}

func (s *Server) update(c *fiber.Ctx, params map[string]interface{}) error {
	if err := s.manager.UpdateSettings(params); err != nil {
		s.logger.Warn("settings update rejected", "error", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.manager.SettingsJSON())
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// handleCameraWS streams preview frames until the client disconnects
func (s *Server) handleCameraWS(conn *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, conn)
	if client == nil {
		return
	}
	client.Run()
}
