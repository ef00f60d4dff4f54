package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-psmove/internal/config"
	"github.com/teslashibe/go-psmove/pkg/camera"
	"github.com/teslashibe/go-psmove/pkg/driver"
)

func newTestServer(t *testing.T) (*Server, *camera.Camera, *camera.Manager) {
	t.Helper()
	cam, err := camera.Open(0, 32, 24, 30, camera.PS3EyeBlueDot,
		camera.WithDriver(driver.NewMock(1)), camera.WithConfig(config.Default()))
	require.NoError(t, err)
	t.Cleanup(func() { cam.Close() })

	mgr := camera.NewManager(camera.DefaultSettings())
	mgr.OnChange = cam.Apply

	s := NewServer(config.PreviewConfig{MaxFPS: 100, Quality: 70}, mgr)
	s.StatusFunc = func() Status { return CameraStatus(cam) }
	return s, cam, mgr
}

func doJSON(t *testing.T, s *Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestStatus(t *testing.T) {
	s, cam, _ := newTestServer(t)

	code, out := doJSON(t, s, "GET", "/api/status", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, cam.ID().String(), out["camera_id"])
	assert.Equal(t, "mock", out["driver"])
	assert.Equal(t, float64(32), out["width"])
	assert.Equal(t, float64(24), out["height"])
	assert.Equal(t, false, out["calibrated"])
}

func TestStatus_Unavailable(t *testing.T) {
	s := NewServer(config.PreviewConfig{}, camera.NewManager(camera.DefaultSettings()))
	code, out := doJSON(t, s, "GET", "/api/status", "")
	assert.Equal(t, 503, code)
	assert.Contains(t, out, "error")
}

func TestDeinterlace(t *testing.T) {
	s, cam, mgr := newTestServer(t)

	code, out := doJSON(t, s, "POST", "/api/deinterlace", `{"enabled":true}`)
	assert.Equal(t, 200, code)
	assert.Equal(t, true, out["deinterlace"])
	assert.True(t, cam.Deinterlace())
	assert.True(t, mgr.Settings().Deinterlace)
}

func TestCalibration(t *testing.T) {
	s, cam, _ := newTestServer(t)

	body := `{"intrinsics":"../calibration/testdata/intrinsics.xml","distortion":"../calibration/testdata/distortion.xml"}`
	code, _ := doJSON(t, s, "POST", "/api/calibration", body)
	assert.Equal(t, 200, code)
	assert.True(t, cam.Calibrated())

	code, out := doJSON(t, s, "DELETE", "/api/calibration", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "", out["intrinsics"])
	assert.False(t, cam.Calibrated())

	code, _ = doJSON(t, s, "POST", "/api/calibration", `{"intrinsics":"only.xml"}`)
	assert.Equal(t, 400, code)

	code, out = doJSON(t, s, "POST", "/api/calibration", `{"intrinsics":"a.xml","distortion":"b.xml"}`)
	assert.Equal(t, 422, code)
	assert.Contains(t, out["error"], "calibration")
	assert.False(t, cam.Calibrated())
}

func TestParameters(t *testing.T) {
	s, _, mgr := newTestServer(t)

	code, out := doJSON(t, s, "GET", "/api/parameters", "")
	assert.Equal(t, 200, code)
	assert.Contains(t, out, "parameters")

	code, out = doJSON(t, s, "POST", "/api/parameters", `{"preset":"tracking","exposure":4096}`)
	assert.Equal(t, 200, code)
	params := out["parameters"].(map[string]interface{})
	assert.Equal(t, float64(4096), params["exposure"])
	assert.Equal(t, false, params["auto_exposure"])
	assert.Equal(t, uint16(4096), mgr.Settings().Parameters.Exposure)

	code, _ = doJSON(t, s, "POST", "/api/parameters", `{"zoom":2}`)
	assert.Equal(t, 422, code)
}

func TestPresets(t *testing.T) {
	s, _, _ := newTestServer(t)
	code, out := doJSON(t, s, "GET", "/api/presets", "")
	assert.Equal(t, 200, code)
	assert.Len(t, out["names"], len(camera.PresetNames()))
}

func TestCameraWS_RequiresUpgrade(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/camera", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestCameraWS_StreamsJPEG(t *testing.T) {
	s, cam, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, ln)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/camera", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	f, err := cam.Acquire()
	require.NoError(t, err)
	s.SendFrame(f.Image)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2], "payload must be a JPEG")

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 32, img.Cols())
	assert.Equal(t, 24, img.Rows())

	code, out := doJSON(t, s, "GET", "/api/status", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, float64(1), out["preview_sent"])
}

func TestServe_Once(t *testing.T) {
	s, _, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, ln)
	require.Eventually(t, s.cameraHub.IsRunning, 2*time.Second, 10*time.Millisecond)

	second, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer second.Close()
	assert.ErrorIs(t, s.Serve(ctx, second), ErrServing)
	assert.True(t, s.cameraHub.IsRunning())
}

func TestSendFrame_NoClients(t *testing.T) {
	s, cam, _ := newTestServer(t)
	f, err := cam.Acquire()
	require.NoError(t, err)

	s.SendFrame(f.Image)
	s.SendFrame(nil)
	assert.Equal(t, uint64(0), s.sent.Load())
}
