//go:build linux

package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blackjack/webcam"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-psmove/pkg/colorspace"
	"github.com/teslashibe/go-psmove/pkg/debug"
)

const (
	pixelFormatYUYV = webcam.PixelFormat(0x56595559)

	// ps3eyeTimeoutSeconds bounds WaitForFrame.
	ps3eyeTimeoutSeconds = 2

	// Kernel module driving the PS3 Eye sensor bridge.
	ps3eyeKernelDriver = "ov534"
)

// V4L2 control IDs.
const (
	cidBrightness       webcam.ControlID = 0x00980900
	cidContrast         webcam.ControlID = 0x00980901
	cidAutoWhiteBalance webcam.ControlID = 0x0098090c
	cidRedBalance       webcam.ControlID = 0x0098090e
	cidBlueBalance      webcam.ControlID = 0x0098090f
	cidExposure         webcam.ControlID = 0x00980911
	cidAutoGain         webcam.ControlID = 0x00980912
	cidGain             webcam.ControlID = 0x00980913
	cidExposureAuto     webcam.ControlID = 0x009a0901
)

// Native PS3 Eye ranges.
const (
	ps3eyeExposureMax   = 255
	ps3eyeGainMax       = 63
	ps3eyeBalanceMax    = 128
	ps3eyeContrastMax   = 255
	ps3eyeBrightnessMax = 255
)

var ps3eyeControls = map[string]webcam.ControlID{
	"brightness":         cidBrightness,
	"contrast":           cidContrast,
	"auto_white_balance": cidAutoWhiteBalance,
	"red_balance":        cidRedBalance,
	"blue_balance":       cidBlueBalance,
	"exposure":           cidExposure,
	"auto_gain":          cidAutoGain,
	"gain":               cidGain,
	"exposure_auto":      cidExposureAuto,
}

// PS3Eye captures YUYV frames from PS3 Eye cameras through V4L2.
type PS3Eye struct {
	// Nodes lists the V4L2 device nodes of PS3 Eye cameras in index order.
	Nodes func() ([]string, error)
}

// NewPS3Eye returns a driver that discovers cameras through sysfs.
func NewPS3Eye() *PS3Eye {
	return &PS3Eye{Nodes: ps3eyeNodes}
}

// Name implements Driver.
func (d *PS3Eye) Name() string { return "ps3eye" }

// Count implements Driver. Cameras are counted on the USB bus; when the bus
// cannot be read the V4L2 nodes are counted instead.
func (d *PS3Eye) Count() (int, error) {
	cams, err := ListPS3Eye()
	if err == nil {
		return len(cams), nil
	}
	nodes, nerr := d.nodes()
	if nerr != nil {
		return 0, errors.Join(err, nerr)
	}
	return len(nodes), nil
}

func (d *PS3Eye) nodes() ([]string, error) {
	if d.Nodes == nil {
		return ps3eyeNodes()
	}
	return d.Nodes()
}

// Open implements Driver.
func (d *PS3Eye) Open(index int, mode Mode) (Device, error) {
	nodes, err := d.nodes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	if index < 0 || index >= len(nodes) {
		return nil, fmt.Errorf("%w: ps3eye index %d (%d v4l2 nodes)", ErrNoDevice, index, len(nodes))
	}
	path := nodes[index]

	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrNoDevice, path, err)
	}
	if _, ok := cam.GetSupportedFormats()[pixelFormatYUYV]; !ok {
		cam.Close()
		return nil, fmt.Errorf("%w: %s does not support YUYV", ErrNoDevice, path)
	}

	format, w, h, err := cam.SetImageFormat(pixelFormatYUYV, uint32(mode.Width), uint32(mode.Height))
	if err != nil || format != pixelFormatYUYV {
		cam.Close()
		return nil, fmt.Errorf("%w: set format on %s: %v", ErrNoDevice, path, err)
	}
	negotiated := Mode{Width: int(w), Height: int(h), Framerate: mode.Framerate}
	if err := cam.SetFramerate(float32(mode.Framerate)); err != nil {
		negotiated.Framerate = 0
	}
	_ = cam.SetBufferCount(2)

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: start streaming %s: %v", ErrNoDevice, path, err)
	}

	return &ps3eyeDevice{
		cam:   cam,
		path:  path,
		mode:  negotiated,
		frame: gocv.NewMatWithSize(negotiated.Height, negotiated.Width, gocv.MatTypeCV8UC3),
	}, nil
}

type ps3eyeDevice struct {
	mu     sync.Mutex
	cam    *webcam.Webcam
	path   string
	mode   Mode
	frame  gocv.Mat
	closed bool
}

func (d *ps3eyeDevice) Mode() Mode { return d.mode }

func (d *ps3eyeDevice) Read() (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Frame{}, ErrClosed
	}

	err := d.cam.WaitForFrame(ps3eyeTimeoutSeconds)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return Frame{Image: &d.frame}, nil
	default:
		return Frame{}, fmt.Errorf("wait for frame on %s: %w", d.path, err)
	}

	buf, err := d.cam.ReadFrame()
	if err != nil {
		return Frame{}, fmt.Errorf("read frame on %s: %w", d.path, err)
	}
	stride, ok := yuyvStride(len(buf), d.mode.Width, d.mode.Height)
	if !ok {
		debug.Log("Short frame on %s: %d bytes\n", d.path, len(buf))
		return Frame{Image: &d.frame}, nil
	}

	dst, err := d.frame.DataPtrUint8()
	if err != nil {
		return Frame{}, err
	}
	if err := colorspace.YUV422ToBGR(buf, stride, dst, d.mode.Width, d.mode.Height); err != nil {
		return Frame{}, fmt.Errorf("convert frame from %s: %w", d.path, err)
	}
	return Frame{Image: &d.frame, New: true}, nil
}

func (d *ps3eyeDevice) SetParameters(p Parameters) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	// V4L2 exposure_auto: 1 is manual, 3 is aperture priority.
	exposureAuto := int32(1)
	if p.AutoExposure {
		exposureAuto = 3
	}
	d.set(cidExposureAuto, exposureAuto)
	d.set(cidAutoGain, int32(boolInt(p.AutoGain)))
	d.set(cidAutoWhiteBalance, int32(boolInt(p.AutoWhiteBalance)))
	d.set(cidExposure, int32(Rescale(p.Exposure, ps3eyeExposureMax)))
	if !p.AutoGain {
		d.set(cidGain, int32(Rescale(p.Gain, ps3eyeGainMax)))
	}
	if !p.AutoWhiteBalance {
		d.set(cidRedBalance, int32(Rescale(p.WhiteBalanceRed, ps3eyeBalanceMax)))
		d.set(cidBlueBalance, int32(Rescale(p.WhiteBalanceBlue, ps3eyeBalanceMax)))
	}
	d.set(cidContrast, int32(Rescale(p.Contrast, ps3eyeContrastMax)))
	d.set(cidBrightness, int32(Rescale(p.Brightness, ps3eyeBrightnessMax)))
	return nil
}

// set ignores controls the kernel driver does not expose.
func (d *ps3eyeDevice) set(id webcam.ControlID, v int32) {
	_ = d.cam.SetControl(id, v)
}

func (d *ps3eyeDevice) Controls() (map[string]int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	values := make(map[string]int32, len(ps3eyeControls))
	for name, id := range ps3eyeControls {
		v, err := d.cam.GetControl(id)
		if err != nil {
			continue
		}
		values[name] = v
	}
	return values, nil
}

func (d *ps3eyeDevice) RestoreControls(values map[string]int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	for name, v := range values {
		id, ok := ps3eyeControls[name]
		if !ok {
			return fmt.Errorf("unknown control %q", name)
		}
		d.set(id, v)
	}
	return nil
}

func (d *ps3eyeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	_ = d.cam.StopStreaming()
	err := d.cam.Close()
	d.frame.Close()
	return err
}

// ps3eyeNodes returns /dev/videoN nodes bound to the PS3 Eye kernel driver,
// sorted by N.
func ps3eyeNodes() ([]string, error) {
	entries, err := os.ReadDir("/sys/class/video4linux")
	if err != nil {
		return nil, fmt.Errorf("list video4linux: %w", err)
	}

	var nums []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "video") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, "video"))
		if err != nil {
			continue
		}
		link, err := os.Readlink(filepath.Join("/sys/class/video4linux", name, "device", "driver"))
		if err != nil || filepath.Base(link) != ps3eyeKernelDriver {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)

	nodes := make([]string, 0, len(nums))
	for _, n := range nums {
		nodes = append(nodes, fmt.Sprintf("/dev/video%d", n))
	}
	return nodes, nil
}

// yuyvStride returns the row pitch of an n byte YUYV buffer. Truncated
// buffers report false and are treated like a missed frame.
func yuyvStride(n, width, height int) (int, bool) {
	if height <= 0 || n < 2*width*height {
		return 0, false
	}
	return n / height, true
}
