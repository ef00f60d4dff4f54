//go:build matprofile

package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-psmove/pkg/driver"
)

func TestCalibration_ReloadReleasesMaps(t *testing.T) {
	c := openMock(t, driver.NewMock(1), 320, 240)
	require.NoError(t, c.LoadCalibration(intrinsicsXML, distortionXML))

	before := gocv.MatProfile.Count()
	require.NoError(t, c.LoadCalibration(intrinsicsXML, distortionXML))
	assert.Equal(t, before, gocv.MatProfile.Count())

	c.ResetCalibration()
	assert.Equal(t, before-2, gocv.MatProfile.Count())
}
