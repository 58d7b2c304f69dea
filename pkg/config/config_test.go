package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
)

func TestNewRecorderConfigDefaults(t *testing.T) {
	conf, err := NewRecorderConfig("")
	require.NoError(t, err)

	require.Equal(t, "info", conf.Logging.Level)
	require.Equal(t, DefaultVideoBitrate, conf.VideoBitrate)
	require.Equal(t, 8_500_000, conf.VideoBitrate)
	require.Equal(t, defaultStartTimeout, conf.StartTimeout)
	require.Equal(t, defaultPollInterval, conf.PollInterval)
	require.Equal(t, defaultEOSTimeout, conf.EOSTimeout)
	require.Equal(t, ElementAutoVideoSrc, conf.Elements.Source)
	require.Equal(t, ElementAutoVideoSink, conf.Elements.PreviewSink)
	require.Equal(t, ElementVideoConvert, conf.Elements.Converter)
	require.NotEmpty(t, conf.Elements.Encoder)
	require.Equal(t, int32(1280), conf.Capture.Width)
	require.Equal(t, int32(720), conf.Capture.Height)
	require.Equal(t, Fraction{Num: 30, Den: 1}, conf.Capture.Framerate)
	require.Equal(t, "NV12", conf.Capture.PixelFormat)
	require.Nil(t, conf.StorageConfig)
}

func TestNewRecorderConfigYAML(t *testing.T) {
	conf, err := NewRecorderConfig(`
logging:
  level: debug
capture:
  width: 640
  height: 480
  framerate:
    num: 15
    den: 1
  pixel_format: YUY2
elements:
  source: v4l2src
  encoder: openh264enc
start_timeout: 3s
poll_interval: 20ms
storage:
  prefix: recordings
  s3:
    bucket: camera
    region: us-west-2
debug:
  dot_dir: /tmp/dots
`)
	require.NoError(t, err)

	require.Equal(t, "debug", conf.Logging.Level)
	require.Equal(t, int32(640), conf.Capture.Width)
	require.Equal(t, Fraction{Num: 15, Den: 1}, conf.Capture.Framerate)
	require.Equal(t, "YUY2", conf.Capture.PixelFormat)
	require.Equal(t, "v4l2src", conf.Elements.Source)
	require.Equal(t, "openh264enc", conf.Elements.Encoder)
	require.Equal(t, ElementAutoVideoSink, conf.Elements.PreviewSink)
	require.Equal(t, 3*time.Second, conf.StartTimeout)
	require.Equal(t, 20*time.Millisecond, conf.PollInterval)
	require.Equal(t, defaultEOSTimeout, conf.EOSTimeout)
	require.Equal(t, "/tmp/dots", conf.Debug.DotDir)

	require.NotNil(t, conf.StorageConfig)
	require.Equal(t, "recordings", conf.StorageConfig.Prefix)
	require.Equal(t, "camera", conf.StorageConfig.S3.Bucket)
	require.Equal(t, 5, conf.StorageConfig.S3.MaxRetries)
	require.Equal(t, 5*time.Second, conf.StorageConfig.S3.MaxRetryDelay)
	require.Equal(t, 100*time.Millisecond, conf.StorageConfig.S3.MinRetryDelay)
}

func TestNewRecorderConfigInvalid(t *testing.T) {
	_, err := NewRecorderConfig("capture: [")
	require.Error(t, err)

	_, err = NewRecorderConfig("capture:\n  width: -1\n")
	require.Error(t, err)

	_, err = NewRecorderConfig("start_timeout: 10ms\npoll_interval: 1s\n")
	require.Error(t, err)
}

func TestCaptureParams(t *testing.T) {
	p := &CaptureParams{
		Width:       1280,
		Height:      720,
		Framerate:   Fraction{Num: 30, Den: 1},
		PixelFormat: "NV12",
	}
	require.NoError(t, p.Validate())
	require.Equal(t, engine.Caps("video/x-raw,width=1280,height=720,framerate=30/1,format=NV12"), p.Caps())

	clone := p.Clone()
	clone.Width = 640
	require.Equal(t, int32(1280), p.Width)

	p.PixelFormat = ""
	require.Equal(t, engine.Caps("video/x-raw,width=1280,height=720,framerate=30/1"), p.Caps())

	for field, invalid := range map[string]*CaptureParams{
		"width":                 {Width: 0, Height: 720, Framerate: Fraction{30, 1}},
		"height":                {Width: 1280, Height: -1, Framerate: Fraction{30, 1}},
		"framerate numerator":   {Width: 1280, Height: 720, Framerate: Fraction{0, 1}},
		"framerate denominator": {Width: 1280, Height: 720, Framerate: Fraction{30, 0}},
	} {
		t.Run(field, func(t *testing.T) {
			err := invalid.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), field)
		})
	}

	var nilParams *CaptureParams
	require.Error(t, nilParams.Validate())
	require.Nil(t, nilParams.Clone())
}

func TestValidateDestination(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, ValidateDestination(filepath.Join(dir, "out.mkv")))
	require.ErrorIs(t, ValidateDestination(""), errors.ErrNoDestination)
	require.Error(t, ValidateDestination(filepath.Join(dir, "missing", "out.mkv")))
	require.Error(t, ValidateDestination(dir))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	require.Error(t, ValidateDestination(filepath.Join(file, "out.mkv")))

	// validation never creates the destination
	_, err := os.Stat(filepath.Join(dir, "out.mkv"))
	require.True(t, os.IsNotExist(err))
}
