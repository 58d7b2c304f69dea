// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/errors"
)

const (
	// DefaultVideoBitrate is the record branch's target bitrate, in bits per second.
	DefaultVideoBitrate = 8_500_000

	defaultStartTimeout = time.Second * 10
	defaultPollInterval = time.Millisecond * 50
	defaultEOSTimeout   = time.Second * 30
)

type RecorderConfig struct {
	Logging *logger.Config `yaml:"logging"` // logging config

	// capture
	Capture      CaptureParams `yaml:"capture"`       // default capture params for the cli
	Elements     ElementConfig `yaml:"elements"`      // element factory overrides
	VideoBitrate int           `yaml:"video_bitrate"` // encoder target, in bits per second

	// lifecycle
	StartTimeout time.Duration `yaml:"start_timeout"` // max wait for the pipeline to reach playing
	PollInterval time.Duration `yaml:"poll_interval"` // event wait per loop iteration, bounds stop latency
	EOSTimeout   time.Duration `yaml:"eos_timeout"`   // max wait for EOS to drain after stop

	// optional
	PrometheusPort int            `yaml:"prometheus_port"`   // serve metrics when non-zero
	StorageConfig  *StorageConfig `yaml:"storage,omitempty"` // upload finished recordings
	BackupConfig   *StorageConfig `yaml:"backup,omitempty"`  // backup config, for storage failures
	Debug          DebugConfig    `yaml:"debug"`
}

type ElementConfig struct {
	Source      string `yaml:"source"`       // platform video source
	PreviewSink string `yaml:"preview_sink"` // platform display sink
	Converter   string `yaml:"converter"`    // color space conversion
	Encoder     string `yaml:"encoder"`      // h264 encoder
}

type DebugConfig struct {
	DotDir           string `yaml:"dot_dir"`              // write a dot file here when a session fails
	EngineLogFile    string `yaml:"engine_log_file"`      // write engine messages to a rotating file
	EngineLogMaxSize int    `yaml:"engine_log_max_size"`  // megabytes per engine log file
	EngineLogBackups int    `yaml:"engine_log_max_files"` // rotated engine log files to keep
}

func DefaultRecorderConfig() *RecorderConfig {
	conf := &RecorderConfig{
		Logging: &logger.Config{
			Level: "info",
		},
		Capture: CaptureParams{
			Width:       1280,
			Height:      720,
			Framerate:   Fraction{Num: 30, Den: 1},
			PixelFormat: "NV12",
		},
	}
	conf.applyDefaults()
	return conf
}

func NewRecorderConfig(confString string) (*RecorderConfig, error) {
	conf := DefaultRecorderConfig()
	if confString != "" {
		if err := yaml.Unmarshal([]byte(confString), conf); err != nil {
			return nil, errors.ErrCouldNotParseConfig(err)
		}
	}

	conf.applyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *RecorderConfig) applyDefaults() {
	if c.Logging == nil {
		c.Logging = &logger.Config{Level: "info"}
	}
	c.Elements.applyDefaults()
	if c.VideoBitrate <= 0 {
		c.VideoBitrate = DefaultVideoBitrate
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = defaultStartTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.EOSTimeout <= 0 {
		c.EOSTimeout = defaultEOSTimeout
	}
	if c.Debug.EngineLogMaxSize <= 0 {
		c.Debug.EngineLogMaxSize = 50
	}
	if c.Debug.EngineLogBackups <= 0 {
		c.Debug.EngineLogBackups = 3
	}
	c.StorageConfig.applyDefaults()
	c.BackupConfig.applyDefaults()
}

func (c *RecorderConfig) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return errors.ErrCouldNotParseConfig(err)
	}
	if c.PollInterval > c.StartTimeout {
		return errors.ErrCouldNotParseConfig(errors.ErrInvalidInput("poll_interval"))
	}
	return nil
}

func (c *RecorderConfig) InitLogger(values ...interface{}) error {
	_, exists := os.LookupEnv("GST_DEBUG")

	// If GST_DEBUG is not set, use pre-defined values based on logging level
	if !exists {
		var gstDebug []string
		switch c.Logging.Level {
		case "debug":
			gstDebug = []string{"3"}
		case "info", "warn":
			gstDebug = []string{"2"}
		case "error":
			gstDebug = []string{"1"}
		}
		gstDebug = append(gstDebug,
			"v4l2src:3",
			"filesink:3",
		)

		if err := os.Setenv("GST_DEBUG", strings.Join(gstDebug, ",")); err != nil {
			return err
		}
	}

	zl, err := logger.NewZapLogger(c.Logging)
	if err != nil {
		return err
	}

	l := zl.WithValues(values...)
	logger.SetLogger(l, "recorder")
	return nil
}
