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

package pipeline

import (
	"fmt"
	"os"
	"path"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/config"
)

func (c *Controller) GetPipelineDebugDot() string {
	if c.graph == nil {
		return ""
	}
	return c.graph.DebugDot()
}

func (c *Controller) generateDotFile() {
	dot := c.GetPipelineDebugDot()
	if dot == "" {
		return
	}

	if err := os.MkdirAll(c.Debug.DotDir, 0755); err != nil {
		logger.Errorw("failed to create debug directory", err)
		return
	}

	filename := path.Join(c.Debug.DotDir, fmt.Sprintf("%s.dot", c.SessionID))
	if err := os.WriteFile(filename, []byte(dot), 0644); err != nil {
		logger.Errorw("failed to write dot file", err)
		return
	}
	logger.Infow("dot file written", "location", filename)
}

// newEngineLogger returns the logger for engine messages and a func releasing it.
func newEngineLogger(conf *config.DebugConfig) (*zap.SugaredLogger, func()) {
	if conf.EngineLogFile != "" {
		w := &lumberjack.Logger{
			Filename:   conf.EngineLogFile,
			MaxSize:    conf.EngineLogMaxSize,
			MaxBackups: conf.EngineLogBackups,
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			zapcore.DebugLevel,
		)
		return zap.New(core).Sugar(), func() {
			_ = w.Close()
		}
	}

	if zl, ok := logger.GetLogger().(logger.ZapLogger); ok {
		return zl.ToZap().WithOptions(zap.WithCaller(false)), func() {}
	}
	return zap.NewNop().Sugar(), func() {}
}
