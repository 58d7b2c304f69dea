// Copyright 2024 LiveKit, Inc.
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

// Package recorder starts and stops camera capture sessions.
//
// Start returns only once the capture graph is playing, or fails with a
// *errors.StartupError. The returned Handle stops the session from any goroutine.
package recorder

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/pipeline"
	"github.com/livekit/webcam-recorder/pkg/stats"
)

var tracer = otel.Tracer("github.com/livekit/webcam-recorder/pkg/recorder")

type Recorder struct {
	conf    *config.RecorderConfig
	engine  engine.Engine
	monitor *stats.Monitor
}

// New returns a Recorder starting sessions on the given engine. A nil conf uses defaults.
func New(conf *config.RecorderConfig, e engine.Engine, monitor *stats.Monitor) *Recorder {
	if conf == nil {
		conf = config.DefaultRecorderConfig()
	}
	return &Recorder{
		conf:    conf,
		engine:  e,
		monitor: monitor,
	}
}

// Start builds and activates a capture graph recording to destination, and blocks
// until it is playing. No worker is spawned when params or destination are invalid.
func (r *Recorder) Start(ctx context.Context, params *config.CaptureParams, destination string) (*Handle, error) {
	ctx, span := tracer.Start(ctx, "Recorder.Start")
	defer span.End()

	p, err := config.NewPipelineConfig(r.conf, params, destination)
	if err != nil {
		return nil, errors.NewStartupError(errors.PhaseConstruction, err)
	}

	c := pipeline.New(p, r.engine, r.monitor)
	go c.Run(context.WithoutCancel(ctx))

	timer := time.NewTimer(p.StartTimeout)
	defer timer.Stop()

	select {
	case <-c.Playing():
		return &Handle{c: c}, nil

	case <-c.Done():
		if c.IsRunning() {
			// played, then ended on its own
			return &Handle{c: c}, nil
		}
		return nil, startupError(c.Err())

	case <-timer.C:
		err = errors.ErrStartTimeout

	case <-ctx.Done():
		err = ctx.Err()
	}

	logger.Warnw("capture did not start", err, "sessionID", p.SessionID)
	c.Stop()
	select {
	case <-c.Done():
	case <-time.After(p.EOSTimeout):
		logger.Warnw("worker still running after stop", nil, "sessionID", p.SessionID)
	}
	return nil, errors.NewStartupError(errors.PhaseActivation, err)
}

// Stop requests the session behind h to end. It never blocks and is a no-op on a
// nil, stopped or finished handle.
func Stop(h *Handle) {
	h.Stop()
}

func startupError(err error) error {
	if err == nil {
		return errors.NewStartupError(errors.PhaseActivation, errors.ErrSessionEnded)
	}

	var startupErr *errors.StartupError
	if errors.As(err, &startupErr) {
		return startupErr
	}
	return errors.NewStartupError(errors.PhaseActivation, err)
}
