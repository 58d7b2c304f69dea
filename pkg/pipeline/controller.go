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
	"context"
	"path/filepath"
	"runtime"
	"time"

	"github.com/frostbyte73/core"
	"github.com/linkdata/deadlock"
	"go.opentelemetry.io/otel"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/info"
	"github.com/livekit/webcam-recorder/pkg/pipeline/builder"
	"github.com/livekit/webcam-recorder/pkg/stats"
	"github.com/livekit/webcam-recorder/pkg/sysload"
	"github.com/livekit/webcam-recorder/pkg/types"
	"github.com/livekit/webcam-recorder/pkg/uploader"
)

const pipelineName = "pipeline"

var tracer = otel.Tracer("github.com/livekit/webcam-recorder/pkg/pipeline")

// Controller owns one capture session. Run executes on the session's worker and is the
// only code that touches the graph; other goroutines use Stop, Playing, Done and Info.
type Controller struct {
	*config.PipelineConfig

	engine    engine.Engine
	gstLogger *zap.SugaredLogger
	closeLog  func()
	graph     *builder.CaptureGraph
	monitor   *stats.Monitor
	state     StateManager
	createdAt time.Time

	// cross-goroutine
	running       atomic.Bool
	stopRequested atomic.Bool
	playing       core.Fuse
	done          core.Fuse

	// worker only
	eosSent     core.Fuse
	eosDeadline time.Time

	mu   deadlock.Mutex
	info *info.SessionInfo
	err  error
}

func New(conf *config.PipelineConfig, e engine.Engine, monitor *stats.Monitor) *Controller {
	gstLogger, closeLog := newEngineLogger(&conf.Debug)
	return &Controller{
		PipelineConfig: conf,
		engine:         e,
		gstLogger:      gstLogger,
		closeLog:       closeLog,
		monitor:        monitor,
		createdAt:      time.Now(),
		info:           info.New(conf),
	}
}

// Run blocks until the session has ended and the graph is back in the null state.
func (c *Controller) Run(ctx context.Context) *info.SessionInfo {
	ctx, span := tracer.Start(ctx, "Controller.Run")
	defer span.End()

	// some platform sources require every call from the same thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer c.done.Break()
	defer c.closeLog()

	logger.Debugw("starting capture session",
		"sessionID", c.SessionID,
		"destination", c.Destination,
		"params", c.Params.String(),
	)

	if err := c.build(ctx); err != nil {
		c.OnError(errors.NewStartupError(errors.PhaseConstruction, err))
		c.close(ctx)
		return c.Info()
	}

	if c.stopRequested.Load() {
		c.close(ctx)
		return c.Info()
	}

	c.state.UpgradeState(StateStarting)
	logger.Debugw("setting state to playing")
	if err := c.graph.SetState(engine.StatePlaying); err != nil {
		c.OnError(errors.NewStartupError(errors.PhaseActivation, errors.ErrActivationFailed(err)))
	} else {
		c.watch()
	}

	c.close(ctx)
	return c.Info()
}

func (c *Controller) build(ctx context.Context) error {
	_, span := tracer.Start(ctx, "Controller.build")
	defer span.End()

	if err := c.engine.Init(); err != nil {
		return errors.ErrGstPipelineError(err)
	}

	g, err := c.engine.NewGraph(pipelineName)
	if err != nil {
		return errors.ErrGstPipelineError(err)
	}

	c.graph, err = builder.BuildCaptureGraph(g, c.PipelineConfig)
	return err
}

// Stop requests the worker to end the session. Safe from any goroutine, any number of times.
func (c *Controller) Stop() {
	if c.stopRequested.CompareAndSwap(false, true) {
		logger.Debugw("stop requested", "sessionID", c.SessionID)
	}
}

func (c *Controller) StopRequested() bool {
	return c.stopRequested.Load()
}

func (c *Controller) IsRunning() bool {
	return c.running.Load()
}

// Playing is closed once the whole graph reached the playing state.
func (c *Controller) Playing() <-chan struct{} {
	return c.playing.Watch()
}

// Done is closed once the worker has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done.Watch()
}

// Err returns the error that ended the session, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Info returns a snapshot of the session info.
func (c *Controller) Info() *info.SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := *c.info
	return &snapshot
}

func (c *Controller) GetState() State {
	return c.state.GetState()
}

// OnError records the first error; later errors are logged only.
func (c *Controller) OnError(err error) {
	logger.Errorw("controller onError invoked", err, "sessionID", c.SessionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return
	}
	c.err = err
	c.info.SetFailed(err)
}

func (c *Controller) onPlaying() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}

	now := time.Now()
	c.state.UpgradeState(StateRunning)
	c.mu.Lock()
	c.info.SetActive(now.UnixNano())
	c.mu.Unlock()

	c.monitor.SessionStarted(now.Sub(c.createdAt))
	logger.Infow("capture running",
		"sessionID", c.SessionID,
		"destination", c.Destination,
		"startLatency", now.Sub(c.createdAt),
	)
	c.playing.Break()

	go sysload.MonitorLoad(c.SessionID, c.done.Watch(), func(s sysload.Sample) {
		c.monitor.SetSystemLoad(s.CPULoad, s.MemoryUsed)
	})
}

// sendEOS pushes end of stream through the graph once, so the muxer can write its index.
// A refused event fails the session, since the file cannot be finalized.
func (c *Controller) sendEOS() bool {
	accepted := true
	c.eosSent.Once(func() {
		c.state.UpgradeState(StateEOS)
		c.mu.Lock()
		c.info.UpdateStatus(types.SessionStatusEnding)
		c.mu.Unlock()

		c.eosDeadline = time.Now().Add(c.EOSTimeout)
		if accepted = c.graph.SendEOS(); accepted {
			logger.Debugw("eos sent")
		} else {
			c.OnError(errors.ErrGstPipelineError(errors.ErrEOSRefused))
		}
	})
	return accepted
}

func (c *Controller) close(ctx context.Context) {
	_, span := tracer.Start(ctx, "Controller.close")
	defer span.End()

	c.state.UpgradeState(StateStopping)

	errs := errors.ErrArray{}
	if c.graph != nil {
		if c.Err() != nil && c.Debug.DotDir != "" {
			c.generateDotFile()
		}
		logger.Debugw("setting state to null")
		errs.Check(c.graph.SetState(engine.StateNull))
	}

	// ensure the session ends with a final state
	c.mu.Lock()
	switch c.info.Status {
	case types.SessionStatusStarting:
		c.info.SetAborted(info.MsgStoppedBeforeStarted)
	case types.SessionStatusActive, types.SessionStatusEnding:
		c.info.SetComplete()
	}
	status := c.info.Status
	c.mu.Unlock()

	if status == types.SessionStatusComplete && c.StorageConfig != nil {
		errs.Check(c.upload(ctx))
	}

	if errs.Len() > 0 {
		logger.Warnw("session teardown incomplete", errs.ToError(), "sessionID", c.SessionID)
	}

	snapshot := c.Info()
	c.monitor.SessionEnded(snapshot.Status, c.running.Load(), snapshot.Duration())
	c.state.UpgradeState(StateFinished)

	logger.Infow("capture session ended",
		"sessionID", c.SessionID,
		"status", snapshot.Status,
		"details", snapshot.Details,
		"error", snapshot.Error,
		"duration", snapshot.Duration(),
	)
}

func (c *Controller) upload(ctx context.Context) error {
	_, span := tracer.Start(ctx, "Controller.upload")
	defer span.End()

	u, err := uploader.New(c.StorageConfig, c.BackupConfig, c.monitor)
	if err != nil {
		c.mu.Lock()
		c.info.SetUploadFailed(err)
		c.mu.Unlock()
		return err
	}

	location, size, err := u.Upload(c.Destination, filepath.Base(c.Destination), c.OutputType)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.info.SetUploadFailed(err)
		return err
	}
	c.info.Location = location
	c.info.Size = size
	c.info.BackupStorageUsed = u.BackupUsed()
	logger.Infow("recording uploaded", "location", location, "size", size)
	return nil
}
