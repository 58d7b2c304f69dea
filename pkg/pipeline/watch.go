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
	"time"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
)

// watch runs the event loop until end of stream, a fatal error, or a stop request.
// The stop flag is checked on every iteration, so stop latency is bounded by the poll interval.
func (c *Controller) watch() {
	for {
		if c.stopRequested.Load() && !c.handleStop() {
			return
		}

		if ev := c.graph.NextEvent(c.PollInterval); ev != nil {
			if !c.handleEvent(ev) {
				return
			}
		}

		if c.eosSent.IsBroken() && time.Now().After(c.eosDeadline) {
			c.monitor.IncEOSTimeout()
			c.OnError(errors.ErrEOSTimeout)
			return
		}
	}
}

// handleStop returns false if the loop should exit now.
func (c *Controller) handleStop() bool {
	if !c.running.Load() {
		logger.Debugw("stopped before playing", "sessionID", c.SessionID)
		return false
	}
	return c.sendEOS()
}

// handleEvent returns false if the loop should exit.
func (c *Controller) handleEvent(ev *engine.Event) bool {
	switch ev.Type {
	case engine.EventEOS:
		logger.Debugw("EOS received, stopping pipeline")
		c.state.UpgradeState(StateStopping)
		return false

	case engine.EventError:
		c.handleMessageError(ev)
		return false

	case engine.EventWarning:
		c.gstLogger.Warnw(ev.Description, "source", ev.Source, "error", ev.Err, "debug", ev.Debug)

	case engine.EventStateChanged:
		c.handleMessageStateChanged(ev)

	default:
		c.gstLogger.Debugw(ev.Description, "source", ev.Source)
	}

	return true
}

func (c *Controller) handleMessageError(ev *engine.Event) {
	rtErr := newRuntimeError(ev)
	c.monitor.IncRuntimeError(rtErr.Category)
	logger.Errorw("pipeline error", rtErr.Err,
		"category", rtErr.Category,
		"element", ev.Source,
		"debug", ev.Debug,
	)

	if c.running.Load() {
		c.OnError(rtErr)
	} else {
		c.OnError(errors.NewStartupError(errors.PhaseActivation, rtErr))
	}
}

// only the graph's own transition marks the session as running
func (c *Controller) handleMessageStateChanged(ev *engine.Event) {
	if ev.Source != c.graph.Name() {
		return
	}

	logger.Debugw("pipeline state changed", "old", ev.Old, "new", ev.New)
	if ev.New == engine.StatePlaying {
		c.onPlaying()
	}
}
