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

package recorder

import (
	"context"

	"github.com/livekit/webcam-recorder/pkg/info"
	"github.com/livekit/webcam-recorder/pkg/pipeline"
)

// Handle refers to one running capture session.
type Handle struct {
	c *pipeline.Controller
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (h *Handle) SessionID() string {
	if h == nil || h.c == nil {
		return ""
	}
	return h.c.SessionID
}

// Stop requests the session to end. The worker sends end of stream, waits for the
// file to be finalized, then releases the graph.
func (h *Handle) Stop() {
	if h == nil || h.c == nil {
		return
	}
	h.c.Stop()
}

// IsRunning reports whether the graph is playing and the worker has not exited.
func (h *Handle) IsRunning() bool {
	if h == nil || h.c == nil {
		return false
	}
	select {
	case <-h.c.Done():
		return false
	default:
		return h.c.IsRunning()
	}
}

// Done is closed once the session's resources have been released.
func (h *Handle) Done() <-chan struct{} {
	if h == nil || h.c == nil {
		return closedChan
	}
	return h.c.Done()
}

// Wait blocks until the session has ended, returning its final info and the error
// that ended it, if any.
func (h *Handle) Wait(ctx context.Context) (*info.SessionInfo, error) {
	if h == nil || h.c == nil {
		return nil, nil
	}
	select {
	case <-h.c.Done():
		return h.c.Info(), h.c.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) Info() *info.SessionInfo {
	if h == nil || h.c == nil {
		return nil
	}
	return h.c.Info()
}
