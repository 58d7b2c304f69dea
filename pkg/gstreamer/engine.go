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

// Package gstreamer implements engine.Engine on top of GStreamer.
package gstreamer

import (
	"sync"

	"github.com/go-gst/go-gst/gst"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/engine"
)

type Engine struct {
	initOnce sync.Once
}

func NewEngine() *Engine {
	return &Engine{}
}

// Init initializes GStreamer once per process.
func (e *Engine) Init() error {
	e.initOnce.Do(func() {
		gst.Init(nil)
		logger.Debugw("gstreamer initialized")
	})
	return nil
}

func (e *Engine) NewGraph(name string) (engine.Graph, error) {
	return newPipeline(name)
}
