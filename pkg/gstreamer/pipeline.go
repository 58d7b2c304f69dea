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

package gstreamer

import (
	"time"

	"github.com/frostbyte73/core"
	"github.com/go-gst/go-glib/glib"
	"github.com/go-gst/go-gst/gst"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/engine"
)

const eventBufferSize = 64

// Pipeline is an engine.Graph backed by a gst.Pipeline. Bus messages are dispatched
// by a glib main loop and queued for NextEvent.
type Pipeline struct {
	name     string
	pipeline *gst.Pipeline
	loop     *glib.MainLoop
	events   chan *engine.Event

	started core.Fuse
	closed  core.Fuse
}

func newPipeline(name string) (*Pipeline, error) {
	pipeline, err := gst.NewPipeline(name)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		name:     name,
		pipeline: pipeline,
		loop:     glib.NewMainLoop(glib.MainContextDefault(), false),
		events:   make(chan *engine.Event, eventBufferSize),
	}
	pipeline.GetPipelineBus().AddWatch(p.messageWatch)
	return p, nil
}

func (p *Pipeline) Name() string {
	return p.name
}

func (p *Pipeline) NewElement(factory, name string) (engine.Element, error) {
	e, err := gst.NewElementWithName(factory, name)
	if err != nil {
		return nil, err
	}
	return &Element{
		Element: e,
		name:    name,
		factory: factory,
	}, nil
}

func (p *Pipeline) Add(elements ...engine.Element) error {
	gstElements, err := toGstElements(elements)
	if err != nil {
		return err
	}
	return p.pipeline.AddMany(gstElements...)
}

func (p *Pipeline) Link(src, sink engine.Element) error {
	gstElements, err := toGstElements([]engine.Element{src, sink})
	if err != nil {
		return err
	}
	return gst.ElementLinkMany(gstElements...)
}

func (p *Pipeline) SetState(state engine.State) error {
	if state == engine.StatePlaying {
		p.started.Once(func() {
			go p.loop.Run()
		})
	}

	logger.Debugw("setting state", "pipeline", p.name, "state", state)
	err := p.pipeline.SetState(toGstState(state))

	if state == engine.StateNull {
		p.closed.Break()
		p.loop.Quit()
	}
	return err
}

func (p *Pipeline) CurrentState() engine.State {
	return fromGstState(p.pipeline.GetCurrentState())
}

func (p *Pipeline) SendEOS() bool {
	return p.pipeline.SendEvent(gst.NewEOSEvent())
}

func (p *Pipeline) NextEvent(timeout time.Duration) *engine.Event {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-p.events:
		return ev
	case <-p.closed.Watch():
		return nil
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) DebugDot() string {
	return p.pipeline.DebugBinToDotData(gst.DebugGraphShowAll)
}

// messageWatch runs on the main loop. Returning false removes the watch.
func (p *Pipeline) messageWatch(msg *gst.Message) bool {
	if p.closed.IsBroken() {
		return false
	}

	ev := toEvent(msg)
	select {
	case p.events <- ev:
		return true
	case <-p.closed.Watch():
		return false
	}
}

func toGstState(state engine.State) gst.State {
	switch state {
	case engine.StateReady:
		return gst.StateReady
	case engine.StatePaused:
		return gst.StatePaused
	case engine.StatePlaying:
		return gst.StatePlaying
	default:
		return gst.StateNull
	}
}

func fromGstState(state gst.State) engine.State {
	switch state {
	case gst.StateReady:
		return engine.StateReady
	case gst.StatePaused:
		return engine.StatePaused
	case gst.StatePlaying:
		return engine.StatePlaying
	default:
		return engine.StateNull
	}
}
