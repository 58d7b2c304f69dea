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

package builder

import (
	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
)

const (
	SourceName     = "video_source"
	CapsFilterName = "capture_caps"
	TeeName        = "capture_tee"
)

// CaptureGraph is a fully linked capture graph, ready to be set to playing.
type CaptureGraph struct {
	engine.Graph

	Topology *Topology

	Source     engine.Element
	CapsFilter engine.Element
	Tee        engine.Element
	Preview    *Branch
	Record     *Branch
}

// Branch is a linear chain of elements fed by the tee.
type Branch struct {
	Name     string
	Elements []engine.Element
}

func (b *Branch) Head() engine.Element {
	return b.Elements[0]
}

func (b *Branch) Tail() engine.Element {
	return b.Elements[len(b.Elements)-1]
}

// BuildCaptureGraph adds and links source -> caps filter -> tee, then the preview
// and record branches. Any failure aborts the build; the returned graph must not be
// activated when err is non-nil.
func BuildCaptureGraph(g engine.Graph, p *config.PipelineConfig) (*CaptureGraph, error) {
	t := NewTopology(g)
	cg := &CaptureGraph{
		Graph:    g,
		Topology: t,
	}

	var err error
	if cg.Source, err = newElement(g, p.Elements.Source, SourceName); err != nil {
		return nil, err
	}
	if cg.CapsFilter, err = newElement(g, "capsfilter", CapsFilterName); err != nil {
		return nil, err
	}
	if err = setProperty(cg.CapsFilter, "caps", p.Params.Caps()); err != nil {
		return nil, err
	}
	if cg.Tee, err = newElement(g, "tee", TeeName); err != nil {
		return nil, err
	}
	if err = t.Add(cg.Source, cg.CapsFilter, cg.Tee); err != nil {
		return nil, err
	}
	if err = t.LinkMany(cg.Source, cg.CapsFilter, cg.Tee); err != nil {
		return nil, err
	}

	if cg.Preview, err = buildPreviewBranch(g, p); err != nil {
		return nil, err
	}
	if cg.Record, err = buildRecordBranch(g, p); err != nil {
		return nil, err
	}

	for _, b := range []*Branch{cg.Preview, cg.Record} {
		if err = t.Add(b.Elements...); err != nil {
			return nil, err
		}
		if err = t.LinkMany(b.Elements...); err != nil {
			return nil, err
		}
		if err = t.Link(cg.Tee, b.Head()); err != nil {
			return nil, err
		}
	}

	if err = t.Validate(cg.Source); err != nil {
		return nil, err
	}

	logger.Debugw("capture graph built",
		"caps", p.Params.Caps(),
		"destination", p.Destination,
		"elements", t.Len(),
	)
	return cg, nil
}

func newElement(g engine.Graph, factory, name string) (engine.Element, error) {
	e, err := g.NewElement(factory, name)
	if err != nil {
		return nil, errors.ErrElementCreateFailed(factory, err)
	}
	return e, nil
}

func setProperty(e engine.Element, name string, value interface{}) error {
	if err := e.SetProperty(name, value); err != nil {
		return errors.ErrPropertySetFailed(e.Name(), name, err)
	}
	return nil
}

func buildQueue(g engine.Graph, name string, leaky bool) (engine.Element, error) {
	queue, err := newElement(g, "queue", name)
	if err != nil {
		return nil, err
	}
	if leaky {
		queue.SetArg("leaky", "downstream")
	}
	return queue, nil
}
