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

package builder

import (
	"fmt"

	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
)

// Topology mirrors every add and link made on a graph so reachability can be
// checked before activation.
type Topology struct {
	graph engine.Graph
	nodes []string
	added map[string]bool
	edges map[string][]string
}

func NewTopology(g engine.Graph) *Topology {
	return &Topology{
		graph: g,
		added: make(map[string]bool),
		edges: make(map[string][]string),
	}
}

func (t *Topology) Add(elements ...engine.Element) error {
	for _, e := range elements {
		if t.added[e.Name()] {
			return errors.ErrGstPipelineError(fmt.Errorf("%s added twice", e.Name()))
		}
	}
	if err := t.graph.Add(elements...); err != nil {
		return errors.ErrGstPipelineError(err)
	}
	for _, e := range elements {
		t.added[e.Name()] = true
		t.nodes = append(t.nodes, e.Name())
	}
	return nil
}

func (t *Topology) Link(src, sink engine.Element) error {
	if err := t.graph.Link(src, sink); err != nil {
		return errors.ErrPadLinkFailed(src.Name(), sink.Name(), err.Error())
	}
	t.edges[src.Name()] = append(t.edges[src.Name()], sink.Name())
	return nil
}

func (t *Topology) LinkMany(elements ...engine.Element) error {
	for i := 1; i < len(elements); i++ {
		if err := t.Link(elements[i-1], elements[i]); err != nil {
			return err
		}
	}
	return nil
}

// Validate returns an error for the first node not reachable from source.
func (t *Topology) Validate(source engine.Element) error {
	if !t.added[source.Name()] {
		return errors.ErrUnreachableNode(source.Name())
	}

	seen := map[string]bool{source.Name(): true}
	queue := []string{source.Name()}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, sink := range t.edges[next] {
			if !seen[sink] {
				seen[sink] = true
				queue = append(queue, sink)
			}
		}
	}

	for _, name := range t.nodes {
		if !seen[name] {
			return errors.ErrUnreachableNode(name)
		}
	}
	return nil
}

func (t *Topology) Len() int {
	return len(t.nodes)
}

func (t *Topology) Nodes() []string {
	return append([]string(nil), t.nodes...)
}

func (t *Topology) Peers(name string) []string {
	return append([]string(nil), t.edges[name]...)
}
