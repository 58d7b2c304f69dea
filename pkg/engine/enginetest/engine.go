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

// Package enginetest provides an in-memory engine.Engine for tests.
// Graphs record their elements, properties and links, enforce source reachability on
// activation, and emit the state-change events a real engine would.
package enginetest

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/livekit/webcam-recorder/pkg/engine"
)

var defaultKlasses = map[string]string{
	"matroskamux": "Codec/Muxer",
	"mp4mux":      "Codec/Muxer",
	"mpegtsmux":   "Codec/Muxer",
	"identity":    "Generic",
}

type Engine struct {
	mu sync.Mutex

	// InitErr is returned by every Init call.
	InitErr error
	// FailFactories makes NewElement fail for the given factories.
	FailFactories map[string]error
	// FailLinks makes Link fail for "src->sink" element name pairs.
	FailLinks map[string]error
	// FailProperties makes SetProperty fail for "element.property".
	FailProperties map[string]error
	// ActivationErr is returned when a graph is set to playing.
	ActivationErr error
	// SkipPlaying suppresses the graph-wide playing event, leaving activation pending forever.
	SkipPlaying bool
	// DropEOS makes SendEOS succeed without an EOS event ever arriving.
	DropEOS bool
	// RefuseEOS makes SendEOS report that the graph did not accept the event.
	RefuseEOS bool

	inits  atomic.Int32
	graphs []*Graph
}

func New() *Engine {
	return &Engine{
		FailFactories:  make(map[string]error),
		FailLinks:      make(map[string]error),
		FailProperties: make(map[string]error),
	}
}

func (e *Engine) Init() error {
	e.inits.Inc()
	return e.InitErr
}

func (e *Engine) InitCount() int {
	return int(e.inits.Load())
}

func (e *Engine) NewGraph(name string) (engine.Graph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &Graph{
		engine:   e,
		name:     name,
		elements: make(map[string]*Element),
		events:   make(chan *engine.Event, 256),
	}
	e.graphs = append(e.graphs, g)
	return g, nil
}

func (e *Engine) Graphs() []*Graph {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]*Graph(nil), e.graphs...)
}

// LastGraph returns the most recently created graph, or nil.
func (e *Engine) LastGraph() *Graph {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.graphs) == 0 {
		return nil
	}
	return e.graphs[len(e.graphs)-1]
}

type Graph struct {
	engine *Engine
	name   string
	events chan *engine.Event

	mu         sync.Mutex
	elements   map[string]*Element
	order      []string
	links      map[string][]string
	state      engine.State
	nullCount  int
	eosSent    int
	files      []string
	stateTrail []engine.State
}

func (g *Graph) Name() string {
	return g.name
}

func (g *Graph) NewElement(factory, name string) (engine.Element, error) {
	g.engine.mu.Lock()
	err := g.engine.FailFactories[factory]
	g.engine.mu.Unlock()
	if err != nil {
		return nil, err
	}

	klass := defaultKlasses[factory]
	if klass == "" {
		klass = "Generic"
	}
	return &Element{
		graph:   g,
		name:    name,
		factory: factory,
		klass:   klass,
		props:   make(map[string]interface{}),
		args:    make(map[string]string),
	}, nil
}

func (g *Graph) Add(elements ...engine.Element) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range elements {
		el, ok := e.(*Element)
		if !ok {
			return fmt.Errorf("foreign element %s", e.Name())
		}
		if el.graph != g {
			return fmt.Errorf("element %s belongs to another graph", el.name)
		}
		if _, exists := g.elements[el.name]; exists {
			return fmt.Errorf("element %s already added", el.name)
		}
		g.elements[el.name] = el
		g.order = append(g.order, el.name)
	}
	return nil
}

func (g *Graph) Link(src, sink engine.Element) error {
	key := src.Name() + "->" + sink.Name()
	g.engine.mu.Lock()
	err := g.engine.FailLinks[key]
	g.engine.mu.Unlock()
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.elements[src.Name()]; !ok {
		return fmt.Errorf("%s not in graph", src.Name())
	}
	if _, ok := g.elements[sink.Name()]; !ok {
		return fmt.Errorf("%s not in graph", sink.Name())
	}
	if g.links == nil {
		g.links = make(map[string][]string)
	}
	g.links[src.Name()] = append(g.links[src.Name()], sink.Name())
	return nil
}

func (g *Graph) SetState(state engine.State) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stateTrail = append(g.stateTrail, state)
	switch state {
	case engine.StatePlaying:
		if err := g.checkReachableLocked(); err != nil {
			return err
		}
		g.engine.mu.Lock()
		activationErr := g.engine.ActivationErr
		skipPlaying := g.engine.SkipPlaying
		g.engine.mu.Unlock()
		if activationErr != nil {
			return activationErr
		}
		if err := g.openFilesLocked(); err != nil {
			return err
		}

		old := g.state
		g.state = engine.StatePlaying
		for _, name := range g.order {
			g.post(&engine.Event{Type: engine.EventStateChanged, Source: name, Old: old, New: engine.StatePlaying})
		}
		g.post(&engine.Event{Type: engine.EventOther, Source: g.name, Description: "stream-start"})
		if !skipPlaying {
			g.post(&engine.Event{Type: engine.EventStateChanged, Source: g.name, Old: engine.StatePaused, New: engine.StatePlaying})
		}

	case engine.StateNull:
		g.state = engine.StateNull
		g.nullCount++

	default:
		g.state = state
	}
	return nil
}

func (g *Graph) CurrentState() engine.State {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}

func (g *Graph) SendEOS() bool {
	g.mu.Lock()
	g.eosSent++
	g.mu.Unlock()

	g.engine.mu.Lock()
	drop := g.engine.DropEOS
	refuse := g.engine.RefuseEOS
	g.engine.mu.Unlock()
	if refuse {
		return false
	}
	if !drop {
		g.post(&engine.Event{Type: engine.EventEOS, Source: g.name})
	}
	return true
}

func (g *Graph) NextEvent(timeout time.Duration) *engine.Event {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-g.events:
		return ev
	case <-timer.C:
		return nil
	}
}

func (g *Graph) DebugDot() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %s {\n", g.name)
	for _, src := range g.sortedLinkSourcesLocked() {
		for _, sink := range g.links[src] {
			fmt.Fprintf(&sb, "  %q -> %q;\n", src, sink)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Post injects an event into the graph's event stream.
func (g *Graph) Post(ev *engine.Event) {
	g.post(ev)
}

func (g *Graph) post(ev *engine.Event) {
	g.events <- ev
}

func (g *Graph) Element(name string) *Element {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.elements[name]
}

// ElementNames returns element names in the order they were added.
func (g *Graph) ElementNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.order...)
}

// Links returns the downstream peers of an element in link order.
func (g *Graph) Links(name string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.links[name]...)
}

func (g *Graph) NullCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.nullCount
}

func (g *Graph) EOSCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.eosSent
}

func (g *Graph) StateTrail() []engine.State {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]engine.State(nil), g.stateTrail...)
}

func (g *Graph) checkReachableLocked() error {
	incoming := make(map[string]int)
	for _, sinks := range g.links {
		for _, sink := range sinks {
			incoming[sink]++
		}
	}

	var sources []string
	for _, name := range g.order {
		if incoming[name] == 0 {
			sources = append(sources, name)
		}
	}
	if len(sources) != 1 {
		return fmt.Errorf("graph %s has %d unlinked sources: %v", g.name, len(sources), sources)
	}

	seen := map[string]bool{sources[0]: true}
	queue := []string{sources[0]}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, sink := range g.links[next] {
			if !seen[sink] {
				seen[sink] = true
				queue = append(queue, sink)
			}
		}
	}
	for _, name := range g.order {
		if !seen[name] {
			return fmt.Errorf("element %s unreachable from %s", name, sources[0])
		}
	}
	return nil
}

// filesink elements create their location on activation, as a real file sink does.
func (g *Graph) openFilesLocked() error {
	for _, name := range g.order {
		el := g.elements[name]
		if el.factory != "filesink" {
			continue
		}
		location, _ := el.Property("location").(string)
		f, err := os.Create(location)
		if err != nil {
			g.post(&engine.Event{Type: engine.EventError, Source: name, Err: err, Debug: "Could not open file for writing"})
			return fmt.Errorf("failed to change state of %s: %w", name, err)
		}
		_ = f.Close()
		g.files = append(g.files, location)
	}
	return nil
}

func (g *Graph) sortedLinkSourcesLocked() []string {
	srcs := make([]string, 0, len(g.links))
	for src := range g.links {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)
	return srcs
}

type Element struct {
	graph   *Graph
	name    string
	factory string
	klass   string

	mu    sync.Mutex
	props map[string]interface{}
	args  map[string]string
}

func (e *Element) Name() string {
	return e.name
}

func (e *Element) Factory() string {
	return e.factory
}

func (e *Element) Klass() string {
	return e.klass
}

func (e *Element) SetProperty(name string, value interface{}) error {
	e.graph.engine.mu.Lock()
	err := e.graph.engine.FailProperties[e.name+"."+name]
	e.graph.engine.mu.Unlock()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.props[name] = value
	e.mu.Unlock()
	return nil
}

func (e *Element) SetArg(name, value string) {
	e.mu.Lock()
	e.args[name] = value
	e.mu.Unlock()
}

func (e *Element) Property(name string) interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.props[name]
}

func (e *Element) Arg(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.args[name]
}
