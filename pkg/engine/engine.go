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

// Package engine describes the element graph capability the recorder drives.
// The media engine behind it (GStreamer in production) owns element
// implementations, negotiation and clocking.
package engine

import (
	"fmt"
	"time"
)

type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type EventType int

const (
	EventOther EventType = iota
	EventStateChanged
	EventError
	EventWarning
	EventEOS
)

func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state-changed"
	case EventError:
		return "error"
	case EventWarning:
		return "warning"
	case EventEOS:
		return "eos"
	default:
		return "other"
	}
}

// Event is one entry of a graph's ordered event stream.
type Event struct {
	Type   EventType
	Source string // name of the emitting node, or the graph name for graph-wide events

	// state changes
	Old State
	New State

	// errors and warnings
	Err   error
	Debug string

	// free-form description for other events
	Description string
}

// Caps is a serialized capability description, e.g. "video/x-raw,width=640,height=480".
// Engines convert it into their native representation when set as a property.
type Caps string

type Engine interface {
	// Init prepares the engine. It must be safe to call repeatedly and concurrently.
	Init() error
	NewGraph(name string) (Graph, error)
}

// Graph is exclusively owned by the goroutine that created it.
type Graph interface {
	Name() string
	NewElement(factory, name string) (Element, error)
	Add(elements ...Element) error
	Link(src, sink Element) error
	SetState(state State) error
	CurrentState() State
	SendEOS() bool
	// NextEvent blocks until the next event or until timeout elapses, returning nil on timeout.
	NextEvent(timeout time.Duration) *Event
	DebugDot() string
}

type Element interface {
	Name() string
	Factory() string
	SetProperty(name string, value interface{}) error
	// SetArg sets a property from its string form, used for enums.
	SetArg(name, value string)
	// Klass returns the factory classification, e.g. "Codec/Muxer".
	Klass() string
}
