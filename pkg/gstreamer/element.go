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

package gstreamer

import (
	"fmt"

	"github.com/go-gst/go-gst/gst"

	"github.com/livekit/webcam-recorder/pkg/engine"
)

type Element struct {
	*gst.Element

	name    string
	factory string
}

func (e *Element) Name() string {
	return e.name
}

func (e *Element) Factory() string {
	return e.factory
}

func (e *Element) SetProperty(name string, value interface{}) error {
	if c, ok := value.(engine.Caps); ok {
		caps := gst.NewCapsFromString(string(c))
		if caps == nil {
			return fmt.Errorf("invalid caps %q", c)
		}
		value = caps
	}
	return e.Element.SetProperty(name, value)
}

func (e *Element) SetArg(name, value string) {
	e.Element.SetArg(name, value)
}

func (e *Element) Klass() string {
	if factory := e.GetFactory(); factory != nil {
		return factory.GetMetadata("klass")
	}
	return ""
}

func toGstElements(elements []engine.Element) ([]*gst.Element, error) {
	res := make([]*gst.Element, 0, len(elements))
	for _, e := range elements {
		ge, ok := e.(*Element)
		if !ok {
			return nil, fmt.Errorf("%s was not created by this engine", e.Name())
		}
		res = append(res, ge.Element)
	}
	return res, nil
}
