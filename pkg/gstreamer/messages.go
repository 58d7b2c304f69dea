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
	"strings"

	"github.com/go-gst/go-gst/gst"

	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
)

func toEvent(msg *gst.Message) *engine.Event {
	ev := &engine.Event{
		Source: msg.Source(),
	}

	switch msg.Type() {
	case gst.MessageEOS:
		ev.Type = engine.EventEOS

	case gst.MessageError:
		ev.Type = engine.EventError
		fillGError(ev, msg.ParseError())

	case gst.MessageWarning:
		ev.Type = engine.EventWarning
		fillGError(ev, msg.ParseWarning())

	case gst.MessageStateChanged:
		ev.Type = engine.EventStateChanged
		oldState, newState := msg.ParseStateChanged()
		ev.Old = fromGstState(oldState)
		ev.New = fromGstState(newState)

	default:
		ev.Type = engine.EventOther
		ev.Description = msg.String()
	}

	return ev
}

func fillGError(ev *engine.Event, gErr *gst.GError) {
	if gErr == nil {
		ev.Err = errors.New("unknown error")
		return
	}

	ev.Err = errors.New(gErr.Error())
	ev.Description = gErr.Error()
	ev.Debug = gErr.DebugString()
	if ev.Source == "" {
		if element, _, ok := parseDebugInfo(ev.Debug); ok {
			ev.Source = element
		}
	}
}

// parseDebugInfo extracts the element name and reason from a debug string such as
// "gstbasesrc.c(3127): gst_base_src_loop (): /GstPipeline:pipeline/GstV4l2Src:video_source:\nreason".
func parseDebugInfo(debug string) (element string, reason string, ok bool) {
	end := strings.Index(debug, ":\n")
	if end == -1 {
		return
	}
	start := strings.LastIndex(debug[:end], ":")
	if start == -1 {
		return
	}
	element = debug[start+1 : end]
	reason = debug[end+2:]
	ok = true
	return
}
